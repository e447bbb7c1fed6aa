package constants

// JobState is the internal lifecycle state of one in-flight extraction job.
// Jobs are ephemeral; these states are never persisted.
type JobState string

const (
	JobStateReceived       JobState = "received"
	JobStateExtractingText JobState = "extracting_text"
	JobStateInferring      JobState = "inferring"
	JobStateValidating     JobState = "validating"
	JobStatePersisting     JobState = "persisting"
	JobStateCompleted      JobState = "completed"
	JobStateError          JobState = "error"
)

// Terminal reports whether the state admits no further transitions.
func (s JobState) Terminal() bool {
	return s == JobStateCompleted || s == JobStateError
}

// EventStatus is the status tag carried on lifecycle events published to
// observers. Stable values (the UI switches on these exact strings).
type EventStatus string

const (
	EventProcessing EventStatus = "processing" // accepted, work started
	EventExtracted  EventStatus = "extracted"  // fields extracted, carries payload
	EventCompleted  EventStatus = "completed"  // persisted, carries invoice id
	EventError      EventStatus = "error"      // terminal failure, carries message
)

// InvoiceStatus is the persisted status tag on an invoice row.
type InvoiceStatus string

const (
	InvoiceStatusProcessing InvoiceStatus = "processing"
	InvoiceStatusExtracted  InvoiceStatus = "extracted"
	InvoiceStatusCompleted  InvoiceStatus = "completed"
	InvoiceStatusError      InvoiceStatus = "error"
)
