package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/invoicelens/invoice-extractor/constants"
	"github.com/invoicelens/invoice-extractor/internal/common"
	"github.com/invoicelens/invoice-extractor/internal/entity"
	"github.com/invoicelens/invoice-extractor/internal/events"
	"github.com/invoicelens/invoice-extractor/internal/extract"
	"github.com/invoicelens/invoice-extractor/internal/llm"
	"github.com/invoicelens/invoice-extractor/internal/normalize"
)

// minUsableTextChars is the least extracted text worth sending to a model.
const minUsableTextChars = 10

// Job is one queued extraction request. Jobs are ephemeral: state lives in
// memory only and observers learn about progress through published events.
type Job struct {
	ID       string
	FilePath string
	FileName string
}

// TextExtractor is the slice of the extract package the pipeline needs.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (extract.Result, error)
}

// InvoiceCreator is the slice of the repository the pipeline needs.
type InvoiceCreator interface {
	CreateFromExtraction(ctx context.Context, res *normalize.Result, sourceFile string) (*entity.Invoice, error)
}

// Orchestrator drives one job through the pipeline: text extraction, field
// inference, normalization, persistence. Every job ends with exactly one
// terminal event, completed or error.
type Orchestrator struct {
	extractor TextExtractor
	inferrer  llm.Inferrer
	repo      InvoiceCreator
	bus       *events.Broadcaster
	logger    *slog.Logger
}

func New(extractor TextExtractor, inferrer llm.Inferrer, repo InvoiceCreator, bus *events.Broadcaster, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		extractor: extractor,
		inferrer:  inferrer,
		repo:      repo,
		bus:       bus,
		logger:    logger,
	}
}

// Process runs the full pipeline for one job. The returned error is for the
// worker's log only; observers are notified through events.
func (o *Orchestrator) Process(ctx context.Context, job Job) error {
	o.transition(job, constants.JobStateReceived, constants.JobStateExtractingText)
	o.bus.Publish(events.Event{
		JobID:   job.ID,
		Status:  constants.EventProcessing,
		Message: "extracting text from document",
	})

	res, err := o.extractor.Extract(ctx, job.FilePath)
	if err != nil {
		return o.fail(job, constants.JobStateExtractingText, err)
	}
	if len(strings.TrimSpace(res.Text)) < minUsableTextChars {
		// No model call for an empty document: there is nothing to infer from.
		return o.fail(job, constants.JobStateExtractingText,
			fmt.Errorf("%w: document contains no extractable text", common.ErrInput))
	}

	o.transition(job, constants.JobStateExtractingText, constants.JobStateInferring)
	o.bus.Publish(events.Event{
		JobID:   job.ID,
		Status:  constants.EventProcessing,
		Message: "extracting invoice fields",
	})

	payload := o.inferrer.Infer(ctx, res.Text)

	o.transition(job, constants.JobStateInferring, constants.JobStateValidating)
	o.bus.Publish(events.Event{
		JobID:  job.ID,
		Status: constants.EventExtracted,
		Data:   payload,
	})

	record, err := normalize.Normalize(payload)
	if err != nil {
		return o.fail(job, constants.JobStateValidating, err)
	}

	o.transition(job, constants.JobStateValidating, constants.JobStatePersisting)
	inv, err := o.repo.CreateFromExtraction(ctx, record, job.FileName)
	if err != nil {
		return o.fail(job, constants.JobStatePersisting, err)
	}

	o.transition(job, constants.JobStatePersisting, constants.JobStateCompleted)
	o.bus.Publish(events.Event{
		JobID:     job.ID,
		Status:    constants.EventCompleted,
		Message:   "invoice extracted and saved",
		InvoiceID: inv.ID,
	})
	o.logger.Info("orchestrator.job.completed", "job_id", job.ID, "invoice_id", inv.ID)
	return nil
}

func (o *Orchestrator) fail(job Job, from constants.JobState, err error) error {
	o.transition(job, from, constants.JobStateError)
	o.bus.Publish(events.Event{
		JobID:   job.ID,
		Status:  constants.EventError,
		Message: err.Error(),
	})
	o.logger.Error("orchestrator.job.failed", "job_id", job.ID, "state", from, "error", err)
	return err
}

func (o *Orchestrator) transition(job Job, from, to constants.JobState) {
	o.logger.Debug("orchestrator.job.transition", "job_id", job.ID, "from", from, "to", to)
}
