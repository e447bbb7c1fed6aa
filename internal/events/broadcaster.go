package events

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/invoicelens/invoice-extractor/constants"
)

// Event is one lifecycle notification for a job. Exactly one terminal event
// (completed or error) is published per job.
type Event struct {
	JobID     string                `json:"job_id"`
	Status    constants.EventStatus `json:"status"`
	Message   string                `json:"message,omitempty"`
	Data      json.RawMessage       `json:"data,omitempty"`
	InvoiceID string                `json:"invoice_id,omitempty"`
	Timestamp time.Time             `json:"timestamp"`
}

// Terminal reports whether no further events will follow this one.
func (e Event) Terminal() bool {
	return e.Status == constants.EventCompleted || e.Status == constants.EventError
}

const subscriberBuffer = 16

// Broadcaster fans job events out to per-job subscribers. Delivery is
// best-effort: a subscriber that stops draining loses events rather than
// blocking the pipeline. There is no replay; subscribers only see events
// published after they subscribe.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[string]map[int]chan Event
	nextID int
	logger *slog.Logger
}

func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		subs:   make(map[string]map[int]chan Event),
		logger: logger,
	}
}

// Subscribe registers interest in one job's events. The returned cancel
// function must be called when the subscriber is done; it closes the channel.
func (b *Broadcaster) Subscribe(jobID string) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	id := b.nextID
	b.nextID++

	if b.subs[jobID] == nil {
		b.subs[jobID] = make(map[int]chan Event)
	}
	b.subs[jobID][id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if m, ok := b.subs[jobID]; ok {
			if c, ok := m[id]; ok {
				delete(m, id)
				close(c)
				if len(m) == 0 {
					delete(b.subs, jobID)
				}
			}
		}
	}
	return ch, cancel
}

// Publish delivers an event to every current subscriber of its job. It never
// blocks: full subscriber buffers drop the event.
func (b *Broadcaster) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subs[e.JobID] {
		select {
		case ch <- e:
		default:
			b.logger.Warn("events.publish.dropped", "job_id", e.JobID, "subscriber", id, "status", e.Status)
		}
	}
}
