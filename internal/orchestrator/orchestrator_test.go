package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invoicelens/invoice-extractor/constants"
	"github.com/invoicelens/invoice-extractor/internal/common"
	"github.com/invoicelens/invoice-extractor/internal/entity"
	"github.com/invoicelens/invoice-extractor/internal/events"
	"github.com/invoicelens/invoice-extractor/internal/extract"
	"github.com/invoicelens/invoice-extractor/internal/normalize"
)

type stubExtractor struct {
	text string
	err  error
}

func (s *stubExtractor) Extract(context.Context, string) (extract.Result, error) {
	return extract.Result{Text: s.text, Pages: 1, Method: "pdf-text"}, s.err
}

type stubInferrer struct {
	payload []byte
	called  bool
}

func (s *stubInferrer) Infer(context.Context, string) []byte {
	s.called = true
	return s.payload
}

type stubRepo struct {
	err   error
	saved *normalize.Result
}

func (s *stubRepo) CreateFromExtraction(_ context.Context, res *normalize.Result, _ string) (*entity.Invoice, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.saved = res
	return &entity.Invoice{ID: "inv-1", InvoiceNumber: res.InvoiceNumber}, nil
}

const goodPayload = `{"customer_name":"Acme","invoice_number":"INV-1","total_amount":10,"order_details":[]}`

// drain collects events until the terminal one or a timeout.
func drain(t *testing.T, ch <-chan events.Event) []events.Event {
	t.Helper()
	var out []events.Event
	deadline := time.After(2 * time.Second)
	for {
		select {
		case e := <-ch:
			out = append(out, e)
			if e.Terminal() {
				return out
			}
		case <-deadline:
			t.Fatalf("no terminal event; got %d events", len(out))
		}
	}
}

func terminalCount(evs []events.Event) int {
	n := 0
	for _, e := range evs {
		if e.Terminal() {
			n++
		}
	}
	return n
}

func TestProcessHappyPath(t *testing.T) {
	bus := events.NewBroadcaster(nil)
	inferrer := &stubInferrer{payload: []byte(goodPayload)}
	repo := &stubRepo{}
	o := New(&stubExtractor{text: "INVOICE #1 total 10"}, inferrer, repo, bus, nil)

	ch, cancel := bus.Subscribe("job-1")
	defer cancel()

	err := o.Process(context.Background(), Job{ID: "job-1", FilePath: "a.pdf", FileName: "a.pdf"})
	require.NoError(t, err)

	evs := drain(t, ch)
	require.GreaterOrEqual(t, len(evs), 3)
	assert.Equal(t, constants.EventProcessing, evs[0].Status)

	last := evs[len(evs)-1]
	assert.Equal(t, constants.EventCompleted, last.Status)
	assert.Equal(t, "inv-1", last.InvoiceID)
	assert.Equal(t, 1, terminalCount(evs), "exactly one terminal event")

	var sawExtracted bool
	for _, e := range evs {
		if e.Status == constants.EventExtracted {
			sawExtracted = true
			assert.NotEmpty(t, e.Data)
		}
	}
	assert.True(t, sawExtracted)
	require.NotNil(t, repo.saved)
	assert.Equal(t, "Acme", repo.saved.CustomerName)
}

func TestProcessEmptyTextSkipsInference(t *testing.T) {
	bus := events.NewBroadcaster(nil)
	inferrer := &stubInferrer{payload: []byte(goodPayload)}
	o := New(&stubExtractor{text: "   \n "}, inferrer, &stubRepo{}, bus, nil)

	ch, cancel := bus.Subscribe("job-1")
	defer cancel()

	err := o.Process(context.Background(), Job{ID: "job-1", FilePath: "a.pdf"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInput))
	assert.False(t, inferrer.called, "no model call for an empty document")

	evs := drain(t, ch)
	assert.Equal(t, constants.EventError, evs[len(evs)-1].Status)
	assert.Equal(t, 1, terminalCount(evs))
}

func TestProcessExtractionFailure(t *testing.T) {
	bus := events.NewBroadcaster(nil)
	o := New(&stubExtractor{err: fmt.Errorf("%w: corrupt pdf", common.ErrInput)}, &stubInferrer{}, &stubRepo{}, bus, nil)

	ch, cancel := bus.Subscribe("job-1")
	defer cancel()

	err := o.Process(context.Background(), Job{ID: "job-1", FilePath: "a.pdf"})
	require.Error(t, err)

	evs := drain(t, ch)
	assert.Equal(t, constants.EventError, evs[len(evs)-1].Status)
	assert.Equal(t, 1, terminalCount(evs))
}

func TestProcessValidationFailure(t *testing.T) {
	bus := events.NewBroadcaster(nil)
	bad := []byte(`{"customer_name":"","invoice_number":"INV-1","total_amount":1}`)
	o := New(&stubExtractor{text: "invoice body text"}, &stubInferrer{payload: bad}, &stubRepo{}, bus, nil)

	ch, cancel := bus.Subscribe("job-1")
	defer cancel()

	err := o.Process(context.Background(), Job{ID: "job-1", FilePath: "a.pdf"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrValidation))

	evs := drain(t, ch)
	last := evs[len(evs)-1]
	assert.Equal(t, constants.EventError, last.Status)
	assert.Contains(t, last.Message, "customer_name", "error names the failing field")
}

func TestProcessStorageFailure(t *testing.T) {
	bus := events.NewBroadcaster(nil)
	repo := &stubRepo{err: fmt.Errorf("%w: disk full", common.ErrStorage)}
	o := New(&stubExtractor{text: "invoice body text"}, &stubInferrer{payload: []byte(goodPayload)}, repo, bus, nil)

	ch, cancel := bus.Subscribe("job-1")
	defer cancel()

	err := o.Process(context.Background(), Job{ID: "job-1", FilePath: "a.pdf"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrStorage))

	evs := drain(t, ch)
	assert.Equal(t, constants.EventError, evs[len(evs)-1].Status)
	assert.Equal(t, 1, terminalCount(evs))
}

func TestProcessPlaceholderCompletes(t *testing.T) {
	bus := events.NewBroadcaster(nil)
	placeholder := []byte(`{"customer_name":"Unknown Customer","invoice_number":"INV-1234","order_date":"2026-08-23","total_amount":0,"tax_amount":0,"order_details":[],"unverified":true}`)
	repo := &stubRepo{}
	o := New(&stubExtractor{text: "illegible scan"}, &stubInferrer{payload: placeholder}, repo, bus, nil)

	ch, cancel := bus.Subscribe("job-1")
	defer cancel()

	require.NoError(t, o.Process(context.Background(), Job{ID: "job-1", FilePath: "a.pdf"}))

	evs := drain(t, ch)
	assert.Equal(t, constants.EventCompleted, evs[len(evs)-1].Status)
	require.NotNil(t, repo.saved)
	assert.True(t, repo.saved.Unverified)
}

func TestQueueProcessesAndShutsDown(t *testing.T) {
	bus := events.NewBroadcaster(nil)
	repo := &stubRepo{}
	o := New(&stubExtractor{text: "invoice body text"}, &stubInferrer{payload: []byte(goodPayload)}, repo, bus, nil)

	ch, cancel := bus.Subscribe("job-1")
	defer cancel()

	q := NewQueue(o, nil, WithWorkers(2), WithQueueSize(4), WithJobTimeout(time.Second))
	require.NoError(t, q.Enqueue(context.Background(), Job{ID: "job-1", FilePath: "a.pdf"}))

	evs := drain(t, ch)
	assert.Equal(t, constants.EventCompleted, evs[len(evs)-1].Status)

	ctx, stop := context.WithTimeout(context.Background(), 2*time.Second)
	defer stop()
	q.Shutdown(ctx)

	err := q.Enqueue(context.Background(), Job{ID: "job-2"})
	assert.Error(t, err, "enqueue after shutdown is rejected")
}
