package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kasherehauwa01-sudo/Parisngbot-nakladnaya/decode"
	"github.com/kasherehauwa01-sudo/Parisngbot-nakladnaya/extract"
	"github.com/kasherehauwa01-sudo/Parisngbot-nakladnaya/model"
	"github.com/kasherehauwa01-sudo/Parisngbot-nakladnaya/state"
	"github.com/kasherehauwa01-sudo/Parisngbot-nakladnaya/stats"
)

type StageFunc func(context.Context) error

// Runner owns one run of the pipeline: a source stage feeds raw message
// envelopes in, the extract bridge turns them into invoice records, and
// the collector accumulates the unique ones for reconciliation. The
// first fatal stage error cancels everything; per-message problems only
// surface as skip events.
type Runner struct {
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	messages chan model.Envelope
	records  chan model.Record
	events   chan stats.Event

	tracker state.Tracker

	workWG  sync.WaitGroup
	statsWG sync.WaitGroup

	errMu sync.Mutex
	err   error

	closeMessagesOnce sync.Once
	closeRecordsOnce  sync.Once
	closeEventsOnce   sync.Once
	since             time.Time

	collected []model.Record
}

func New(logger *slog.Logger) *Runner {
	ctx, cancel := context.WithCancel(context.Background())

	r := &Runner{
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		messages: make(chan model.Envelope, 32),
		records:  make(chan model.Record, 32),
		events:   make(chan stats.Event, 128),
		tracker:  state.NewMemoryTracker(),
	}

	r.AddStage("extract", r.extract)
	r.AddStage("collect", r.collect)
	return r
}

func (r *Runner) Context() context.Context {
	return r.ctx
}

// MessageWriter is where a source stage sends its envelopes.
func (r *Runner) MessageWriter() chan<- model.Envelope {
	return r.messages
}

// CloseMessages signals that the source has emitted everything.
func (r *Runner) CloseMessages() {
	r.closeMessagesOnce.Do(func() {
		close(r.messages)
	})
}

// Records returns the accumulated unique records. Only valid after
// Start has returned.
func (r *Runner) Records() []model.Record {
	return r.collected
}

func (r *Runner) EmitEvent(evt stats.Event) {
	select {
	case <-r.ctx.Done():
	case r.events <- evt:
	}
}

func (r *Runner) SubscribeStats(name string, fn func(context.Context, <-chan stats.Event) error) {
	r.statsWG.Add(1)
	go func() {
		defer r.statsWG.Done()
		if err := fn(r.ctx, r.events); err != nil && !errors.Is(err, context.Canceled) {
			r.fail(fmt.Errorf("%s stats: %w", name, err))
		}
	}()
}

func (r *Runner) AddStage(name string, fn StageFunc) {
	r.workWG.Add(1)
	go func() {
		defer r.workWG.Done()
		if err := fn(r.ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.fail(fmt.Errorf("%s stage: %w", name, err))
		}
	}()
}

func (r *Runner) Start() error {
	r.since = time.Now()

	r.workWG.Wait()
	r.closeEvents()
	r.statsWG.Wait()

	r.cancel()

	err := r.err
	duration := time.Since(r.since)
	if err != nil {
		if r.logger != nil {
			r.logger.Error("pipeline failed", "duration", duration, "err", err)
		}
		return err
	}

	if r.logger != nil {
		r.logger.Info("pipeline completed", "duration", duration, "records", len(r.collected))
	}
	return nil
}

// extract bridges raw messages to invoice records: decode the body,
// pattern-match records out of the text, drop duplicates within the run.
func (r *Runner) extract(ctx context.Context) error {
	defer r.closeRecords()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case envelope, ok := <-r.messages:
			if !ok {
				return nil
			}

			if envelope.Err != nil {
				// Per-message failures never abort the run.
				r.EmitEvent(stats.Event{Stage: stats.StageExtract, Type: stats.EventTypeSkipped, Err: envelope.Err})
				continue
			}

			msg := envelope.Message
			text := decode.Normalize(msg.Raw)
			found := extract.Records(text)

			r.EmitEvent(stats.Event{Stage: stats.StageExtract, Type: stats.EventTypeScanned, MessageID: msg.UID, Count: len(found)})
			if r.logger != nil {
				r.logger.Info("message scanned", "uid", msg.UID, "records", len(found))
			}

			for _, rec := range found {
				key := rec.Key()
				if r.tracker.Seen(key) {
					r.EmitEvent(stats.Event{Stage: stats.StageExtract, Type: stats.EventTypeDuplicate, MessageID: msg.UID})
					continue
				}
				r.tracker.Mark(key, msg.UID)

				select {
				case <-ctx.Done():
					return ctx.Err()
				case r.records <- rec:
					r.EmitEvent(stats.Event{Stage: stats.StageExtract, Type: stats.EventTypeExtracted, MessageID: msg.UID})
				}
			}
		}
	}
}

func (r *Runner) collect(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec, ok := <-r.records:
			if !ok {
				return nil
			}
			r.collected = append(r.collected, rec)
		}
	}
}

func (r *Runner) closeRecords() {
	r.closeRecordsOnce.Do(func() {
		close(r.records)
	})
}

func (r *Runner) closeEvents() {
	r.closeEventsOnce.Do(func() {
		close(r.events)
	})
}

func (r *Runner) fail(err error) {
	if err == nil {
		return
	}
	r.errMu.Lock()
	if r.err == nil {
		r.err = err
		r.cancel()
	}
	r.errMu.Unlock()
}
