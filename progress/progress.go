package progress

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pterm/pterm"

	"github.com/kasherehauwa01-sudo/Parisngbot-nakladnaya/stats"
)

// Bar renders a terminal progress bar over the scan. The total is not
// known until the mailbox search reports how many messages matched, so
// the bar only appears once the first found event arrives.
type Bar struct {
	mu      sync.Mutex
	pb      *pterm.ProgressbarPrinter
	total   int
	enabled bool
}

// New creates a progress bar; it stays silent unless logLevel is "info".
func New(logLevel string) *Bar {
	return &Bar{enabled: logLevel == "info"}
}

func (b *Bar) Update(evt stats.Event) {
	if !b.enabled {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch evt.Type {
	case stats.EventTypeFound:
		if b.pb == nil && evt.Count > 0 {
			pb, _ := pterm.DefaultProgressbar.
				WithTotal(evt.Count).
				WithTitle("Scanning messages").
				Start()
			b.pb = pb
			b.total = evt.Count
		}
	case stats.EventTypeScanned:
		if b.pb != nil {
			b.pb.Increment()
		}
	case stats.EventTypeSkipped:
		if evt.Err != nil {
			pterm.Warning.Printf("Skipped message %s: %v\n", evt.MessageID, evt.Err)
			if b.pb != nil {
				b.pb.Increment()
			}
		}
	case stats.EventTypeError:
		if evt.Err != nil {
			pterm.Error.Printf("Error: %v\n", evt.Err)
		}
	}
}

func (b *Bar) Stop() {
	if !b.enabled {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pb == nil {
		return
	}
	if b.pb.Current < b.total {
		b.pb.Current = b.total
	}
	_, _ = b.pb.Stop()
	b.pb = nil
}

// Reporter drives the bar and the stats collector from a single event
// subscription and logs the final run summary.
type Reporter struct {
	bar       *Bar
	collector *stats.Collector
	logger    *slog.Logger
	started   time.Time
}

func NewReporter(stream stats.EventStream, bar *Bar, logger *slog.Logger) *Reporter {
	reporter := &Reporter{
		bar:       bar,
		collector: stats.NewCollector(),
		logger:    logger,
		started:   time.Now(),
	}
	stream.SubscribeStats("progress", reporter.consume)
	return reporter
}

func (r *Reporter) consume(ctx context.Context, events <-chan stats.Event) error {
	for {
		select {
		case <-ctx.Done():
			r.bar.Stop()
			return ctx.Err()
		case evt, ok := <-events:
			if !ok {
				r.bar.Stop()
				r.logSummary()
				return nil
			}
			r.collector.Apply(evt)
			r.bar.Update(evt)
		}
	}
}

func (r *Reporter) logSummary() {
	summary := r.collector.Snapshot()
	attrs := append(summary.LogAttrs(), "duration", time.Since(r.started))
	if r.logger != nil {
		r.logger.Info("run summary", attrs...)
	}
}

func (r *Reporter) Summary() stats.Summary {
	return r.collector.Snapshot()
}
