package stats

import (
	"context"
	"sync"
)

type Stage string

const (
	StageSource  Stage = "source"
	StageExtract Stage = "extract"
)

type EventType string

const (
	// EventTypeFound carries the number of messages matched by the
	// mailbox search in Count.
	EventTypeFound EventType = "found"
	// EventTypeScanned marks one decoded message; Count holds how many
	// records its text yielded.
	EventTypeScanned   EventType = "scanned"
	EventTypeExtracted EventType = "extracted"
	EventTypeDuplicate EventType = "duplicate"
	// EventTypeSkipped marks a message that could not be fetched or
	// read. Skips never abort the run.
	EventTypeSkipped EventType = "skipped"
	EventTypeError   EventType = "error"
)

type Event struct {
	Stage     Stage
	Type      EventType
	MessageID string
	Count     int
	Err       error
}

type Summary struct {
	Found      int
	Scanned    int
	Extracted  int
	Duplicates int
	Skipped    int
	Errors     int
	LastError  error
}

func (s Summary) LogAttrs() []any {
	attrs := []any{
		"found", s.Found,
		"scanned", s.Scanned,
		"extracted", s.Extracted,
		"duplicates", s.Duplicates,
		"skipped", s.Skipped,
		"errors", s.Errors,
	}
	if s.LastError != nil {
		attrs = append(attrs, "lastError", s.LastError.Error())
	}
	return attrs
}

type Collector struct {
	mu      sync.Mutex
	summary Summary
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Apply(evt Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch evt.Type {
	case EventTypeFound:
		c.summary.Found += evt.Count
	case EventTypeScanned:
		c.summary.Scanned++
	case EventTypeExtracted:
		c.summary.Extracted++
	case EventTypeDuplicate:
		c.summary.Duplicates++
	case EventTypeSkipped:
		c.summary.Skipped++
	case EventTypeError:
		c.summary.Errors++
		if evt.Err != nil {
			c.summary.LastError = evt.Err
		}
	}
}

func (c *Collector) Snapshot() Summary {
	c.mu.Lock()
	summary := c.summary
	c.mu.Unlock()
	return summary
}

// EventStream is the subscription side of the runner's event bus.
type EventStream interface {
	SubscribeStats(name string, fn func(context.Context, <-chan Event) error)
}
