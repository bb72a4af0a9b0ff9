package mbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/mail"
	"os"
	"strings"
	"time"

	mboxlib "github.com/emersion/go-mbox"

	"github.com/kasherehauwa01-sudo/Parisngbot-nakladnaya/filter"
	"github.com/kasherehauwa01-sudo/Parisngbot-nakladnaya/model"
	"github.com/kasherehauwa01-sudo/Parisngbot-nakladnaya/runner"
	"github.com/kasherehauwa01-sudo/Parisngbot-nakladnaya/stats"
)

type Options struct {
	Path   string
	Sender string
	// Since and Until bound the selection window; both days inclusive.
	Since time.Time
	Until time.Time
}

// Reader streams messages out of a local mbox archive, applying the
// same sender and date-window selection the IMAP server would have done
// server-side. Useful for reconciling exported mail without a live
// connection.
type Reader struct {
	opts   Options
	filter *filter.Filter
	runner *runner.Runner
	logger *slog.Logger
}

func NewReader(opts Options, f *filter.Filter, r *runner.Runner, logger *slog.Logger) (*Reader, error) {
	if strings.TrimSpace(opts.Path) == "" {
		return nil, fmt.Errorf("mbox path is empty")
	}
	if opts.Sender == "" {
		return nil, fmt.Errorf("sender address is empty")
	}

	reader := &Reader{
		opts:   opts,
		filter: f,
		runner: r,
		logger: logger,
	}
	r.AddStage("mbox", reader.run)
	return reader, nil
}

func (r *Reader) run(ctx context.Context) error {
	defer r.runner.CloseMessages()

	file, err := os.Open(r.opts.Path)
	if err != nil {
		return fmt.Errorf("open mbox: %w", err)
	}
	defer file.Close()

	mr := mboxlib.NewReader(file)

	for idx := 0; ; idx++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		msgReader, err := mr.NextMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("mbox message %d: %w", idx, err)
		}

		raw, err := io.ReadAll(msgReader)
		if err != nil {
			r.skip(idx, err)
			continue
		}

		ok, err := r.matches(raw)
		if err != nil {
			r.skip(idx, err)
			continue
		}
		if !ok {
			continue
		}

		if r.filter != nil {
			header, body := filter.SplitRawMessage(raw)
			if !r.filter.Allows(header, body) {
				continue
			}
		}

		msg := model.Message{UID: mboxUID(idx), Raw: raw, Size: int64(len(raw))}
		if err := r.emit(ctx, model.Envelope{Message: msg}); err != nil {
			return err
		}
	}
}

// matches applies the sender/window selection an IMAP SEARCH would have
// performed. Messages without a parseable From or Date header cannot be
// selected and are silently passed over.
func (r *Reader) matches(raw []byte) (bool, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return false, err
	}

	addr, err := mail.ParseAddress(msg.Header.Get("From"))
	if err != nil || !strings.EqualFold(addr.Address, r.opts.Sender) {
		return false, nil
	}

	date, err := mail.ParseDate(msg.Header.Get("Date"))
	if err != nil {
		return false, nil
	}

	upper := r.opts.Until.AddDate(0, 0, 1)
	return !date.Before(r.opts.Since) && date.Before(upper), nil
}

func (r *Reader) skip(idx int, err error) {
	if r.logger != nil {
		r.logger.Warn("mbox message unreadable, skipping", "index", idx, "err", err)
	}
	r.runner.EmitEvent(stats.Event{Stage: stats.StageSource, Type: stats.EventTypeSkipped, MessageID: mboxUID(idx), Err: err})
}

func (r *Reader) emit(ctx context.Context, env model.Envelope) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case r.runner.MessageWriter() <- env:
		return nil
	}
}

func mboxUID(idx int) string {
	return fmt.Sprintf("mbox-%d", idx)
}
