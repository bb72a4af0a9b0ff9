package imap

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	imapv2 "github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/kasherehauwa01-sudo/Parisngbot-nakladnaya/filter"
	"github.com/kasherehauwa01-sudo/Parisngbot-nakladnaya/model"
	"github.com/kasherehauwa01-sudo/Parisngbot-nakladnaya/runner"
	"github.com/kasherehauwa01-sudo/Parisngbot-nakladnaya/stats"
)

// Error kinds surfaced to the CLI boundary. Everything the server can
// reject maps onto exactly one of these; raw protocol errors never
// cross the package boundary unclassified.
var (
	ErrAuthentication     = errors.New("imap authentication rejected")
	ErrMailboxUnavailable = errors.New("imap mailbox unavailable")
	ErrSearch             = errors.New("imap search rejected")
	ErrConnection         = errors.New("imap connection failed")
)

type Options struct {
	Host               string
	Port               int
	Username           string
	Password           string
	InsecureSkipVerify bool
	Mailbox            string
	Sender             string
	// Since and Until bound the search window; both days inclusive.
	Since time.Time
	Until time.Time
}

// Fetcher is the mailbox source: one TLS session per run, a server-side
// search, then a strictly sequential fetch loop feeding the pipeline.
type Fetcher struct {
	opts   Options
	filter *filter.Filter
	runner *runner.Runner
	logger *slog.Logger
}

func NewFetcher(opts Options, f *filter.Filter, r *runner.Runner, logger *slog.Logger) (*Fetcher, error) {
	if opts.Host == "" {
		return nil, fmt.Errorf("imap host is empty")
	}
	if opts.Port <= 0 {
		return nil, fmt.Errorf("imap port must be positive")
	}
	if opts.Sender == "" {
		return nil, fmt.Errorf("sender address is empty")
	}

	fetcher := &Fetcher{
		opts:   opts,
		filter: f,
		runner: r,
		logger: logger,
	}
	r.AddStage("imap", fetcher.run)
	return fetcher, nil
}

func (f *Fetcher) run(ctx context.Context) error {
	defer f.runner.CloseMessages()

	client, cleanup, err := f.dial(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if _, err := client.Select(f.mailbox(), nil).Wait(); err != nil {
		return fmt.Errorf("%w: select %s: %v", ErrMailboxUnavailable, f.mailbox(), err)
	}

	criteria := SearchCriteria(f.opts.Sender, f.opts.Since, f.opts.Until)
	data, err := client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSearch, err)
	}

	uids := data.AllUIDs()
	if f.logger != nil {
		f.logger.Info("messages found", "count", len(uids), "sender", f.opts.Sender)
	}
	f.runner.EmitEvent(stats.Event{Stage: stats.StageSource, Type: stats.EventTypeFound, Count: len(uids)})

	for _, uid := range uids {
		if err := ctx.Err(); err != nil {
			return err
		}

		raw, err := f.fetchOne(client, uid)
		if err != nil || len(raw) == 0 {
			if f.logger != nil {
				f.logger.Warn("message fetch failed, skipping", "uid", uint32(uid), "err", err)
			}
			f.runner.EmitEvent(stats.Event{Stage: stats.StageSource, Type: stats.EventTypeSkipped, MessageID: uidString(uid), Err: err})
			continue
		}

		if f.filter != nil {
			header, body := filter.SplitRawMessage(raw)
			if !f.filter.Allows(header, body) {
				continue
			}
		}

		msg := model.Message{UID: uidString(uid), Raw: raw, Size: int64(len(raw))}
		if err := f.emit(ctx, model.Envelope{Message: msg}); err != nil {
			return err
		}
	}

	return nil
}

func (f *Fetcher) dial(ctx context.Context) (*imapclient.Client, func(), error) {
	address := net.JoinHostPort(f.opts.Host, strconv.Itoa(f.opts.Port))
	options := &imapclient.Options{
		TLSConfig: &tls.Config{
			ServerName:         f.opts.Host,
			InsecureSkipVerify: f.opts.InsecureSkipVerify,
		},
	}

	if f.logger != nil {
		f.logger.Info("connecting to imap", "address", address, "user", f.opts.Username)
	}

	client, err := imapclient.DialTLS(address, options)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: dial %s: %v", ErrConnection, address, err)
	}

	if err := client.Login(f.opts.Username, f.opts.Password).Wait(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	if f.logger != nil {
		f.logger.Info("imap authentication succeeded", "user", f.opts.Username)
	}

	stopClose := context.AfterFunc(ctx, func() {
		_ = client.Close()
	})

	// The session must be released on every exit path so server-side
	// connection slots are not leaked.
	cleanup := func() {
		stopClose()
		if ctx.Err() == nil {
			if err := client.Logout().Wait(); err != nil && f.logger != nil {
				f.logger.Warn("imap logout failed", "err", err)
			}
		}
		if err := client.Close(); err != nil && f.logger != nil {
			f.logger.Debug("imap connection closed", "err", err)
		}
	}

	return client, cleanup, nil
}

func (f *Fetcher) fetchOne(client *imapclient.Client, uid imapv2.UID) ([]byte, error) {
	bodySection := &imapv2.FetchItemBodySection{Peek: true}
	fetchCmd := client.Fetch(imapv2.UIDSetNum(uid), &imapv2.FetchOptions{
		UID:         true,
		BodySection: []*imapv2.FetchItemBodySection{bodySection},
	})

	msg := fetchCmd.Next()
	if msg == nil {
		_ = fetchCmd.Close()
		return nil, fmt.Errorf("uid %d: no fetch response", uint32(uid))
	}

	buf, err := msg.Collect()
	if err != nil {
		_ = fetchCmd.Close()
		return nil, fmt.Errorf("uid %d: collect: %w", uint32(uid), err)
	}

	if err := fetchCmd.Close(); err != nil {
		return nil, fmt.Errorf("uid %d: fetch close: %w", uint32(uid), err)
	}

	return buf.FindBodySection(bodySection), nil
}

func (f *Fetcher) emit(ctx context.Context, env model.Envelope) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case f.runner.MessageWriter() <- env:
		return nil
	}
}

func (f *Fetcher) mailbox() string {
	if f.opts.Mailbox == "" {
		return "INBOX"
	}
	return f.opts.Mailbox
}

// SearchCriteria selects messages from sender whose date falls inside
// [since, until]. The BEFORE bound is the day after until so the whole
// last day is included regardless of message time-of-day.
func SearchCriteria(sender string, since, until time.Time) *imapv2.SearchCriteria {
	return &imapv2.SearchCriteria{
		Header: []imapv2.SearchCriteriaHeaderField{{Key: "From", Value: sender}},
		Since:  since,
		Before: until.AddDate(0, 0, 1),
	}
}

func uidString(uid imapv2.UID) string {
	return strconv.FormatUint(uint64(uid), 10)
}
