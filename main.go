package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/kasherehauwa01-sudo/Parisngbot-nakladnaya/config"
	"github.com/kasherehauwa01-sudo/Parisngbot-nakladnaya/export"
	"github.com/kasherehauwa01-sudo/Parisngbot-nakladnaya/filter"
	"github.com/kasherehauwa01-sudo/Parisngbot-nakladnaya/imap"
	"github.com/kasherehauwa01-sudo/Parisngbot-nakladnaya/mbox"
	"github.com/kasherehauwa01-sudo/Parisngbot-nakladnaya/picker"
	"github.com/kasherehauwa01-sudo/Parisngbot-nakladnaya/progress"
	"github.com/kasherehauwa01-sudo/Parisngbot-nakladnaya/reconcile"
	"github.com/kasherehauwa01-sudo/Parisngbot-nakladnaya/runner"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "nakladnaya",
		Short: "Extract goods-receipt invoices from mailbox notifications into a spreadsheet report",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cmd)
			if err != nil {
				return err
			}

			logger, cleanup, err := setupLogger(cfg)
			if err != nil {
				return err
			}
			defer func() {
				_ = cleanup()
			}()

			slog.SetDefault(logger)
			logger.Info("starting nakladnaya", "sender", cfg.Sender,
				"since", cfg.Since.Format(config.DateLayout), "until", cfg.Until.Format(config.DateLayout))

			return run(cfg, logger)
		},
	}

	if err := config.RegisterFlags(rootCmd); err != nil {
		fmt.Fprintf(os.Stderr, "failed to register CLI flags: %v\n", err)
		os.Exit(1)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", userMessage(err))
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	f, err := filter.New(filter.Options{
		IncludeHeader: cfg.IncludeHeader,
		IncludeBody:   cfg.IncludeBody,
		ExcludeHeader: cfg.ExcludeHeader,
		ExcludeBody:   cfg.ExcludeBody,
	})
	if err != nil {
		return fmt.Errorf("filter.New: %w", err)
	}

	r := runner.New(logger)
	bar := progress.New(cfg.LogLevel)
	progress.NewReporter(r, bar, logger)

	if cfg.MboxPath != "" {
		opts := mbox.Options{
			Path:   cfg.MboxPath,
			Sender: cfg.Sender,
			Since:  cfg.Since,
			Until:  cfg.Until,
		}
		if _, err := mbox.NewReader(opts, f, r, logger); err != nil {
			return fmt.Errorf("mbox.NewReader: %w", err)
		}
	} else {
		opts := imap.Options{
			Host:               cfg.IMAPHost,
			Port:               cfg.IMAPPort,
			Username:           cfg.IMAPUser,
			Password:           cfg.IMAPPass,
			InsecureSkipVerify: cfg.InsecureSkipVerify,
			Mailbox:            cfg.Mailbox,
			Sender:             cfg.Sender,
			Since:              cfg.Since,
			Until:              cfg.Until,
		}
		if _, err := imap.NewFetcher(opts, f, r, logger); err != nil {
			return fmt.Errorf("imap.NewFetcher: %w", err)
		}
	}

	if err := r.Start(); err != nil {
		return err
	}

	records := r.Records()
	if len(records) == 0 {
		logger.Warn("no invoices found in the selected period")
		return nil
	}

	exclusions := reconcile.DefaultExclusions
	if len(cfg.ExcludeUsers) > 0 {
		exclusions = exclusions.With(cfg.ExcludeUsers...)
	}

	report := reconcile.BuildReport(records, exclusions)
	logger.Info("report built", "rows", len(report.Rows), "extracted", len(records))
	if len(report.Rows) == 0 {
		logger.Warn("every extracted invoice belongs to an excluded user")
		return nil
	}

	if cfg.DryRun {
		return picker.Table(report)
	}

	rows := report.Rows
	if !cfg.NoInput {
		rows, err = picker.Select(report)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			logger.Warn("no rows selected, nothing to export")
			return nil
		}
	}

	path := cfg.Output
	if path == "" {
		path = export.Filename(cfg.Since, cfg.Until)
	}
	if err := export.Write(rows, path); err != nil {
		return err
	}

	logger.Info("report written", "path", path, "rows", len(rows))
	return nil
}

// userMessage maps pipeline errors onto short operator-facing text; the
// full detail is already in the log.
func userMessage(err error) string {
	switch {
	case errors.Is(err, imap.ErrAuthentication):
		return "IMAP authentication failed. Check the login and password."
	case errors.Is(err, imap.ErrMailboxUnavailable), errors.Is(err, imap.ErrSearch):
		return "The IMAP server rejected the request. Check the server settings and the log."
	case errors.Is(err, imap.ErrConnection):
		return "Could not reach the IMAP server. Check the connection settings and the log."
	default:
		return err.Error()
	}
}

func setupLogger(cfg config.Config) (*slog.Logger, func() error, error) {
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)

	switch cfg.LogLevel {
	case "debug":
		level.Set(slog.LevelDebug)
	case "info":
		level.Set(slog.LevelInfo)
	case "warn":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	}

	opts := &slog.HandlerOptions{Level: level}
	cleanup := func() error { return nil }

	if cfg.LogDir != "" {
		if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
			return nil, cleanup, err
		}

		logFilePath := filepath.Join(cfg.LogDir, fmt.Sprintf("nakladnaya-%s.log", time.Now().Format("20060102T150405")))
		file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, cleanup, err
		}

		handler := slog.NewTextHandler(io.MultiWriter(os.Stdout, file), opts)
		cleanup = func() error {
			return file.Close()
		}
		return slog.New(handler), cleanup, nil
	}

	handler := slog.NewTextHandler(os.Stdout, opts)
	return slog.New(handler), cleanup, nil
}
