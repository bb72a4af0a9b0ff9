package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
)

func newTestCmd(t *testing.T, args []string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "nakladnaya"}
	if err := RegisterFlags(cmd); err != nil {
		t.Fatalf("RegisterFlags: %v", err)
	}
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	return cmd
}

func TestLoadConfig(t *testing.T) {
	cmd := newTestCmd(t, []string{
		"--imap-host", "imap.example.com",
		"--imap-user", "office",
		"--imap-pass", "secret",
		"--since", "01.01.2024",
		"--until", "31.01.2024",
		"--exclude-user", "Тестовый",
	})

	cfg, err := LoadConfig(cmd)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.IMAPHost != "imap.example.com" || cfg.IMAPPort != 993 {
		t.Errorf("imap target = %s:%d, want imap.example.com:993", cfg.IMAPHost, cfg.IMAPPort)
	}
	if cfg.Sender != DefaultSender {
		t.Errorf("Sender = %q, want default %q", cfg.Sender, DefaultSender)
	}
	if want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC); !cfg.Since.Equal(want) {
		t.Errorf("Since = %v, want %v", cfg.Since, want)
	}
	if want := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC); !cfg.Until.Equal(want) {
		t.Errorf("Until = %v, want %v", cfg.Until, want)
	}
	if len(cfg.ExcludeUsers) != 1 || cfg.ExcludeUsers[0] != "Тестовый" {
		t.Errorf("ExcludeUsers = %v, want [Тестовый]", cfg.ExcludeUsers)
	}
	if cfg.Mailbox != "INBOX" {
		t.Errorf("Mailbox = %q, want INBOX", cfg.Mailbox)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
}

func TestLoadConfigMboxSkipsIMAPValidation(t *testing.T) {
	cmd := newTestCmd(t, []string{
		"--mbox", "archive.mbox",
		"--since", "01.01.2024",
		"--until", "31.01.2024",
	})

	cfg, err := LoadConfig(cmd)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.MboxPath != "archive.mbox" {
		t.Errorf("MboxPath = %q, want archive.mbox", cfg.MboxPath)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name: "until before since",
			args: []string{
				"--mbox", "a.mbox",
				"--since", "31.01.2024",
				"--until", "01.01.2024",
			},
			wantErr: "--until must not be before --since",
		},
		{
			name: "bad since format",
			args: []string{
				"--mbox", "a.mbox",
				"--since", "2024-01-01",
				"--until", "31.01.2024",
			},
			wantErr: "invalid --since",
		},
		{
			name: "bad port",
			args: []string{
				"--imap-host", "h", "--imap-user", "u", "--imap-pass", "p",
				"--imap-port", "70000",
				"--since", "01.01.2024",
				"--until", "31.01.2024",
			},
			wantErr: "--imap-port",
		},
		{
			name: "empty sender",
			args: []string{
				"--mbox", "a.mbox",
				"--sender", "",
				"--since", "01.01.2024",
				"--until", "31.01.2024",
			},
			wantErr: "--sender",
		},
		{
			name: "include and exclude filters together",
			args: []string{
				"--mbox", "a.mbox",
				"--include-body", "a",
				"--exclude-body", "b",
				"--since", "01.01.2024",
				"--until", "31.01.2024",
			},
			wantErr: "mutually exclusive",
		},
		{
			name: "bad log level",
			args: []string{
				"--mbox", "a.mbox",
				"--log-level", "loud",
				"--since", "01.01.2024",
				"--until", "31.01.2024",
			},
			wantErr: "--log-level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newTestCmd(t, tt.args)
			_, err := LoadConfig(cmd)
			if err == nil {
				t.Fatal("LoadConfig succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfigNormalizesWarningLevel(t *testing.T) {
	cmd := newTestCmd(t, []string{
		"--mbox", "a.mbox",
		"--log-level", "WARNING",
		"--since", "01.01.2024",
		"--until", "31.01.2024",
	})

	cfg, err := LoadConfig(cmd)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn", cfg.LogLevel)
	}
}
