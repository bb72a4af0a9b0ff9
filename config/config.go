package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// DateLayout is the search-window format accepted on the command line.
const DateLayout = "02.01.2006"

// DefaultSender is the robot address the receipt notifications come from.
const DefaultSender = "robot_volgorost@volgorost.ru"

// Config captures everything one run needs.
type Config struct {
	IMAPHost           string
	IMAPPort           int
	IMAPUser           string
	IMAPPass           string
	InsecureSkipVerify bool
	Mailbox            string

	// MboxPath switches the source to a local archive; IMAP settings
	// are then not required.
	MboxPath string

	Sender string
	Since  time.Time
	Until  time.Time

	Output  string
	DryRun  bool
	NoInput bool

	ExcludeUsers []string

	IncludeHeader []string
	IncludeBody   []string
	ExcludeHeader []string
	ExcludeBody   []string

	LogLevel string
	LogDir   string
}

// RegisterFlags attaches all CLI flags to the provided command.
func RegisterFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	flags.String("imap-host", "", "IMAP server hostname (falls back to the config file)")
	flags.Int("imap-port", 993, "IMAP server port")
	flags.String("imap-user", "", "IMAP username (falls back to the config file)")
	flags.String("imap-pass", "", "IMAP password (prefer the config file or NAKLADNAYA_IMAP_PASS)")
	flags.Bool("insecure-skip-verify", false, "Skip TLS certificate verification (not recommended)")
	flags.String("imap-mailbox", "INBOX", "Mailbox folder to search")
	flags.String("mbox", "", "Read a local mbox archive instead of connecting to IMAP")
	flags.String("sender", DefaultSender, "Sender address the notifications come from")
	flags.String("since", "", "First day of the search window, dd.mm.yyyy")
	flags.String("until", "", "Last day of the search window, dd.mm.yyyy, inclusive")
	flags.StringP("output", "o", "", "Report file path (default nakladnye_<since>-<until>.xlsx)")
	flags.Bool("dry-run", false, "Print the report instead of writing the spreadsheet")
	flags.Bool("no-input", false, "Skip the interactive row selection and export every row")
	flags.StringArray("exclude-user", nil, "Additional user names to exclude from the report")
	flags.StringArray("include-header", nil, "Regex allow-list applied to raw message headers (mutually exclusive with exclude flags)")
	flags.StringArray("include-body", nil, "Regex allow-list applied to raw message bodies (mutually exclusive with exclude flags)")
	flags.StringArray("exclude-header", nil, "Regex block-list applied to raw message headers (mutually exclusive with include flags)")
	flags.StringArray("exclude-body", nil, "Regex block-list applied to raw message bodies (mutually exclusive with include flags)")
	flags.String("log-level", "info", "Logging level: debug, info, warn, error")
	flags.String("log-dir", "", "Directory for run log files")

	if err := cmd.MarkFlagRequired("since"); err != nil {
		return err
	}
	if err := cmd.MarkFlagRequired("until"); err != nil {
		return err
	}

	return nil
}

// LoadConfig converts the parsed Cobra flags into a Config struct,
// filling missing mailbox credentials from the secrets file and
// environment, with validation.
func LoadConfig(cmd *cobra.Command) (Config, error) {
	flags := cmd.Flags()

	imapHost, err := flags.GetString("imap-host")
	if err != nil {
		return Config{}, err
	}
	imapPort, err := flags.GetInt("imap-port")
	if err != nil {
		return Config{}, err
	}
	imapUser, err := flags.GetString("imap-user")
	if err != nil {
		return Config{}, err
	}
	imapPass, err := flags.GetString("imap-pass")
	if err != nil {
		return Config{}, err
	}
	insecureSkipVerify, err := flags.GetBool("insecure-skip-verify")
	if err != nil {
		return Config{}, err
	}
	mailbox, err := flags.GetString("imap-mailbox")
	if err != nil {
		return Config{}, err
	}
	mboxPath, err := flags.GetString("mbox")
	if err != nil {
		return Config{}, err
	}
	sender, err := flags.GetString("sender")
	if err != nil {
		return Config{}, err
	}
	sinceStr, err := flags.GetString("since")
	if err != nil {
		return Config{}, err
	}
	untilStr, err := flags.GetString("until")
	if err != nil {
		return Config{}, err
	}
	output, err := flags.GetString("output")
	if err != nil {
		return Config{}, err
	}
	dryRun, err := flags.GetBool("dry-run")
	if err != nil {
		return Config{}, err
	}
	noInput, err := flags.GetBool("no-input")
	if err != nil {
		return Config{}, err
	}
	excludeUsers, err := flags.GetStringArray("exclude-user")
	if err != nil {
		return Config{}, err
	}
	includeHeader, err := flags.GetStringArray("include-header")
	if err != nil {
		return Config{}, err
	}
	includeBody, err := flags.GetStringArray("include-body")
	if err != nil {
		return Config{}, err
	}
	excludeHeader, err := flags.GetStringArray("exclude-header")
	if err != nil {
		return Config{}, err
	}
	excludeBody, err := flags.GetStringArray("exclude-body")
	if err != nil {
		return Config{}, err
	}
	logLevel, err := flags.GetString("log-level")
	if err != nil {
		return Config{}, err
	}
	logDir, err := flags.GetString("log-dir")
	if err != nil {
		return Config{}, err
	}

	secrets := loadSecrets()
	if imapHost == "" {
		imapHost = secrets.GetString("imap.host")
	}
	if !flags.Changed("imap-port") && secrets.IsSet("imap.port") {
		imapPort = secrets.GetInt("imap.port")
	}
	if imapUser == "" {
		imapUser = secrets.GetString("imap.user")
	}
	if imapPass == "" {
		imapPass = secrets.GetString("imap.pass")
	}
	if len(excludeUsers) == 0 {
		excludeUsers = secrets.GetStringSlice("excluded_users")
	}

	since, err := time.Parse(DateLayout, sinceStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid --since %q: expected dd.mm.yyyy", sinceStr)
	}
	until, err := time.Parse(DateLayout, untilStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid --until %q: expected dd.mm.yyyy", untilStr)
	}

	logLevel = strings.ToLower(logLevel)
	if logLevel == "warning" {
		logLevel = "warn"
	}

	cfg := Config{
		IMAPHost:           imapHost,
		IMAPPort:           imapPort,
		IMAPUser:           imapUser,
		IMAPPass:           imapPass,
		InsecureSkipVerify: insecureSkipVerify,
		Mailbox:            mailbox,
		MboxPath:           mboxPath,
		Sender:             sender,
		Since:              since,
		Until:              until,
		Output:             output,
		DryRun:             dryRun,
		NoInput:            noInput,
		ExcludeUsers:       excludeUsers,
		IncludeHeader:      includeHeader,
		IncludeBody:        includeBody,
		ExcludeHeader:      excludeHeader,
		ExcludeBody:        excludeBody,
		LogLevel:           logLevel,
		LogDir:             logDir,
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// loadSecrets reads the optional config file plus NAKLADNAYA_*
// environment variables, used as the fallback for mailbox credentials
// so they never have to appear on the command line.
func loadSecrets() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("nakladnaya")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".nakladnaya"))
	}
	v.AddConfigPath(".")
	// The file is optional; environment variables still apply.
	_ = v.ReadInConfig()

	return v
}

func validateConfig(cfg Config) error {
	if cfg.MboxPath == "" {
		if cfg.IMAPHost == "" {
			return fmt.Errorf("IMAP host missing: set --imap-host, imap.host in the config file or NAKLADNAYA_IMAP_HOST")
		}
		if cfg.IMAPUser == "" {
			return fmt.Errorf("IMAP user missing: set --imap-user, imap.user in the config file or NAKLADNAYA_IMAP_USER")
		}
		if cfg.IMAPPass == "" {
			return fmt.Errorf("IMAP password missing: set imap.pass in the config file or NAKLADNAYA_IMAP_PASS")
		}
		if cfg.IMAPPort <= 0 || cfg.IMAPPort > 65535 {
			return fmt.Errorf("--imap-port must be between 1 and 65535")
		}
	}
	if cfg.Sender == "" {
		return fmt.Errorf("--sender must not be empty")
	}
	if cfg.Until.Before(cfg.Since) {
		return fmt.Errorf("--until must not be before --since")
	}

	includeActive := len(cfg.IncludeHeader) > 0 || len(cfg.IncludeBody) > 0
	excludeActive := len(cfg.ExcludeHeader) > 0 || len(cfg.ExcludeBody) > 0
	if includeActive && excludeActive {
		return fmt.Errorf("include and exclude flags are mutually exclusive")
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid --log-level: %s", cfg.LogLevel)
	}

	return nil
}
