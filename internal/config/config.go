package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/orrn/ticket-spool/internal/core"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Printers PrintersConfig `yaml:"printers"`
	Ticket   TicketConfig   `yaml:"ticket"`
	Label    LabelConfig    `yaml:"label"`
	Webhooks WebhooksConfig `yaml:"webhooks"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	RateLimit      int           `yaml:"rate_limit"`
	MetricsEnabled bool          `yaml:"metrics_enabled"`
}

type DatabaseConfig struct {
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

type TargetConfig struct {
	Shares  []string `yaml:"shares"`
	Network []string `yaml:"network"`
}

type PrintersConfig struct {
	HelperCommand     []string      `yaml:"helper_command"`
	TempDir           string        `yaml:"temp_dir"`
	TransmitTimeout   time.Duration `yaml:"transmit_timeout"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
	SerializeTargets  bool          `yaml:"serialize_targets"`
	Ticket            TargetConfig  `yaml:"ticket"`
	APM               TargetConfig  `yaml:"apm"`
	Label             TargetConfig  `yaml:"label"`
}

type TicketConfig struct {
	FacilityName string `yaml:"facility_name"`
	ServiceTitle string `yaml:"service_title"`
	WaitingText  string `yaml:"waiting_text"`
	LineWidth    int    `yaml:"line_width"`
	Timezone     string `yaml:"timezone"`
}

type LabelConfig struct {
	Format        string `yaml:"format"`
	LayoutFile    string `yaml:"layout_file"`
	MaxRasterDots int    `yaml:"max_raster_dots"`
}

type WebhookTarget struct {
	URL    string   `yaml:"url"`
	Secret string   `yaml:"secret"`
	Events []string `yaml:"events"`
}

type WebhooksConfig struct {
	Targets     []WebhookTarget `yaml:"targets"`
	RetryCount  int             `yaml:"retry_count"`
	RetryDelay  time.Duration   `yaml:"retry_delay"`
	Timeout     time.Duration   `yaml:"timeout"`
	WorkerCount int             `yaml:"worker_count"`
	QueueSize   int             `yaml:"queue_size"`
}

// AuthConfig enables bearer-token checks on print endpoints when TokenSecret
// is set.
type AuthConfig struct {
	TokenSecret string `yaml:"token_secret"`
	Issuer      string `yaml:"issuer"`
	// KioskKeyHash is a bcrypt hash of the key kiosks trade for a token at
	// POST /auth/token.
	KioskKeyHash string        `yaml:"kiosk_key_hash"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           3007,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   15 * time.Minute,
			AllowedOrigins: []string{"*"},
			MetricsEnabled: true,
		},
		Database: DatabaseConfig{
			Path:          "./data/spool.db",
			RetentionDays: 30,
		},
		Printers: PrintersConfig{
			HelperCommand:     []string{"print.bat"},
			TransmitTimeout:   60 * time.Second,
			ConnectionTimeout: 10 * time.Second,
			SerializeTargets:  true,
			Ticket:            TargetConfig{Shares: []string{"SILENTPRINTER"}},
			APM:               TargetConfig{Shares: []string{"SILENTPRINTER"}},
			Label:             TargetConfig{Shares: []string{"BARCODEPRINTER", "BARCODEPRINTER2"}},
		},
		Ticket: TicketConfig{
			FacilityName: "RSUD dr. Soeratno Gemolong",
			ServiceTitle: "Anjungan Pendaftaran Mandiri",
			WaitingText:  "Silakan tunggu panggilan Anda.",
			LineWidth:    32,
			Timezone:     "Asia/Jakarta",
		},
		Label: LabelConfig{
			Format:        "zpl",
			MaxRasterDots: 440,
		},
		Webhooks: WebhooksConfig{
			RetryCount:  3,
			RetryDelay:  5 * time.Second,
			Timeout:     10 * time.Second,
			WorkerCount: 2,
			QueueSize:   100,
		},
		Auth: AuthConfig{
			Issuer:   "ticket-spool",
			TokenTTL: 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

func Load(configPath string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// LoadDotEnv reads an optional .env file into the process environment.
// Variables already set take precedence.
func LoadDotEnv(paths ...string) error {
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// ApplyEnv overrides file settings with SPOOL_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("SPOOL_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}

	if v := os.Getenv("SPOOL_DB_PATH"); v != "" {
		c.Database.Path = v
	}

	if v := os.Getenv("SPOOL_HELPER"); v != "" {
		c.Printers.HelperCommand = strings.Fields(v)
	}

	if v := os.Getenv("SPOOL_TEMP_DIR"); v != "" {
		c.Printers.TempDir = v
	}

	if v := os.Getenv("SPOOL_TICKET_SHARES"); v != "" {
		c.Printers.Ticket.Shares = splitList(v)
	}

	if v := os.Getenv("SPOOL_APM_SHARES"); v != "" {
		c.Printers.APM.Shares = splitList(v)
	}

	if v := os.Getenv("SPOOL_LABEL_SHARES"); v != "" {
		c.Printers.Label.Shares = splitList(v)
	}

	if v := os.Getenv("SPOOL_LABEL_FORMAT"); v != "" {
		c.Label.Format = strings.ToLower(v)
	}

	if v := os.Getenv("SPOOL_FACILITY_NAME"); v != "" {
		c.Ticket.FacilityName = v
	}

	if v := os.Getenv("SPOOL_TOKEN_SECRET"); v != "" {
		c.Auth.TokenSecret = v
	}

	if v := os.Getenv("SPOOL_KIOSK_KEY_HASH"); v != "" {
		c.Auth.KioskKeyHash = v
	}

	if v := os.Getenv("SPOOL_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 {
		return fmt.Errorf("server timeouts must be non-negative")
	}

	if c.Server.RateLimit < 0 {
		return fmt.Errorf("rate limit must be non-negative")
	}

	if c.Database.RetentionDays < 0 {
		return fmt.Errorf("retention days must be non-negative")
	}

	if len(c.Printers.HelperCommand) == 0 || c.Printers.HelperCommand[0] == "" {
		return fmt.Errorf("printer helper command is required")
	}

	if c.Printers.TransmitTimeout < 0 || c.Printers.ConnectionTimeout < 0 {
		return fmt.Errorf("printer timeouts must be non-negative")
	}

	if slowest := c.SlowestJob(); c.Server.WriteTimeout > 0 && c.Server.WriteTimeout < slowest {
		return fmt.Errorf("server write timeout %s is shorter than the slowest print job (%s)", c.Server.WriteTimeout, slowest)
	}

	for name, t := range map[string]TargetConfig{
		"ticket": c.Printers.Ticket,
		"apm":    c.Printers.APM,
		"label":  c.Printers.Label,
	} {
		if len(t.Shares) == 0 && len(t.Network) == 0 {
			return fmt.Errorf("printers.%s needs at least one share or network target", name)
		}
	}

	validFormats := map[string]bool{
		"zpl":    true,
		"tspl":   true,
		"escpos": true,
	}

	if !validFormats[c.Label.Format] {
		return fmt.Errorf("invalid label format: %s (valid: zpl, tspl, escpos)", c.Label.Format)
	}

	if c.Ticket.Timezone != "" {
		if _, err := time.LoadLocation(c.Ticket.Timezone); err != nil {
			return fmt.Errorf("invalid ticket timezone %q: %w", c.Ticket.Timezone, err)
		}
	}

	if c.Auth.KioskKeyHash != "" {
		if c.Auth.TokenSecret == "" {
			return fmt.Errorf("auth.kiosk_key_hash requires auth.token_secret")
		}
		if _, err := bcrypt.Cost([]byte(c.Auth.KioskKeyHash)); err != nil {
			return fmt.Errorf("invalid auth.kiosk_key_hash: %w", err)
		}
	}

	for i, w := range c.Webhooks.Targets {
		if w.URL == "" {
			return fmt.Errorf("webhook %d: url is required", i)
		}
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"json":  true,
		"text":  true,
		"plain": true,
	}

	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (valid: json, text, plain)", c.Logging.Format)
	}

	return nil
}

// SlowestJob bounds how long one print request can run at its default copy
// count when every copy times out on every target.
func (c *Config) SlowestJob() time.Duration {
	helperTimeout := c.Printers.TransmitTimeout
	if helperTimeout == 0 {
		helperTimeout = defaults().Printers.TransmitTimeout
	}
	connTimeout := c.Printers.ConnectionTimeout
	if connTimeout == 0 {
		connTimeout = defaults().Printers.ConnectionTimeout
	}

	var slowest time.Duration
	for kind, t := range map[core.JobKind]TargetConfig{
		core.JobKindTicket: c.Printers.Ticket,
		core.JobKindAPM:    c.Printers.APM,
		core.JobKindLabel:  c.Printers.Label,
	} {
		perCopy := time.Duration(len(t.Shares))*helperTimeout + time.Duration(len(t.Network))*connTimeout
		if d := time.Duration(kind.DefaultCopies()) * perCopy; d > slowest {
			slowest = d
		}
	}
	return slowest
}

// Location returns the ticket timezone, falling back to the host zone.
func (c *Config) Location() *time.Location {
	if c.Ticket.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Ticket.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
