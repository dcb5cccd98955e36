package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 3007, cfg.Server.Port)
	assert.Equal(t, []string{"SILENTPRINTER"}, cfg.Printers.Ticket.Shares)
	assert.Equal(t, []string{"BARCODEPRINTER", "BARCODEPRINTER2"}, cfg.Printers.Label.Shares)
	assert.Equal(t, "zpl", cfg.Label.Format)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 8080
printers:
  transmit_timeout: 30s
  label:
    shares: [ZEBRA]
    network: ["tcp://10.0.0.5:9100"]
label:
  format: tspl
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Printers.TransmitTimeout)
	assert.Equal(t, []string{"ZEBRA"}, cfg.Printers.Label.Shares)
	assert.Equal(t, []string{"tcp://10.0.0.5:9100"}, cfg.Printers.Label.Network)
	assert.Equal(t, []string{"SILENTPRINTER"}, cfg.Printers.Ticket.Shares)
	assert.Equal(t, "tspl", cfg.Label.Format)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("SPOOL_PORT", "9000")
	t.Setenv("SPOOL_LABEL_SHARES", "ZEBRA1, ZEBRA2 ,")
	t.Setenv("SPOOL_HELPER", "cmd /c print.bat")
	t.Setenv("SPOOL_LABEL_FORMAT", "ESCPOS")

	cfg := defaults()
	cfg.ApplyEnv()

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, []string{"ZEBRA1", "ZEBRA2"}, cfg.Printers.Label.Shares)
	assert.Equal(t, []string{"cmd", "/c", "print.bat"}, cfg.Printers.HelperCommand)
	assert.Equal(t, "escpos", cfg.Label.Format)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SPOOL_TEST_DOTENV=loaded\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("SPOOL_TEST_DOTENV") })

	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env"), path))
	assert.Equal(t, "loaded", os.Getenv("SPOOL_TEST_DOTENV"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"no helper", func(c *Config) { c.Printers.HelperCommand = nil }},
		{"no label targets", func(c *Config) { c.Printers.Label = TargetConfig{} }},
		{"bad label format", func(c *Config) { c.Label.Format = "pdf" }},
		{"bad timezone", func(c *Config) { c.Ticket.Timezone = "Mars/Olympus" }},
		{"webhook without url", func(c *Config) { c.Webhooks.Targets = []WebhookTarget{{Secret: "x"}} }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"negative retention", func(c *Config) { c.Database.RetentionDays = -1 }},
		{"write timeout shorter than slowest job", func(c *Config) { c.Server.WriteTimeout = 5 * time.Minute }},
		{"kiosk key without secret", func(c *Config) { c.Auth.KioskKeyHash = "$2a$10$abcdefghijklmnopqrstuv" }},
		{"kiosk key not bcrypt", func(c *Config) {
			c.Auth.TokenSecret = "s"
			c.Auth.KioskKeyHash = "plaintext"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSlowestJob(t *testing.T) {
	cfg := defaults()
	// six label copies across two shares at the 60s helper timeout
	assert.Equal(t, 12*time.Minute, cfg.SlowestJob())

	cfg.Printers.Label.Network = []string{"tcp://10.0.0.5:9100"}
	assert.Equal(t, 13*time.Minute, cfg.SlowestJob())

	cfg.Server.WriteTimeout = 0
	cfg.Printers.Label.Network = append(cfg.Printers.Label.Network, "tcp://10.0.0.6", "tcp://10.0.0.7", "tcp://10.0.0.8")
	assert.NoError(t, cfg.Validate())
}

func TestLocation(t *testing.T) {
	cfg := defaults()
	cfg.Ticket.Timezone = "UTC"
	assert.Equal(t, "UTC", cfg.Location().String())

	cfg.Ticket.Timezone = ""
	assert.Equal(t, time.Local, cfg.Location())
}
