package uptimer_config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.Server.HTTPAddr)
	assert.Equal(t, "file", cfg.Storage.Driver)
	assert.Equal(t, time.Minute, cfg.Monitor.Interval)
	assert.Equal(t, time.Second, cfg.Monitor.Tick)
	assert.Equal(t, AlertsLog, cfg.Alerts.Mode)
	assert.Equal(t, SessionStore, cfg.Session.Driver)
	assert.Equal(t, time.Hour, cfg.Session.TTL)
	assert.Equal(t, "uptimer.alerts", cfg.Kafka.Topic)
	assert.InDelta(t, 10.0, cfg.RateLimit.RPS, 0.001)
	assert.Equal(t, "uptimer", cfg.AsLoggerConfig().App)
}

func TestLoad_EnvAndFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "uptimer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("monitor:\n  interval: 30s\nalerts:\n  mode: direct\n"), 0o600))

	t.Setenv("STORAGE_DRIVER", "Memory")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Monitor.Interval)
	assert.Equal(t, AlertsDirect, cfg.Alerts.Mode)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		c := Config{}
		c.Storage.Driver = "file"
		c.Alerts.Mode = AlertsLog
		c.Session.Driver = SessionStore
		c.Monitor.Interval = time.Minute
		c.Monitor.Tick = time.Second
		return c
	}
	ok := base()
	require.NoError(t, ok.Validate())

	cases := map[string]func(c *Config){
		"unknown driver":     func(c *Config) { c.Storage.Driver = "mongo" },
		"outbox without pg":  func(c *Config) { c.Alerts.Mode = AlertsOutbox },
		"kafka w/o brokers":  func(c *Config) { c.Alerts.Mode = AlertsKafka },
		"redis session":      func(c *Config) { c.Session.Driver = SessionRedis },
		"lease without addr": func(c *Config) { c.Monitor.Lease.Enable = true },
		"zero interval":      func(c *Config) { c.Monitor.Interval = 0 },
		"unknown alert mode": func(c *Config) { c.Alerts.Mode = "pager" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base()
			mutate(&c)
			var ce ErrConfig
			require.ErrorAs(t, c.Validate(), &ce)
		})
	}
}
