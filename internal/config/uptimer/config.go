package uptimer_config

import (
	"time"

	"github.com/NordCoder/Uptimer/internal/obs"
	"github.com/NordCoder/Uptimer/internal/outbox"
	redisx "github.com/NordCoder/Uptimer/internal/repository/redis"
	"github.com/NordCoder/Uptimer/internal/repository/storage"
	"github.com/NordCoder/Uptimer/internal/services/api/middleware"
	"github.com/NordCoder/Uptimer/internal/services/monitor"
	"github.com/NordCoder/Uptimer/internal/services/notifier"
)

type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type Server struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	GRPCAddr        string        `mapstructure:"grpc_addr"`
	MetricsAddr     string        `mapstructure:"metrics_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
}

type OTEL struct {
	Enable       bool    `mapstructure:"enable"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

func (c *Config) AsOTELConfig() *obs.OTELConfig {
	return &obs.OTELConfig{
		Enable:      c.OTEL.Enable,
		Endpoint:    c.OTEL.OTLPEndpoint,
		ServiceName: c.OTEL.ServiceName,
		SampleRatio: c.OTEL.SampleRatio,
		Env:         c.App.Env,
		Version:     c.App.Version,
	}
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

func (c *Config) AsLoggerConfig() obs.LogConfig {
	return obs.LogConfig{
		Level:  c.Log.Level,
		Pretty: c.Log.Pretty,
		App:    c.App.Name,
		Env:    c.App.Env,
		Ver:    c.App.Version,
	}
}

const (
	SessionStore = "store"
	SessionRedis = "redis"
)

type Session struct {
	Driver    string        `mapstructure:"driver"`
	TTL       time.Duration `mapstructure:"ttl"`
	KeyPrefix string        `mapstructure:"key_prefix"`
}

const (
	AlertsOutbox = "outbox"
	AlertsKafka  = "kafka"
	AlertsDirect = "direct"
	AlertsLog    = "log"
)

type Alerts struct {
	Mode string `mapstructure:"mode"`
}

type Kafka struct {
	Brokers    []string `mapstructure:"brokers"`
	Topic      string   `mapstructure:"topic"`
	Partitions int      `mapstructure:"partitions"`
}

type Config struct {
	App       App                        `mapstructure:"app"`
	Server    Server                     `mapstructure:"server"`
	Storage   storage.Config             `mapstructure:"storage"`
	Session   Session                    `mapstructure:"session"`
	Redis     redisx.Config              `mapstructure:"redis"`
	Monitor   monitor.Config             `mapstructure:"monitor"`
	Probe     monitor.ProbeConfig        `mapstructure:"probe"`
	Alerts    Alerts                     `mapstructure:"alerts"`
	Kafka     Kafka                      `mapstructure:"kafka"`
	Outbox    outbox.Config              `mapstructure:"outbox"`
	RateLimit middleware.RateLimitConfig `mapstructure:"rate_limit"`
	Twilio    notifier.TwilioConfig      `mapstructure:"twilio"`
	SMTP      notifier.SMTPConfig        `mapstructure:"smtp"`
	OTEL      OTEL                       `mapstructure:"otel"`
	Log       Log                        `mapstructure:"log"`
}

type ErrConfig string

func (e ErrConfig) Error() string { return string(e) }

// Validate rejects combinations the binary cannot start with.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case storage.DriverPostgres, storage.DriverSQLite, storage.DriverFile, storage.DriverMemory:
	default:
		return ErrConfig("storage.driver must be one of postgres, sqlite, file, memory")
	}
	if c.Storage.Driver == storage.DriverPostgres && c.Storage.Postgres.DSN == "" {
		return ErrConfig("storage.postgres.dsn is required")
	}

	switch c.Alerts.Mode {
	case AlertsOutbox:
		if c.Storage.Driver != storage.DriverPostgres {
			return ErrConfig("alerts.mode=outbox requires storage.driver=postgres")
		}
		fallthrough
	case AlertsKafka:
		if len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "" {
			return ErrConfig("kafka.brokers and kafka.topic are required for alerts.mode=" + c.Alerts.Mode)
		}
	case AlertsDirect, AlertsLog:
	default:
		return ErrConfig("alerts.mode must be one of outbox, kafka, direct, log")
	}

	switch c.Session.Driver {
	case SessionStore, SessionRedis:
	default:
		return ErrConfig("session.driver must be store or redis")
	}
	needRedis := c.Session.Driver == SessionRedis || c.Monitor.Lease.Enable
	if needRedis && c.Redis.Addr == "" {
		return ErrConfig("redis.addr is required for redis sessions or the scheduler lease")
	}
	if c.Monitor.Interval <= 0 || c.Monitor.Tick <= 0 {
		return ErrConfig("monitor.interval and monitor.tick must be positive")
	}
	return nil
}
