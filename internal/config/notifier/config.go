package notifier_config

import (
	"github.com/NordCoder/Uptimer/internal/obs"
	"github.com/NordCoder/Uptimer/internal/repository/storage"
	"github.com/NordCoder/Uptimer/internal/services/notifier"
)

type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type KafkaIn struct {
	Brokers       []string `mapstructure:"brokers"`
	Topic         string   `mapstructure:"topic"`
	GroupID       string   `mapstructure:"group_id"`
	FromBeginning bool     `mapstructure:"from_beginning"`
	Partitions    int      `mapstructure:"partitions"`
}

type Server struct {
	MetricsAddr string `mapstructure:"metrics_addr"`
}

type OTEL struct {
	Enable       bool    `mapstructure:"enable"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// Config is the alert-notifier binary: it consumes alerts from Kafka and delivers them.
// Storage holds the delivered-notification log used for redelivery dedup.
type Config struct {
	App     App                   `mapstructure:"app"`
	Storage storage.Config        `mapstructure:"storage"`
	In      KafkaIn               `mapstructure:"kafka_in"`
	SMTP    notifier.SMTPConfig   `mapstructure:"smtp"`
	Twilio  notifier.TwilioConfig `mapstructure:"twilio"`
	Server  Server                `mapstructure:"server"`
	OTEL    OTEL                  `mapstructure:"otel"`
	Log     Log                   `mapstructure:"log"`
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

func (c *Config) AsLoggerConfig() obs.LogConfig {
	return obs.LogConfig{
		Level:  c.Log.Level,
		Pretty: c.Log.Pretty,
		App:    c.App.Name,
		Env:    c.App.Env,
		Ver:    c.App.Version,
	}
}
