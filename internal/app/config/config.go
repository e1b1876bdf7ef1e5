package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vaibhavipatil169-max/ir-ocv-recorder/internal/adapters/ads1115"
	"github.com/vaibhavipatil169-max/ir-ocv-recorder/internal/adapters/opcuasrc"
	"github.com/vaibhavipatil169-max/ir-ocv-recorder/internal/adapters/serialsrc"
	"github.com/vaibhavipatil169-max/ir-ocv-recorder/internal/adapters/simsource"
	"github.com/vaibhavipatil169-max/ir-ocv-recorder/internal/domain"
)

type Config struct {
	Session  SessionConfig  `yaml:"session"`
	Sampling SamplingConfig `yaml:"sampling"`
	Log      LogConfig      `yaml:"log"`
	Source   SourceConfig   `yaml:"source"`
	Reporter ReporterConfig `yaml:"reporter"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// SessionConfig labels one logging run. It is carried through reporters
// and the startup log but never into the CSV schema.
type SessionConfig struct {
	PackName string `yaml:"pack_name"`
	PackCode string `yaml:"pack_code"`
}

type SamplingConfig struct {
	Interval   time.Duration `yaml:"interval"`
	RetryLimit int           `yaml:"retry_limit"`
	Bounds     domain.Bounds `yaml:"bounds"`
}

type LogConfig struct {
	Path string `yaml:"path"`
}

type SourceConfig struct {
	Kind    string           `yaml:"kind"` // serial, opcua, ads1115, sim
	Serial  serialsrc.Config `yaml:"serial"`
	OPCUA   opcuasrc.Config  `yaml:"opcua"`
	ADS1115 ads1115.Config   `yaml:"ads1115"`
	Sim     simsource.Config `yaml:"sim"`
}

type ReporterConfig struct {
	Console bool       `yaml:"console"`
	MQTT    MQTTConfig `yaml:"mqtt"`
}

type MQTTConfig struct {
	Server   string `yaml:"server"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
}

// ArchiveConfig enables the optional PostgreSQL mirror when ConnString is
// set. The CSV log stays the log of record either way.
type ArchiveConfig struct {
	ConnString string `yaml:"conn_string"`
	Table      string `yaml:"table"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) ApplyDefaults() {
	if c.Sampling.Interval == 0 {
		c.Sampling.Interval = time.Second
	}
	if c.Sampling.RetryLimit == 0 {
		c.Sampling.RetryLimit = 3
	}
	if c.Sampling.Bounds == (domain.Bounds{}) {
		c.Sampling.Bounds = domain.Bounds{
			IRMinOhm: 0,
			IRMaxOhm: 500,
			OCVMinV:  0,
			OCVMaxV:  6,
		}
	}
	if c.Log.Path == "" {
		c.Log.Path = "./data/ir_ocv.csv"
	}
	if c.Source.Kind == "" {
		c.Source.Kind = "serial"
	}
	if c.Reporter.MQTT.Server != "" {
		if c.Reporter.MQTT.ClientID == "" {
			c.Reporter.MQTT.ClientID = "ir-ocv-recorder"
		}
		if c.Reporter.MQTT.Topic == "" {
			c.Reporter.MQTT.Topic = "irocv/samples"
		}
	}
	if c.Archive.ConnString != "" && c.Archive.Table == "" {
		c.Archive.Table = "ir_ocv_samples"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}

	c.Source.Serial.ApplyDefaults()
	c.Source.OPCUA.ApplyDefaults()
	c.Source.ADS1115.ApplyDefaults()
	c.Source.Sim.ApplyDefaults()
}

func (c *Config) Validate() error {
	if c.Sampling.Interval <= 0 {
		return fmt.Errorf("sampling.interval must be > 0")
	}
	if c.Sampling.RetryLimit <= 0 {
		return fmt.Errorf("sampling.retry_limit must be > 0")
	}
	b := c.Sampling.Bounds
	if b.IRMaxOhm <= b.IRMinOhm {
		return fmt.Errorf("sampling.bounds: ir_max_ohm must be > ir_min_ohm")
	}
	if b.OCVMaxV <= b.OCVMinV {
		return fmt.Errorf("sampling.bounds: ocv_max_v must be > ocv_min_v")
	}
	if c.Log.Path == "" {
		return fmt.Errorf("log.path is required")
	}

	switch c.Source.Kind {
	case "serial":
		if err := c.Source.Serial.Validate(); err != nil {
			return fmt.Errorf("source.serial: %w", err)
		}
	case "opcua":
		if err := c.Source.OPCUA.Validate(); err != nil {
			return fmt.Errorf("source.opcua: %w", err)
		}
	case "ads1115":
		if err := c.Source.ADS1115.Validate(); err != nil {
			return fmt.Errorf("source.ads1115: %w", err)
		}
	case "sim":
	default:
		return fmt.Errorf("source.kind %q is not one of serial, opcua, ads1115, sim", c.Source.Kind)
	}

	return nil
}
