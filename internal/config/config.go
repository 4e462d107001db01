package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	TransportSocket = "socket"
	TransportSerial = "serial"
)

// Config represents the agent configuration
type Config struct {
	Log    LogConfig    `yaml:"log"`
	Broker BrokerConfig `yaml:"broker"`
	Hub    HubConfig    `yaml:"hub"`
	NATS   NATSConfig   `yaml:"nats"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console | json
}

// BrokerConfig is the STOMP broker the block runtime talks to
type BrokerConfig struct {
	URL           string `yaml:"url"`
	BlockTopic    string `yaml:"block_topic"`
	ResponseTopic string `yaml:"response_topic"`
	InfoTopic     string `yaml:"info_topic"`
	// WriteTimeout bounds every STOMP frame write, to the broker and to the hub.
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// HubConfig describes how the hub is reached
type HubConfig struct {
	Transport      string        `yaml:"transport"` // socket | serial
	URL            string        `yaml:"url"`
	CommandTopic   string        `yaml:"command_topic"`
	EventTopic     string        `yaml:"event_topic"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	Serial         SerialConfig  `yaml:"serial"`
}

// SerialConfig represents the serial bridge port
type SerialConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// NATSConfig represents the optional telemetry relay
type NATSConfig struct {
	URL               string        `yaml:"url"`
	Name              string        `yaml:"name"`
	SubjectPrefix     string        `yaml:"subject_prefix"`
	MaxReconnects     int           `yaml:"max_reconnects"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
}

// Load loads configuration from file
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration, then applies environment overrides
// and defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.applyEnvOverrides()
	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// LoadDotEnv loads environment variables from path. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// applyEnvOverrides applies environment variable overrides
func (c *Config) applyEnvOverrides() {
	if level := os.Getenv("WEDO_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}

	if url := os.Getenv("WEDO_BROKER_URL"); url != "" {
		c.Broker.URL = url
	}

	if url := os.Getenv("WEDO_HUB_URL"); url != "" {
		c.Hub.URL = url
	}

	if port := os.Getenv("WEDO_SERIAL_PORT"); port != "" {
		c.Hub.Serial.Port = port
		c.Hub.Transport = TransportSerial
	}

	if baud := os.Getenv("WEDO_SERIAL_BAUD"); baud != "" {
		if n, err := strconv.Atoi(baud); err == nil {
			c.Hub.Serial.Baud = n
		}
	}

	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		c.NATS.URL = natsURL
	}
}

func (c *Config) setDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}

	if c.Broker.URL == "" {
		c.Broker.URL = "http://localhost:8080/wedo-broker/agent-websocket"
	}
	if c.Broker.BlockTopic == "" {
		c.Broker.BlockTopic = "/topic/block"
	}
	if c.Broker.ResponseTopic == "" {
		c.Broker.ResponseTopic = "/topic/block-response"
	}
	if c.Broker.InfoTopic == "" {
		c.Broker.InfoTopic = "/topic/block-info"
	}
	if c.Broker.WriteTimeout == 0 {
		c.Broker.WriteTimeout = 5 * time.Second
	}

	if c.Hub.Transport == "" {
		c.Hub.Transport = TransportSocket
	}
	if c.Hub.URL == "" {
		c.Hub.URL = c.Broker.URL
	}
	if c.Hub.CommandTopic == "" {
		c.Hub.CommandTopic = "/topic/hub-command"
	}
	if c.Hub.EventTopic == "" {
		c.Hub.EventTopic = "/topic/hub-event"
	}
	if c.Hub.ConnectTimeout == 0 {
		c.Hub.ConnectTimeout = 10 * time.Second
	}
	if c.Hub.Serial.Baud == 0 {
		c.Hub.Serial.Baud = 9600
	}

	if c.NATS.Name == "" {
		c.NATS.Name = "wedo-agent"
	}
	if c.NATS.SubjectPrefix == "" {
		c.NATS.SubjectPrefix = "wedo"
	}
	if c.NATS.MaxReconnects == 0 {
		c.NATS.MaxReconnects = 10
	}
	if c.NATS.ReconnectInterval == 0 {
		c.NATS.ReconnectInterval = 2 * time.Second
	}
}

func (c *Config) validate() error {
	switch c.Hub.Transport {
	case TransportSocket:
	case TransportSerial:
		if c.Hub.Serial.Port == "" {
			return errors.New("serial transport needs hub.serial.port")
		}
	default:
		return fmt.Errorf("unknown hub transport: %s", c.Hub.Transport)
	}

	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log format: %s", c.Log.Format)
	}

	return nil
}
