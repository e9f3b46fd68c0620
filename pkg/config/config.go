// Package config gathers the deserializer options from defaults,
// environment variables, a YAML file and command line flags.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/golang/glog"
	"gopkg.in/yaml.v3"

	"github.com/robotalks/uart2json/pkg/env"
	"github.com/robotalks/uart2json/pkg/ingest"
	"github.com/robotalks/uart2json/pkg/uart"
)

// Environment variables overriding the defaults.
const (
	EnvPort    = "UART2JSON_PORT"
	EnvBaud    = "UART2JSON_BAUD"
	EnvMQTTURL = "UART2JSON_MQTT_URL"
)

// SerialConfig configures the serial port.
type SerialConfig struct {
	Port        string        `yaml:"port"`
	BaudRate    int           `yaml:"baud_rate"`
	Parity      string        `yaml:"parity"`
	TxPin       int           `yaml:"tx_pin"`
	RxPin       int           `yaml:"rx_pin"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

// BufferConfig sizes the receive buffer and the event queue.
type BufferConfig struct {
	FrameSize int `yaml:"frame_size"`
	QueueSize int `yaml:"queue_size"`
}

// SinkConfig selects where JSON lines go besides the log.
type SinkConfig struct {
	Stdout bool `yaml:"stdout"`
	// MQTT is the broker URL, e.g. mqtt://host:port/topic-prefix
	MQTT string `yaml:"mqtt"`
	// Websocket is the listen address of the websocket stream.
	Websocket string `yaml:"websocket"`
}

// Config is the deserializer configuration.
type Config struct {
	Serial SerialConfig  `yaml:"serial"`
	Buffer BufferConfig  `yaml:"buffer"`
	Sink   SinkConfig    `yaml:"sink"`
	Device env.DeviceRef `yaml:"device"`
}

var defaultConfig = Config{
	Serial: SerialConfig{
		Port:        "/dev/ttyUSB0",
		BaudRate:    uart.DefaultBaudRate,
		Parity:      uart.ParityNone.String(),
		TxPin:       42,
		RxPin:       41,
		ReadTimeout: ingest.DefaultReadTimeout,
	},
	Buffer: BufferConfig{
		FrameSize: ingest.DefaultFrameSize,
		QueueSize: uart.DefaultQueueSize,
	},
	Device: env.DeviceRef{Type: env.DefaultDeviceType},
}

func init() {
	applyEnv(&defaultConfig, os.Getenv)
	defaultConfig.Device.ID = env.MachineID()
}

func applyEnv(c *Config, getenv func(string) string) {
	if val := getenv(EnvPort); val != "" {
		c.Serial.Port = val
	}
	if val := getenv(EnvBaud); val != "" {
		if baud, err := strconv.Atoi(val); err == nil {
			c.Serial.BaudRate = baud
		} else {
			glog.Warningf("ignored %s=%q: %v", EnvBaud, val, err)
		}
	}
	if val := getenv(EnvMQTTURL); val != "" {
		c.Sink.MQTT = val
	}
}

// NewConfig creates a Config with default configurations,
// or from the command line if SetupFlags was called.
func NewConfig() (*Config, error) {
	if commandLine != nil {
		return commandLine.Config()
	}
	conf := defaultConfig
	return &conf, conf.Validate()
}

// Load overlays the YAML file on c. Keys absent from the file are left
// unchanged.
func (c *Config) Load(file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", file, err)
	}
	return nil
}

// UART converts the serial settings.
func (c *Config) UART() (uart.Settings, error) {
	parity, err := uart.ParseParity(c.Serial.Parity)
	if err != nil {
		return uart.Settings{}, &uart.InitError{Port: c.Serial.Port, Stage: uart.StageParamConfig, Err: err}
	}
	return uart.Settings{
		Name:         c.Serial.Port,
		BaudRate:     c.Serial.BaudRate,
		Parity:       parity,
		TxPin:        c.Serial.TxPin,
		RxPin:        c.Serial.RxPin,
		ReadTimeout:  c.Serial.ReadTimeout,
		RxBufferSize: c.Buffer.FrameSize,
		ChunkSize:    uart.DefaultChunkSize,
		QueueSize:    c.Buffer.QueueSize,
	}, nil
}

// Ingest converts the loop settings.
func (c *Config) Ingest() ingest.Config {
	return ingest.Config{
		FrameSize:   c.Buffer.FrameSize,
		ReadTimeout: c.Serial.ReadTimeout,
	}
}

// Validate checks the configuration, serial problems are *uart.InitError.
func (c *Config) Validate() error {
	settings, err := c.UART()
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	if c.Serial.ReadTimeout <= 0 {
		return &uart.InitError{Port: c.Serial.Port, Stage: uart.StageParamConfig,
			Err: fmt.Errorf("invalid read timeout %v", c.Serial.ReadTimeout)}
	}
	if !c.Device.IsValid() {
		return fmt.Errorf("device type and id must be specified")
	}
	return nil
}

// Default returns a copy of the defaults, environment applied.
func Default() Config {
	return defaultConfig
}
