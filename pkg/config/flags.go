package config

import (
	"flag"
)

// Flags binds a Config to a FlagSet. Values from a YAML file given by
// -config are applied before the flags set explicitly.
type Flags struct {
	FlagSet *flag.FlagSet
	File    string

	conf Config
}

var commandLine *Flags

// SetupFlags sets command line flags.
func SetupFlags() {
	commandLine = NewFlags(flag.CommandLine)
}

// NewFlags defines the configuration flags on fs.
func NewFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{FlagSet: fs, conf: defaultConfig}
	fs.StringVar(&f.File, "config", "", "YAML configuration file")
	bindFlags(fs, &f.conf)
	return f
}

func bindFlags(fs *flag.FlagSet, c *Config) {
	fs.StringVar(&c.Serial.Port, "port", c.Serial.Port, "Serial device")
	fs.IntVar(&c.Serial.BaudRate, "baud", c.Serial.BaudRate, "Baud rate")
	fs.StringVar(&c.Serial.Parity, "parity", c.Serial.Parity, "Parity: none, odd or even")
	fs.IntVar(&c.Serial.TxPin, "tx-pin", c.Serial.TxPin, "TX pin, -1 leaves it unchanged")
	fs.IntVar(&c.Serial.RxPin, "rx-pin", c.Serial.RxPin, "RX pin, -1 leaves it unchanged")
	fs.DurationVar(&c.Serial.ReadTimeout, "read-timeout", c.Serial.ReadTimeout, "Timeout of a frame read")
	fs.IntVar(&c.Buffer.FrameSize, "frame-size", c.Buffer.FrameSize, "Receive buffer size")
	fs.IntVar(&c.Buffer.QueueSize, "queue-size", c.Buffer.QueueSize, "Event queue depth")
	fs.BoolVar(&c.Sink.Stdout, "stdout", c.Sink.Stdout, "Print JSON lines to stdout")
	fs.StringVar(&c.Sink.MQTT, "mqtt", c.Sink.MQTT, "MQTT broker URL, e.g. mqtt://localhost:1883/prefix")
	fs.StringVar(&c.Sink.Websocket, "ws", c.Sink.Websocket, "Websocket listen address, e.g. :8080")
	fs.StringVar(&c.Device.Type, "type", c.Device.Type, "Device type")
	fs.StringVar(&c.Device.ID, "id", c.Device.ID, "Device ID")
}

// Config builds the configuration once the flags are parsed.
func (f *Flags) Config() (*Config, error) {
	if f.File == "" {
		conf := f.conf
		return &conf, conf.Validate()
	}
	conf := defaultConfig
	if err := conf.Load(f.File); err != nil {
		return nil, err
	}
	overlay := flag.NewFlagSet(f.FlagSet.Name(), flag.ContinueOnError)
	bindFlags(overlay, &conf)
	var err error
	f.FlagSet.Visit(func(fl *flag.Flag) {
		if err == nil && overlay.Lookup(fl.Name) != nil {
			err = overlay.Set(fl.Name, fl.Value.String())
		}
	})
	if err != nil {
		return nil, err
	}
	return &conf, conf.Validate()
}
