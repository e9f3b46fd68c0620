package uart

import (
	"fmt"
	"strings"
	"time"
)

// Parity selects the parity bit mode.
type Parity int

// Parity modes.
const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
)

var parityNames = []string{"none", "odd", "even"}

// ParseParity parses "none", "odd" or "even".
func ParseParity(s string) (Parity, error) {
	for n, name := range parityNames {
		if strings.EqualFold(s, name) {
			return Parity(n), nil
		}
	}
	return ParityNone, fmt.Errorf("invalid parity %q", s)
}

// String implements fmt.Stringer.
func (p Parity) String() string {
	if p >= 0 && int(p) < len(parityNames) {
		return parityNames[p]
	}
	return fmt.Sprintf("parity(%d)", int(p))
}

// PinNoChange keeps the current pin assignment.
const PinNoChange = -1

// Defaults.
const (
	DefaultBaudRate     = 9600
	DefaultRxBufferSize = 256
	DefaultChunkSize    = 128
	DefaultReadTimeout  = 100 * time.Millisecond
)

// RX idle detection, the line is idle after rxIdleSymbols characters
// of silence.
const (
	rxIdleSymbols  = 10
	bitsPerSymbol  = 10
	minIdleTimeout = 5 * time.Millisecond
)

// Settings defines how a port is configured.
type Settings struct {
	// Name is the device, e.g. /dev/ttyUSB0 or COM3.
	Name     string
	BaudRate int
	Parity   Parity
	// TxPin and RxPin are the pin assignment reported by the board,
	// PinNoChange leaves it as is.
	TxPin int
	RxPin int
	// ReadTimeout is applied to the device reads of the driver pump.
	ReadTimeout time.Duration
	// RxBufferSize bounds the bytes buffered between driver and consumer.
	RxBufferSize int
	// ChunkSize is the most bytes the driver pulls from the device at once,
	// and the pending bytes which are reported without waiting for idle.
	ChunkSize int
	// IdleTimeout overrides the silence after which pending bytes are
	// reported, by default 10 characters at BaudRate.
	IdleTimeout time.Duration
	// QueueSize is the depth of the event queue.
	QueueSize int
}

// WithDefaults fills zero fields with defaults.
func (s Settings) WithDefaults() Settings {
	if s.BaudRate == 0 {
		s.BaudRate = DefaultBaudRate
	}
	if s.RxBufferSize == 0 {
		s.RxBufferSize = DefaultRxBufferSize
	}
	if s.ChunkSize == 0 {
		s.ChunkSize = DefaultChunkSize
	}
	if s.QueueSize == 0 {
		s.QueueSize = DefaultQueueSize
	}
	return s
}

// Validate checks the settings and reports the failing stage.
func (s Settings) Validate() error {
	fail := func(stage string, err error) error {
		return &InitError{Port: s.Name, Stage: stage, Err: err}
	}
	if s.BaudRate <= 0 {
		return fail(StageParamConfig, fmt.Errorf("invalid baud rate %d", s.BaudRate))
	}
	if s.Parity < ParityNone || s.Parity > ParityEven {
		return fail(StageParamConfig, fmt.Errorf("invalid %v", s.Parity))
	}
	if s.TxPin < PinNoChange || s.RxPin < PinNoChange {
		return fail(StageSetPin, fmt.Errorf("invalid pins TX=%d RX=%d", s.TxPin, s.RxPin))
	}
	if s.TxPin != PinNoChange && s.TxPin == s.RxPin {
		return fail(StageSetPin, ErrPinConflict)
	}
	if s.Name == "" {
		return fail(StageDriverInstall, fmt.Errorf("device name required"))
	}
	if s.RxBufferSize <= 0 || s.ChunkSize <= 0 || s.QueueSize <= 0 {
		return fail(StageDriverInstall, fmt.Errorf("invalid buffer sizes rx=%d chunk=%d queue=%d",
			s.RxBufferSize, s.ChunkSize, s.QueueSize))
	}
	return nil
}
