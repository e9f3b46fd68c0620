// Package ingest implements the loop turning serial events into JSON lines.
package ingest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/uart2json/pkg/payload"
	"github.com/robotalks/uart2json/pkg/sink"
	"github.com/robotalks/uart2json/pkg/uart"
)

// Port is where the loop reads frames from.
type Port interface {
	// Read reads up to len(buf) bytes waiting at most timeout.
	Read(buf []byte, timeout time.Duration) (int, error)
	// Flush discards received bytes not read yet.
	Flush() int
}

// Events is the queue of serial events the loop drains.
type Events interface {
	Receive(context.Context) (uart.Event, error)
	Reset() int
}

// Defaults.
const (
	DefaultFrameSize   = 256
	DefaultReadTimeout = 100 * time.Millisecond
)

// Config defines the loop parameters.
type Config struct {
	// FrameSize is the capacity of the receive buffer.
	FrameSize int
	// ReadTimeout bounds each port read.
	ReadTimeout time.Duration
}

// Loop consumes serial events, decodes frames and emits JSON lines.
// A Loop is driven by a single goroutine.
type Loop struct {
	Port   Port
	Events Events
	Sink   sink.Sink
	Config Config

	Decode func([]byte) (payload.Payload, error)
	Encode func(payload.Payload) (string, error)

	// OnTransition is called on every state change.
	OnTransition func(from, to State)

	buf   []byte
	state State

	statsLock sync.Mutex
	stats     Stats
}

// New creates a Loop.
func New(port Port, events Events, s sink.Sink, conf Config) *Loop {
	if conf.FrameSize <= 0 {
		conf.FrameSize = DefaultFrameSize
	}
	if conf.ReadTimeout <= 0 {
		conf.ReadTimeout = DefaultReadTimeout
	}
	return &Loop{
		Port:   port,
		Events: events,
		Sink:   s,
		Config: conf,
		Decode: payload.Decode,
		Encode: payload.EncodeJSON,
		buf:    make([]byte, conf.FrameSize),
	}
}

// Name implements framework.Named.
func (l *Loop) Name() string {
	return "ingest"
}

// State returns the current state. Only meaningful from the goroutine
// driving the loop or after Run returns.
func (l *Loop) State() State {
	return l.state
}

// Stats returns a snapshot of the counters.
func (l *Loop) Stats() Stats {
	l.statsLock.Lock()
	defer l.statsLock.Unlock()
	return l.stats
}

func (l *Loop) count(fn func(*Stats)) {
	l.statsLock.Lock()
	fn(&l.stats)
	l.statsLock.Unlock()
}

// Run implements framework.Runnable. It only returns when ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	l.Port.Flush()
	l.Events.Reset()
	glog.Info("UART task started, waiting for incoming data...")
	for {
		ev, err := l.Events.Receive(ctx)
		if err != nil {
			glog.V(2).Infof("ingest stopped: %v", err)
			return err
		}
		l.Handle(ev)
	}
}

// Handle runs one iteration for ev, starting and ending in StateIdle.
func (l *Loop) Handle(ev uart.Event) {
	l.count(func(s *Stats) { s.Events++ })
	glog.V(3).Infof("event %v", ev)
	switch ev.Type {
	case uart.EventData:
		l.ingest(ev.Size)
	case uart.EventFIFOOverflow:
		glog.Warning("UART FIFO overflow")
		l.count(func(s *Stats) { s.Overflows++ })
		l.recoverBackpressure()
	case uart.EventBufferFull:
		glog.Warning("UART buffer full")
		l.count(func(s *Stats) { s.BufferFull++ })
		l.recoverBackpressure()
	default:
		glog.V(2).Infof("ignored event %v", ev)
		l.count(func(s *Stats) { s.Ignored++ })
	}
}

func (l *Loop) transit(to State) {
	from := l.state
	l.state = to
	if fn := l.OnTransition; fn != nil {
		fn(from, to)
	}
}

func (l *Loop) ingest(size int) {
	l.transit(StateReading)
	frame := l.read(size)

	l.transit(StateDecoding)
	l.count(func(s *Stats) { s.Frames++ })
	p, err := l.Decode(frame)
	if err != nil {
		glog.Errorf("Failed to unpack payload: %v", err)
		l.count(func(s *Stats) { s.DecodeErrors++ })
		l.Port.Flush()
		l.transit(StateIdle)
		return
	}
	glog.Infof("Received payload of length %d bytes", len(frame))

	l.transit(StateEncoding)
	l.emit(p)
	l.Port.Flush()
	l.transit(StateIdle)
}

// read fills the receive buffer with at most size bytes. The buffer is
// zeroed first so nothing from a previous frame is visible.
func (l *Loop) read(size int) []byte {
	clear(l.buf)
	want := min(max(size, 0), len(l.buf))
	n, err := l.Port.Read(l.buf[:want], l.Config.ReadTimeout)
	n = min(max(n, 0), want)
	switch {
	case err == nil:
	case errors.Is(err, uart.ErrReadTimeout):
		glog.V(2).Infof("short read: %d of %d bytes", n, want)
		l.count(func(s *Stats) { s.ShortReads++ })
	default:
		glog.Errorf("UART read failed after %d bytes: %v", n, err)
		l.count(func(s *Stats) { s.ReadErrors++ })
	}
	return l.buf[:n]
}

func (l *Loop) emit(p payload.Payload) {
	line, err := l.Encode(p)
	if err != nil {
		glog.Errorf("Failed to create JSON: %v", err)
		l.count(func(s *Stats) { s.EncodeErrors++ })
		return
	}
	if err := l.Sink.Emit(line, len(line)); err != nil {
		glog.Warningf("Failed to emit JSON payload: %v", err)
		l.count(func(s *Stats) { s.SinkErrors++ })
		return
	}
	l.count(func(s *Stats) { s.Emitted++ })
}

func (l *Loop) recoverBackpressure() {
	l.transit(StateRecovering)
	flushed := l.Port.Flush()
	dropped := l.Events.Reset()
	glog.V(2).Infof("recovered: flushed %d bytes, dropped %d events", flushed, dropped)
	l.transit(StateIdle)
}
