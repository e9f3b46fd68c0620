// Package sink delivers JSON lines produced by the ingestion loop.
package sink

import (
	"fmt"
	"io"
	"sync"

	"github.com/golang/glog"

	fx "github.com/robotalks/uart2json/pkg/framework"
)

// Sink receives every successfully encoded JSON line with its length
// in bytes. Delivery is best effort, an error is never retried.
type Sink interface {
	Emit(line string, size int) error
}

// EmitFunc is the func form of Sink.
type EmitFunc func(line string, size int) error

// Emit implements Sink.
func (f EmitFunc) Emit(line string, size int) error {
	return f(line, size)
}

// Log writes lines to glog.
type Log struct{}

// Emit implements Sink.
func (Log) Emit(line string, size int) error {
	glog.Infof("JSON payload created: %s", line)
	glog.Infof("JSON payload length: %d bytes", size)
	return nil
}

// Writer writes one line per payload to W.
type Writer struct {
	W io.Writer

	lock sync.Mutex
}

// NewWriter creates a Writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{W: w}
}

// Emit implements Sink.
func (s *Writer) Emit(line string, size int) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	_, err := fmt.Fprintln(s.W, line)
	return err
}

// Mux fans lines out to multiple sinks.
type Mux struct {
	Sinks []Sink
}

// Add adds more sinks.
func (m *Mux) Add(sinks ...Sink) *Mux {
	m.Sinks = append(m.Sinks, sinks...)
	return m
}

// Emit implements Sink. All sinks are tried even if some fail.
func (m *Mux) Emit(line string, size int) error {
	var errs fx.AggregatedError
	for _, s := range m.Sinks {
		errs.Add(s.Emit(line, size))
	}
	return errs.Aggregate()
}

// Runnables returns the sinks which need to run in background.
func (m *Mux) Runnables() []fx.Runnable {
	var runners []fx.Runnable
	for _, s := range m.Sinks {
		if r, ok := s.(fx.Runnable); ok {
			runners = append(runners, r)
		}
	}
	return runners
}
