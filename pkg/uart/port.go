package uart

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/uart2json/pkg/framework"
)

// Port is a serial device with a bounded RX buffer filled by a driver pump.
type Port struct {
	Settings Settings

	dev    io.ReadWriteCloser
	events *EventQueue

	lock   sync.Mutex
	rx     []byte
	dataCh chan struct{}

	closeOnce sync.Once
	closedCh  chan struct{}

	// owned by the pump
	eventsLost bool
}

// NewPort wraps an opened device.
func NewPort(dev io.ReadWriteCloser, settings Settings) *Port {
	settings = settings.WithDefaults()
	return &Port{
		Settings: settings,
		dev:      dev,
		events:   NewEventQueue(settings.QueueSize),
		rx:       make([]byte, 0, settings.RxBufferSize),
		dataCh:   make(chan struct{}, 1),
		closedCh: make(chan struct{}),
	}
}

// Events returns the queue the driver posts events to.
func (p *Port) Events() *EventQueue {
	return p.events
}

// Name implements framework.Named.
func (p *Port) Name() string {
	return "uart:" + p.Settings.Name
}

// Run implements framework.Runnable. It pumps the device until ctx
// is cancelled, the device is closed, or a read error happens.
func (p *Port) Run(ctx context.Context) error {
	return fx.RunWithContextCloser(ctx, p, p.pump)
}

type readResult struct {
	data []byte
	err  error
}

// idleTimeout is how long the line stays quiet before buffered bytes
// are reported, rxIdleSymbols characters at the configured baud rate.
func (p *Port) idleTimeout() time.Duration {
	if p.Settings.IdleTimeout > 0 {
		return p.Settings.IdleTimeout
	}
	d := time.Duration(rxIdleSymbols*bitsPerSymbol) * time.Second / time.Duration(p.Settings.BaudRate)
	return max(d, minIdleTimeout)
}

// idle reports errors meaning the device had nothing to read.
func (p *Port) idle(err error) bool {
	return os.IsTimeout(err) || (err == io.EOF && p.Settings.ReadTimeout > 0)
}

// readDevice reads the device until a terminal error, which is the
// last result sent.
func (p *Port) readDevice(results chan<- readResult) {
	chunk := make([]byte, p.Settings.ChunkSize)
	for {
		n, err := p.dev.Read(chunk)
		if err != nil && p.idle(err) {
			err = nil
		}
		if n > 0 || err != nil {
			results <- readResult{data: append([]byte(nil), chunk[:n]...), err: err}
		}
		if err != nil {
			return
		}
	}
}

// pump collects bytes from the device and reports them in one
// EventData when the line goes idle or ChunkSize bytes are pending.
func (p *Port) pump() error {
	results := make(chan readResult)
	go p.readDevice(results)

	idleTimer := time.NewTimer(time.Hour)
	stopTimer(idleTimer)
	defer idleTimer.Stop()

	var pending int
	for {
		select {
		case <-idleTimer.C:
			p.notify(pending)
			pending = 0
		case r := <-results:
			if len(r.data) > 0 {
				n, full := p.receive(r.data)
				pending += n
				switch {
				case full:
					// the consumer flushes the buffer on recovery
					pending = 0
					stopTimer(idleTimer)
				case pending >= p.Settings.ChunkSize:
					p.notify(pending)
					pending = 0
					stopTimer(idleTimer)
				case pending > 0:
					stopTimer(idleTimer)
					idleTimer.Reset(p.idleTimeout())
				}
			}
			if r.err == nil {
				continue
			}
			p.notify(pending)
			if r.err == io.EOF {
				glog.V(2).Infof("%s: end of stream", p.Name())
				return nil
			}
			select {
			case <-p.closedCh:
				return ErrClosed
			default:
			}
			return r.err
		}
	}
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

// receive appends bytes arriving from the device. Bytes not fitting the
// RX buffer are dropped and EventBufferFull is posted.
func (p *Port) receive(data []byte) (int, bool) {
	p.lock.Lock()
	n, full := len(data), false
	if room := p.Settings.RxBufferSize - len(p.rx); n > room {
		n, full = room, true
	}
	p.rx = append(p.rx, data[:n]...)
	p.lock.Unlock()

	if n > 0 {
		select {
		case p.dataCh <- struct{}{}:
		default:
		}
	}
	if full {
		glog.V(2).Infof("%s: RX buffer full, dropped %d bytes", p.Name(), len(data)-n)
		p.post(Event{Type: EventBufferFull})
	}
	return n, full
}

// notify reports n received bytes.
func (p *Port) notify(n int) {
	if n > 0 {
		p.post(DataEvent(n))
	}
}

// post enqueues ev. When the queue overflowed earlier, an EventFIFOOverflow
// is delivered first so the consumer learns events were lost.
func (p *Port) post(ev Event) {
	if p.eventsLost {
		if !p.events.Post(Event{Type: EventFIFOOverflow}) {
			return
		}
		p.eventsLost = false
	}
	if !p.events.Post(ev) {
		p.eventsLost = true
	}
}

// Read copies up to len(buf) buffered bytes, waiting at most timeout for
// them to arrive. A short read returns the bytes obtained and ErrReadTimeout.
func (p *Port) Read(buf []byte, timeout time.Duration) (int, error) {
	var n int
	var timer *time.Timer
	for {
		n += p.take(buf[n:])
		if n == len(buf) {
			if timer != nil {
				timer.Stop()
			}
			return n, nil
		}
		if timeout <= 0 {
			return n, ErrReadTimeout
		}
		if timer == nil {
			timer = time.NewTimer(timeout)
		}
		select {
		case <-p.dataCh:
		case <-timer.C:
			n += p.take(buf[n:])
			if n == len(buf) {
				return n, nil
			}
			return n, ErrReadTimeout
		case <-p.closedCh:
			timer.Stop()
			return n, ErrClosed
		}
	}
}

func (p *Port) take(buf []byte) int {
	if len(buf) == 0 {
		return 0
	}
	p.lock.Lock()
	defer p.lock.Unlock()
	n := copy(buf, p.rx)
	p.rx = p.rx[:copy(p.rx, p.rx[n:])]
	return n
}

// Buffered returns the number of bytes waiting in the RX buffer.
func (p *Port) Buffered() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return len(p.rx)
}

// Flush discards buffered RX bytes and returns how many were dropped.
func (p *Port) Flush() int {
	p.lock.Lock()
	n := len(p.rx)
	p.rx = p.rx[:0]
	p.lock.Unlock()
	select {
	case <-p.dataCh:
	default:
	}
	return n
}

// Write transmits p to the device.
func (p *Port) Write(data []byte) (int, error) {
	select {
	case <-p.closedCh:
		return 0, ErrClosed
	default:
	}
	return p.dev.Write(data)
}

// Close implements io.Closer. Calls after the first are no-ops.
func (p *Port) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.closedCh)
		err = p.dev.Close()
	})
	return err
}
