package sink

import (
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	fx "github.com/robotalks/uart2json/pkg/framework"
)

// DefaultBacklog is the number of lines queued per client.
const DefaultBacklog = 16

// Websocket streams lines to connected websocket clients. A client
// not keeping up loses lines.
type Websocket struct {
	// Addr is the listen address used by Run.
	Addr    string
	Backlog int

	lock    sync.Mutex
	clients map[chan string]struct{}
	dropped uint64
}

// NewWebsocket creates a Websocket sink.
func NewWebsocket(addr string) *Websocket {
	return &Websocket{
		Addr:    addr,
		Backlog: DefaultBacklog,
		clients: make(map[chan string]struct{}),
	}
}

// Handler serves the websocket endpoint.
func (s *Websocket) Handler() http.Handler {
	return websocket.Handler(s.serve)
}

func (s *Websocket) serve(conn *websocket.Conn) {
	backlog := s.Backlog
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	lines := make(chan string, backlog)
	s.lock.Lock()
	s.clients[lines] = struct{}{}
	s.lock.Unlock()
	defer func() {
		s.lock.Lock()
		delete(s.clients, lines)
		s.lock.Unlock()
	}()

	closedCh := make(chan struct{})
	go func() {
		io.Copy(io.Discard, conn)
		close(closedCh)
	}()
	glog.V(2).Infof("websocket client %s connected", conn.Request().RemoteAddr)
	for {
		select {
		case line := <-lines:
			if err := websocket.Message.Send(conn, line); err != nil {
				glog.V(2).Infof("websocket client %s: %v", conn.Request().RemoteAddr, err)
				return
			}
		case <-closedCh:
			glog.V(2).Infof("websocket client %s disconnected", conn.Request().RemoteAddr)
			return
		}
	}
}

// Clients returns the number of connected clients.
func (s *Websocket) Clients() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.clients)
}

// Dropped returns the lines lost by slow clients.
func (s *Websocket) Dropped() uint64 {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.dropped
}

// Emit implements Sink.
func (s *Websocket) Emit(line string, size int) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	for lines := range s.clients {
		select {
		case lines <- line:
		default:
			s.dropped++
		}
	}
	return nil
}

// Name implements framework.Named.
func (s *Websocket) Name() string {
	return "websocket-sink"
}

// Run implements framework.Runnable, serving the endpoint at /json.
func (s *Websocket) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/json", s.Handler())
	srv := &http.Server{Addr: s.Addr, Handler: mux}
	glog.Infof("websocket sink listening on %s", s.Addr)
	return fx.RunWithContextCancel(ctx, func() { srv.Close() }, srv.ListenAndServe)
}
