package sink

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

func dialWebsocket(t *testing.T, srv *httptest.Server) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, err := websocket.Dial(url, "", "http://localhost/")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebsocketStreamsLines(t *testing.T) {
	s := NewWebsocket("")
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn1, conn2 := dialWebsocket(t, srv), dialWebsocket(t, srv)
	require.Eventually(t, func() bool { return s.Clients() == 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Emit(`{"timestamp":1000,"data":"abc"}`, 31))
	for _, conn := range []*websocket.Conn{conn1, conn2} {
		var line string
		conn.SetReadDeadline(time.Now().Add(time.Second))
		require.NoError(t, websocket.Message.Receive(conn, &line))
		require.Equal(t, `{"timestamp":1000,"data":"abc"}`, line)
	}

	conn1.Close()
	require.Eventually(t, func() bool { return s.Clients() == 1 }, time.Second, 5*time.Millisecond)
}

func TestWebsocketDropsForSlowClients(t *testing.T) {
	s := NewWebsocket("")
	lines := make(chan string, 1)
	s.clients[lines] = struct{}{}

	require.NoError(t, s.Emit("a", 1))
	require.NoError(t, s.Emit("b", 1))
	require.Equal(t, uint64(1), s.Dropped())
	require.Equal(t, "a", <-lines)
}
