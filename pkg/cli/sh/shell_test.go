package sh

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/abiosoft/readline"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/uart2json/pkg/payload"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("unplugged")
}

func testShell(w *bytes.Buffer) *Shell {
	return &Shell{
		Port: w,
		Now: func() time.Time {
			return time.Date(2024, 9, 24, 15, 40, 34, 0, time.FixedZone("CEST", 2*3600))
		},
	}
}

func TestSend(t *testing.T) {
	var w bytes.Buffer
	s := testShell(&w)
	p, err := s.Send("Hello, world!")
	require.NoError(t, err)
	require.Equal(t, uint32(1727185234), p.Timestamp)
	require.Len(t, w.Bytes(), 21)

	decoded, err := payload.Decode(w.Bytes())
	require.NoError(t, err)
	require.Equal(t, p, decoded)
}

func TestSendLimit(t *testing.T) {
	var w bytes.Buffer
	s := testShell(&w)
	_, err := s.Send(strings.Repeat("A", 112))
	require.NoError(t, err)
	w.Reset()

	_, err = s.Send(strings.Repeat("A", 113))
	require.Error(t, err)
	require.Zero(t, w.Len())
}

func TestSendWriteFailure(t *testing.T) {
	s := &Shell{Port: failingWriter{}, Now: time.Now}
	_, err := s.Send("x")
	require.Error(t, err)
}

type typedLines struct {
	lines []string
	err   error
}

func (r *typedLines) Readline() (string, error) {
	if len(r.lines) == 0 {
		return "", r.err
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	return line, nil
}

func sentData(t *testing.T, w *bytes.Buffer) []string {
	var sent []string
	for data := w.Bytes(); len(data) > 0; {
		// every frame here carries a 5-byte timestamp varint
		size := 2 + 5 + 1 + int(data[1+5+1])
		p, err := payload.Decode(data[:size])
		require.NoError(t, err)
		sent = append(sent, p.Data)
		data = data[size:]
	}
	return sent
}

func TestInteractSendsLinesAsTyped(t *testing.T) {
	var w, out bytes.Buffer
	s := testShell(&w)
	typed := []string{
		`He said "hi"`,
		`back\slash  two  spaces`,
		`unbalanced 'quote`,
		`send help`,
		`exit`,
		``,
	}
	r := &typedLines{lines: append([]string(nil), typed...), err: readline.ErrInterrupt}
	require.NoError(t, s.Interact(r, &out))
	require.Equal(t, typed, sentData(t, &w))
	require.Contains(t, out.String(), `Sending message: 1727185234, He said "hi"`)
	require.Contains(t, out.String(), "Program stopped by user")
}

func TestInteractSkipsTooLong(t *testing.T) {
	var w, out bytes.Buffer
	s := testShell(&w)
	r := &typedLines{lines: []string{strings.Repeat("A", 113), "ok"}, err: io.EOF}
	require.NoError(t, s.Interact(r, &out))
	require.Equal(t, []string{"ok"}, sentData(t, &w))
	require.Contains(t, out.String(), "Error sending message: message too long")
}

func TestInteractReadFailure(t *testing.T) {
	var w, out bytes.Buffer
	failure := errors.New("terminal gone")
	err := testShell(&w).Interact(&typedLines{err: failure}, &out)
	require.ErrorIs(t, err, failure)
}
