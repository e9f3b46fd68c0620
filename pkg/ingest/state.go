package ingest

import "fmt"

// State is the state of the ingestion loop.
type State int

// States of the ingestion loop. There is no terminal state.
const (
	StateIdle State = iota
	StateReading
	StateDecoding
	StateEncoding
	StateRecovering
)

var stateNames = []string{"idle", "reading", "decoding", "encoding", "recovering"}

// String implements fmt.Stringer.
func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Stats counts what the loop did since it started.
type Stats struct {
	Events       uint64
	Frames       uint64
	Emitted      uint64
	ShortReads   uint64
	ReadErrors   uint64
	DecodeErrors uint64
	EncodeErrors uint64
	SinkErrors   uint64
	Overflows    uint64
	BufferFull   uint64
	Ignored      uint64
}

// String implements fmt.Stringer.
func (s Stats) String() string {
	return fmt.Sprintf("events=%d frames=%d emitted=%d short-reads=%d read-errors=%d "+
		"decode-errors=%d encode-errors=%d sink-errors=%d overflows=%d buffer-full=%d ignored=%d",
		s.Events, s.Frames, s.Emitted, s.ShortReads, s.ReadErrors,
		s.DecodeErrors, s.EncodeErrors, s.SinkErrors, s.Overflows, s.BufferFull, s.Ignored)
}
