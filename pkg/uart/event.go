package uart

import "fmt"

// EventType is the tag of a serial Event.
type EventType int

// Event types reported by the driver.
const (
	// EventData reports Size bytes appended to the RX buffer.
	EventData EventType = iota
	// EventFIFOOverflow reports events were lost because the
	// consumer didn't drain the queue in time.
	EventFIFOOverflow
	// EventBufferFull reports received bytes were dropped because
	// the RX buffer was full.
	EventBufferFull
	// EventBreak reports a break condition on the line.
	EventBreak
	// EventParityErr reports a parity error on received data.
	EventParityErr
	// EventFrameErr reports a framing error on received data.
	EventFrameErr
	// EventOther is any event the driver doesn't classify.
	EventOther
)

var eventTypeNames = map[EventType]string{
	EventData:         "data",
	EventFIFOOverflow: "fifo-overflow",
	EventBufferFull:   "buffer-full",
	EventBreak:        "break",
	EventParityErr:    "parity-error",
	EventFrameErr:     "frame-error",
	EventOther:        "other",
}

// String implements fmt.Stringer.
func (t EventType) String() string {
	if name, ok := eventTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("event(%d)", int(t))
}

// Event is a notification from the driver.
type Event struct {
	Type EventType
	// Size is only meaningful for EventData.
	Size int
}

// DataEvent creates an EventData.
func DataEvent(size int) Event {
	return Event{Type: EventData, Size: size}
}

// String implements fmt.Stringer.
func (e Event) String() string {
	if e.Type == EventData {
		return fmt.Sprintf("data(%d)", e.Size)
	}
	return e.Type.String()
}
