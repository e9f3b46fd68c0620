// Package payload decodes Payload frames received over the wire and
// encodes them as JSON.
package payload

// Payload is one decoded frame.
type Payload struct {
	Timestamp uint32 `json:"timestamp"`
	Data      string `json:"data"`
}

// Field numbers of the frame schema, compatible with
//
//	message Payload {
//	    uint32 timestamp = 1;
//	    string data = 2;
//	}
const (
	FieldTimestamp = 1
	FieldData      = 2
)

// MaxDataLen is the longest data accepted in a frame.
const MaxDataLen = 112

// MaxFrameSize is the size of the largest valid frame: two one-byte
// tags, a 5-byte varint timestamp, a one-byte length and the data.
const MaxFrameSize = 1 + 5 + 1 + 1 + MaxDataLen
