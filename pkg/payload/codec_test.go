package payload

import (
	"bytes"
	"math"
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func mustMarshal(t *testing.T, p Payload) []byte {
	frame, err := Marshal(p)
	require.NoError(t, err)
	return frame
}

func randomText(r *rand.Rand, maxLen int) string {
	alphabet := []rune("abcXYZ 019\"\\\n\t\x01/<>&é中😀")
	var b strings.Builder
	size := r.Intn(maxLen + 1)
	for {
		ch := alphabet[r.Intn(len(alphabet))]
		if b.Len()+utf8.RuneLen(ch) > size {
			return b.String()
		}
		b.WriteRune(ch)
	}
}

func TestMarshalWireFormat(t *testing.T) {
	frame := mustMarshal(t, Payload{Timestamp: 1000, Data: "abc"})
	require.Equal(t, []byte{0x08, 0xe8, 0x07, 0x12, 0x03, 'a', 'b', 'c'}, frame)

	frame = mustMarshal(t, Payload{Timestamp: 1727185234, Data: "Hello, world!"})
	require.Len(t, frame, 21)

	frame = mustMarshal(t, Payload{})
	require.Equal(t, []byte{0x08, 0x00, 0x12, 0x00}, frame)
}

func TestMarshalDataTooLong(t *testing.T) {
	frame := mustMarshal(t, Payload{Timestamp: math.MaxUint32, Data: strings.Repeat("A", MaxDataLen)})
	require.Len(t, frame, MaxFrameSize)

	_, err := Marshal(Payload{Data: strings.Repeat("A", MaxDataLen+1)})
	require.ErrorIs(t, err, ErrDataTooLong)
}

func TestRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for n := 0; n < 500; n++ {
		p := Payload{Timestamp: r.Uint32(), Data: randomText(r, MaxDataLen)}
		decoded, err := Decode(mustMarshal(t, p))
		require.NoError(t, err)
		require.Equal(t, p, decoded)
	}
}

func TestDecodeTruncatedPrefixes(t *testing.T) {
	payloads := []Payload{
		{Timestamp: 1000, Data: "abc"},
		{Timestamp: 0, Data: ""},
		{Timestamp: math.MaxUint32, Data: strings.Repeat("z", MaxDataLen)},
	}
	for _, p := range payloads {
		frame := mustMarshal(t, p)
		for size := 0; size < len(frame); size++ {
			_, err := Decode(frame[:size])
			var decodeErr *DecodeError
			require.ErrorAsf(t, err, &decodeErr, "prefix of %d bytes of %x", size, frame)
		}
	}
}

func TestDecodeGarbage(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	garbage := make([]byte, 3)
	for n := 0; n < 1000; n++ {
		r.Read(garbage)
		_, err := Decode(garbage)
		require.Errorf(t, err, "decoded garbage %x", garbage)
	}
}

func TestDecodeSkipsUnknownFields(t *testing.T) {
	var frame bytes.Buffer
	frame.Write([]byte{0x18, 0x05})
	frame.Write(mustMarshal(t, Payload{Timestamp: 7, Data: "hi"}))
	frame.Write([]byte{0x25, 1, 2, 3, 4})
	frame.Write([]byte{0x29, 1, 2, 3, 4, 5, 6, 7, 8})
	frame.Write([]byte{0x32, 0x02, 'x', 'y'})
	p, err := Decode(frame.Bytes())
	require.NoError(t, err)
	require.Equal(t, Payload{Timestamp: 7, Data: "hi"}, p)
}

func TestDecodeLastFieldWins(t *testing.T) {
	p, err := Decode([]byte{0x08, 0x01, 0x12, 0x01, 'a', 0x08, 0x02, 0x12, 0x01, 'b'})
	require.NoError(t, err)
	require.Equal(t, Payload{Timestamp: 2, Data: "b"}, p)
}

func TestDecodeErrors(t *testing.T) {
	tooLong := append([]byte{0x08, 0x01, 0x12, MaxDataLen + 1}, bytes.Repeat([]byte{'A'}, MaxDataLen+1)...)
	testCases := []struct {
		name   string
		frame  []byte
		expect error
		field  int
	}{
		{name: "empty", frame: nil, expect: ErrMissingField, field: FieldTimestamp},
		{name: "zero tag", frame: []byte{0x00, 0x08, 0x01}, expect: ErrBadTag},
		{name: "timestamp wire type", frame: []byte{0x0a, 0x01, 0x00}, expect: ErrWireType, field: FieldTimestamp},
		{name: "data wire type", frame: []byte{0x08, 0x01, 0x10, 0x01}, expect: ErrWireType, field: FieldData},
		{name: "group", frame: []byte{0x08, 0x01, 0x1b, 0x1c}, expect: ErrWireType, field: 3},
		{name: "reserved wire type", frame: []byte{0x1e}, expect: ErrWireType, field: 3},
		{name: "timestamp range", frame: []byte{0x08, 0x80, 0x80, 0x80, 0x80, 0x10, 0x12, 0x00}, expect: ErrOutOfRange, field: FieldTimestamp},
		{name: "data too long", frame: tooLong, expect: ErrDataTooLong, field: FieldData},
		{name: "invalid utf8", frame: []byte{0x08, 0x01, 0x12, 0x01, 0xff}, expect: ErrInvalidUTF8, field: FieldData},
		{name: "missing data", frame: []byte{0x08, 0x01}, expect: ErrMissingField, field: FieldData},
		{name: "missing timestamp", frame: []byte{0x12, 0x00}, expect: ErrMissingField, field: FieldTimestamp},
		{name: "truncated varint", frame: []byte{0x08, 0x80}, expect: ErrTruncated, field: FieldTimestamp},
		{name: "truncated data", frame: []byte{0x08, 0x01, 0x12, 0x05, 'a'}, expect: ErrTruncated, field: FieldData},
		{name: "truncated fixed32", frame: []byte{0x08, 0x01, 0x12, 0x00, 0x25, 1, 2}, expect: ErrTruncated, field: 4},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.frame)
			require.ErrorIs(t, err, tc.expect)
			var decodeErr *DecodeError
			require.ErrorAs(t, err, &decodeErr)
			require.Equal(t, tc.field, decodeErr.Field)
		})
	}
}

func TestDecodeIgnoresCapacityBeyondFrame(t *testing.T) {
	buf := make([]byte, 256)
	n := copy(buf, mustMarshal(t, Payload{Timestamp: 5, Data: "five"}))
	p, err := Decode(buf[:n])
	require.NoError(t, err)
	require.Equal(t, Payload{Timestamp: 5, Data: "five"}, p)

	_, err = Decode(buf)
	require.ErrorIs(t, err, ErrBadTag, "zero padding is not a valid frame")
}

func TestDefaultFieldsRequired(t *testing.T) {
	// proto3 encoders omit empty data and zero timestamps
	_, err := Decode([]byte{0x08, 0xd6, 0xb6, 0xcb, 0xb8, 0x06})
	require.ErrorIs(t, err, ErrMissingField)
	_, err = Decode([]byte{0x12, 0x01, 0x61})
	require.ErrorIs(t, err, ErrMissingField)

	for _, p := range []Payload{{Timestamp: 1727185234}, {Data: "a"}, {}} {
		frame, err := Marshal(p)
		require.NoError(t, err)
		decoded, err := Decode(frame)
		require.NoError(t, err)
		require.Equal(t, p, decoded)
	}
}
