package payload

import (
	"encoding/binary"
	"math"
	"unicode/utf8"

	"github.com/golang/protobuf/proto"
)

func tag(field, wireType int) uint64 {
	return uint64(field)<<3 | uint64(wireType)
}

// Marshal encodes p into a frame. Both fields are always written, so
// a frame missing either of them is known to be truncated.
func Marshal(p Payload) ([]byte, error) {
	if len(p.Data) > MaxDataLen {
		return nil, ErrDataTooLong
	}
	buf := make([]byte, 0, MaxFrameSize)
	buf = append(buf, proto.EncodeVarint(tag(FieldTimestamp, proto.WireVarint))...)
	buf = append(buf, proto.EncodeVarint(uint64(p.Timestamp))...)
	buf = append(buf, proto.EncodeVarint(tag(FieldData, proto.WireBytes))...)
	buf = append(buf, proto.EncodeVarint(uint64(len(p.Data)))...)
	buf = append(buf, p.Data...)
	return buf, nil
}

// Decode decodes exactly the bytes in frame.
func Decode(frame []byte) (Payload, error) {
	var p Payload
	d := decoder{buf: frame}
	var hasTimestamp, hasData bool
	for !d.done() {
		start := d.off
		key, err := d.varint()
		if err != nil {
			return p, d.fail(0, err)
		}
		field, wireType := int(key>>3), int(key&7)
		if field == 0 || key>>3 > math.MaxInt32 {
			d.off = start
			return p, d.fail(0, ErrBadTag)
		}
		switch field {
		case FieldTimestamp:
			if wireType != proto.WireVarint {
				return p, d.fail(field, ErrWireType)
			}
			val, err := d.varint()
			if err != nil {
				return p, d.fail(field, err)
			}
			if val > math.MaxUint32 {
				return p, d.fail(field, ErrOutOfRange)
			}
			p.Timestamp, hasTimestamp = uint32(val), true
		case FieldData:
			if wireType != proto.WireBytes {
				return p, d.fail(field, ErrWireType)
			}
			data, err := d.bytes(MaxDataLen)
			if err != nil {
				return p, d.fail(field, err)
			}
			if !utf8.Valid(data) {
				return p, d.fail(field, ErrInvalidUTF8)
			}
			p.Data, hasData = string(data), true
		default:
			if err := d.skip(wireType); err != nil {
				return p, d.fail(field, err)
			}
		}
	}
	if !hasTimestamp {
		return Payload{}, d.fail(FieldTimestamp, ErrMissingField)
	}
	if !hasData {
		return Payload{}, d.fail(FieldData, ErrMissingField)
	}
	return p, nil
}

type decoder struct {
	buf []byte
	off int
}

func (d *decoder) done() bool {
	return d.off >= len(d.buf)
}

func (d *decoder) fail(field int, err error) error {
	return &DecodeError{Offset: d.off, Field: field, Err: err}
}

func (d *decoder) varint() (uint64, error) {
	val, n := proto.DecodeVarint(d.buf[d.off:])
	if n == 0 {
		return 0, ErrTruncated
	}
	d.off += n
	return val, nil
}

func (d *decoder) fixed(size int) error {
	if len(d.buf)-d.off < size {
		return ErrTruncated
	}
	d.off += size
	return nil
}

func (d *decoder) bytes(limit int) ([]byte, error) {
	size, err := d.varint()
	if err != nil {
		return nil, err
	}
	if limit > 0 && size > uint64(limit) {
		return nil, ErrDataTooLong
	}
	if size > uint64(len(d.buf)-d.off) {
		return nil, ErrTruncated
	}
	data := d.buf[d.off : d.off+int(size)]
	d.off += int(size)
	return data, nil
}

// skip steps over an unknown field. Groups are not supported.
func (d *decoder) skip(wireType int) error {
	switch wireType {
	case proto.WireVarint:
		_, err := d.varint()
		return err
	case proto.WireFixed64:
		return d.fixed(binary.Size(uint64(0)))
	case proto.WireFixed32:
		return d.fixed(binary.Size(uint32(0)))
	case proto.WireBytes:
		_, err := d.bytes(0)
		return err
	}
	return ErrWireType
}
