package buffer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var (
	ErrBufferUnderrun = errors.New("buffer: underrun")
	ErrInvalidBool    = errors.New("buffer: invalid bool value")
)

// Buffer is an append-only byte sequence with a read cursor.
// Values must be read back in the order they were written; the wire format
// carries no type tags.
type Buffer struct {
	data []byte
	cur  int
}

// New returns an empty buffer ready for writing.
func New() *Buffer {
	return &Buffer{}
}

// From returns a buffer positioned at the start of a copy of b.
func From(b []byte) *Buffer {
	data := make([]byte, len(b))
	copy(data, b)
	return &Buffer{data: data}
}

// Bytes returns the full contents regardless of the cursor.
func (b *Buffer) Bytes() []byte {
	if b == nil {
		return nil
	}
	return b.data
}

func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	return len(b.data)
}

func (b *Buffer) Cursor() int {
	if b == nil {
		return 0
	}
	return b.cur
}

// Remaining reports how many unread bytes are left.
func (b *Buffer) Remaining() int {
	if b == nil {
		return 0
	}
	return len(b.data) - b.cur
}

// EOF reports whether every byte has been consumed.
func (b *Buffer) EOF() bool {
	return b.Remaining() == 0
}

// Reset rewinds the cursor to the first byte.
func (b *Buffer) Reset() {
	b.cur = 0
}

// Seek moves the cursor to pos, clamped to the written data. Callers use it
// to undo a partial read of a composite value.
func (b *Buffer) Seek(pos int) {
	b.cur = max(0, min(pos, len(b.data)))
}

// Rest returns the unread tail as a new buffer and consumes it.
func (b *Buffer) Rest() *Buffer {
	out := From(b.data[b.cur:])
	b.cur = len(b.data)
	return out
}

func (b *Buffer) take(n int, what string) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %s declares negative length %d", ErrBufferUnderrun, what, n)
	}
	if b.Remaining() < n {
		return nil, fmt.Errorf("%w: %s needs %d bytes, %d remaining", ErrBufferUnderrun, what, n, b.Remaining())
	}
	out := b.data[b.cur : b.cur+n]
	b.cur += n
	return out, nil
}

func (b *Buffer) WriteUint8(v uint8) {
	b.data = append(b.data, v)
}

func (b *Buffer) WriteInt8(v int8) {
	b.data = append(b.data, byte(v))
}

func (b *Buffer) WriteUint16(v uint16) {
	b.data = binary.BigEndian.AppendUint16(b.data, v)
}

func (b *Buffer) WriteUint32(v uint32) {
	b.data = binary.BigEndian.AppendUint32(b.data, v)
}

func (b *Buffer) WriteInt32(v int32) {
	b.data = binary.BigEndian.AppendUint32(b.data, uint32(v))
}

func (b *Buffer) WriteInt64(v int64) {
	b.data = binary.BigEndian.AppendUint64(b.data, uint64(v))
}

func (b *Buffer) WriteFloat32(v float32) {
	b.data = binary.BigEndian.AppendUint32(b.data, math.Float32bits(v))
}

func (b *Buffer) WriteFloat64(v float64) {
	b.data = binary.BigEndian.AppendUint64(b.data, math.Float64bits(v))
}

func (b *Buffer) WriteBool(v bool) {
	if v {
		b.WriteUint8(1)
		return
	}
	b.WriteUint8(0)
}

// WriteBytes appends raw bytes without a length prefix.
func (b *Buffer) WriteBytes(v []byte) {
	b.data = append(b.data, v...)
}

// WriteString appends an int32 byte length followed by the UTF-8 bytes.
func (b *Buffer) WriteString(v string) {
	b.WriteInt32(int32(len(v)))
	b.data = append(b.data, v...)
}

// WriteStringList appends an int32 element count followed by each string.
func (b *Buffer) WriteStringList(v []string) {
	b.WriteInt32(int32(len(v)))
	for _, s := range v {
		b.WriteString(s)
	}
}

// WriteFloat64List appends an int32 element count followed by each double.
func (b *Buffer) WriteFloat64List(v []float64) {
	b.WriteInt32(int32(len(v)))
	for _, f := range v {
		b.WriteFloat64(f)
	}
}

func (b *Buffer) ReadUint8() (uint8, error) {
	raw, err := b.take(1, "uint8")
	if err != nil {
		return 0, err
	}
	return raw[0], nil
}

// PeekUint8 returns the next byte without consuming it.
func (b *Buffer) PeekUint8() (uint8, error) {
	if b.Remaining() < 1 {
		return 0, fmt.Errorf("%w: uint8 needs 1 bytes, 0 remaining", ErrBufferUnderrun)
	}
	return b.data[b.cur], nil
}

func (b *Buffer) ReadInt8() (int8, error) {
	raw, err := b.take(1, "int8")
	if err != nil {
		return 0, err
	}
	return int8(raw[0]), nil
}

func (b *Buffer) ReadUint16() (uint16, error) {
	raw, err := b.take(2, "uint16")
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(raw), nil
}

func (b *Buffer) ReadUint32() (uint32, error) {
	raw, err := b.take(4, "uint32")
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(raw), nil
}

func (b *Buffer) ReadInt32() (int32, error) {
	raw, err := b.take(4, "int32")
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(raw)), nil
}

func (b *Buffer) ReadInt64() (int64, error) {
	raw, err := b.take(8, "int64")
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(raw)), nil
}

func (b *Buffer) ReadFloat32() (float32, error) {
	raw, err := b.take(4, "float32")
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.BigEndian.Uint32(raw)), nil
}

func (b *Buffer) ReadFloat64() (float64, error) {
	raw, err := b.take(8, "float64")
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(raw)), nil
}

func (b *Buffer) ReadBool() (bool, error) {
	start := b.cur
	v, err := b.ReadUint8()
	if err != nil {
		return false, err
	}
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		b.cur = start
		return false, fmt.Errorf("%w: %d", ErrInvalidBool, v)
	}
}

// ReadBytes consumes exactly n raw bytes and returns a copy.
func (b *Buffer) ReadBytes(n int) ([]byte, error) {
	raw, err := b.take(n, "bytes")
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, raw)
	return out, nil
}

func (b *Buffer) ReadString() (string, error) {
	start := b.cur
	n, err := b.ReadInt32()
	if err != nil {
		return "", err
	}
	raw, err := b.take(int(n), "string")
	if err != nil {
		b.cur = start
		return "", err
	}
	return string(raw), nil
}

func (b *Buffer) ReadStringList() ([]string, error) {
	start := b.cur
	n, err := b.ReadInt32()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		b.cur = start
		return nil, fmt.Errorf("%w: string list declares negative length %d", ErrBufferUnderrun, n)
	}
	out := make([]string, 0, min(int(n), b.Remaining()/4))
	for i := int32(0); i < n; i++ {
		s, err := b.ReadString()
		if err != nil {
			b.cur = start
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (b *Buffer) ReadFloat64List() ([]float64, error) {
	start := b.cur
	n, err := b.ReadInt32()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		b.cur = start
		return nil, fmt.Errorf("%w: double list declares negative length %d", ErrBufferUnderrun, n)
	}
	if b.Remaining() < int(n)*8 {
		b.cur = start
		return nil, fmt.Errorf("%w: double list needs %d bytes, %d remaining", ErrBufferUnderrun, int(n)*8, b.Remaining())
	}
	out := make([]float64, n)
	for i := range out {
		out[i], _ = b.ReadFloat64()
	}
	return out, nil
}
