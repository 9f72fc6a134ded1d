// Package tagged encodes self-describing TraCI values: a one-byte data type
// identifier followed by the untagged wire encoding from package buffer.
package tagged

import (
	"errors"
	"fmt"

	"github.com/seyedmohammadhosseini/veins/internal/protocol/buffer"
)

// Data type identifiers.
const (
	PositionLonLat    uint8 = 0x00
	Position2D        uint8 = 0x01
	PositionLonLatAlt uint8 = 0x02
	Position3D        uint8 = 0x03
	TypeUbyte         uint8 = 0x07
	TypeByte          uint8 = 0x08
	TypeInteger       uint8 = 0x09
	TypeDouble        uint8 = 0x0B
	TypeString        uint8 = 0x0C
	TypeStringList    uint8 = 0x0E
	TypeCompound      uint8 = 0x0F
	TypeDoubleList    uint8 = 0x10
	TypeColor         uint8 = 0x11
)

var (
	ErrTypeMismatch = errors.New("tagged: type mismatch")
	ErrUnknownType  = errors.New("tagged: unknown type")
)

// Color is an RGBA value.
type Color struct {
	R, G, B, A uint8
}

// Value is one decoded tagged value; only the field matching Type is set.
type Value struct {
	Type       uint8
	Ubyte      uint8
	Byte       int8
	Int        int32
	Double     float64
	String     string
	StringList []string
	DoubleList []float64
	Compound   int32
	Color      Color
	Position   [3]float64
}

func expect(b *buffer.Buffer, want uint8) error {
	got, err := b.PeekUint8()
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("%w: want 0x%02x, got 0x%02x", ErrTypeMismatch, want, got)
	}
	_, err = b.ReadUint8()
	return err
}

// readTagged reads a tag then the value; on any failure the cursor is left
// where it started.
func readTagged[T any](b *buffer.Buffer, typ uint8, read func(*buffer.Buffer) (T, error)) (T, error) {
	var zero T
	start := b.Cursor()
	if err := expect(b, typ); err != nil {
		return zero, err
	}
	v, err := read(b)
	if err != nil {
		b.Seek(start)
		return zero, err
	}
	return v, nil
}

func WriteUbyte(b *buffer.Buffer, v uint8) {
	b.WriteUint8(TypeUbyte)
	b.WriteUint8(v)
}

func ReadUbyte(b *buffer.Buffer) (uint8, error) {
	return readTagged(b, TypeUbyte, (*buffer.Buffer).ReadUint8)
}

func WriteByte(b *buffer.Buffer, v int8) {
	b.WriteUint8(TypeByte)
	b.WriteInt8(v)
}

func ReadByte(b *buffer.Buffer) (int8, error) {
	return readTagged(b, TypeByte, (*buffer.Buffer).ReadInt8)
}

func WriteInt(b *buffer.Buffer, v int32) {
	b.WriteUint8(TypeInteger)
	b.WriteInt32(v)
}

func ReadInt(b *buffer.Buffer) (int32, error) {
	return readTagged(b, TypeInteger, (*buffer.Buffer).ReadInt32)
}

func WriteDouble(b *buffer.Buffer, v float64) {
	b.WriteUint8(TypeDouble)
	b.WriteFloat64(v)
}

func ReadDouble(b *buffer.Buffer) (float64, error) {
	return readTagged(b, TypeDouble, (*buffer.Buffer).ReadFloat64)
}

func WriteString(b *buffer.Buffer, v string) {
	b.WriteUint8(TypeString)
	b.WriteString(v)
}

func ReadString(b *buffer.Buffer) (string, error) {
	return readTagged(b, TypeString, (*buffer.Buffer).ReadString)
}

func WriteStringList(b *buffer.Buffer, v []string) {
	b.WriteUint8(TypeStringList)
	b.WriteStringList(v)
}

func ReadStringList(b *buffer.Buffer) ([]string, error) {
	return readTagged(b, TypeStringList, (*buffer.Buffer).ReadStringList)
}

func WriteDoubleList(b *buffer.Buffer, v []float64) {
	b.WriteUint8(TypeDoubleList)
	b.WriteFloat64List(v)
}

func ReadDoubleList(b *buffer.Buffer) ([]float64, error) {
	return readTagged(b, TypeDoubleList, (*buffer.Buffer).ReadFloat64List)
}

// WriteCompound writes a compound header announcing n following tagged values.
func WriteCompound(b *buffer.Buffer, n int32) {
	b.WriteUint8(TypeCompound)
	b.WriteInt32(n)
}

// ReadCompound returns the number of tagged values in the compound.
func ReadCompound(b *buffer.Buffer) (int32, error) {
	return readTagged(b, TypeCompound, (*buffer.Buffer).ReadInt32)
}

func WriteColor(b *buffer.Buffer, c Color) {
	b.WriteUint8(TypeColor)
	b.WriteUint8(c.R)
	b.WriteUint8(c.G)
	b.WriteUint8(c.B)
	b.WriteUint8(c.A)
}

func ReadColor(b *buffer.Buffer) (Color, error) {
	return readTagged(b, TypeColor, func(b *buffer.Buffer) (Color, error) {
		raw, err := b.ReadBytes(4)
		if err != nil {
			return Color{}, err
		}
		return Color{R: raw[0], G: raw[1], B: raw[2], A: raw[3]}, nil
	})
}

func WritePosition2D(b *buffer.Buffer, x, y float64) {
	b.WriteUint8(Position2D)
	b.WriteFloat64(x)
	b.WriteFloat64(y)
}

func ReadPosition2D(b *buffer.Buffer) (x, y float64, err error) {
	return readXY(b, Position2D)
}

func WritePosition3D(b *buffer.Buffer, x, y, z float64) {
	b.WriteUint8(Position3D)
	b.WriteFloat64(x)
	b.WriteFloat64(y)
	b.WriteFloat64(z)
}

func ReadPosition3D(b *buffer.Buffer) (x, y, z float64, err error) {
	return readXYZ(b, Position3D)
}

// Read decodes the next tagged value whatever its type. Compound values
// yield only their element count; the elements follow as separate values.
func Read(b *buffer.Buffer) (Value, error) {
	typ, err := b.PeekUint8()
	if err != nil {
		return Value{}, err
	}
	v := Value{Type: typ}
	switch typ {
	case TypeUbyte:
		v.Ubyte, err = ReadUbyte(b)
	case TypeByte:
		v.Byte, err = ReadByte(b)
	case TypeInteger:
		v.Int, err = ReadInt(b)
	case TypeDouble:
		v.Double, err = ReadDouble(b)
	case TypeString:
		v.String, err = ReadString(b)
	case TypeStringList:
		v.StringList, err = ReadStringList(b)
	case TypeDoubleList:
		v.DoubleList, err = ReadDoubleList(b)
	case TypeCompound:
		v.Compound, err = ReadCompound(b)
	case TypeColor:
		v.Color, err = ReadColor(b)
	case Position2D, PositionLonLat:
		v.Position[0], v.Position[1], err = readXY(b, typ)
	case Position3D, PositionLonLatAlt:
		v.Position[0], v.Position[1], v.Position[2], err = readXYZ(b, typ)
	default:
		return Value{}, fmt.Errorf("%w: 0x%02x", ErrUnknownType, typ)
	}
	if err != nil {
		return Value{}, err
	}
	return v, nil
}

func readXY(b *buffer.Buffer, typ uint8) (float64, float64, error) {
	p, err := readTagged(b, typ, readFloats(2))
	if err != nil {
		return 0, 0, err
	}
	return p[0], p[1], nil
}

func readXYZ(b *buffer.Buffer, typ uint8) (float64, float64, float64, error) {
	p, err := readTagged(b, typ, readFloats(3))
	if err != nil {
		return 0, 0, 0, err
	}
	return p[0], p[1], p[2], nil
}

func readFloats(n int) func(*buffer.Buffer) ([3]float64, error) {
	return func(b *buffer.Buffer) ([3]float64, error) {
		var out [3]float64
		raw, err := b.ReadBytes(8 * n)
		if err != nil {
			return out, err
		}
		r := buffer.From(raw)
		for i := 0; i < n; i++ {
			out[i], _ = r.ReadFloat64()
		}
		return out, nil
	}
}

// Format renders the value for diagnostics.
func (v Value) Format() string {
	switch v.Type {
	case TypeUbyte:
		return fmt.Sprintf("ubyte(%d)", v.Ubyte)
	case TypeByte:
		return fmt.Sprintf("byte(%d)", v.Byte)
	case TypeInteger:
		return fmt.Sprintf("int(%d)", v.Int)
	case TypeDouble:
		return fmt.Sprintf("double(%g)", v.Double)
	case TypeString:
		return fmt.Sprintf("string(%q)", v.String)
	case TypeStringList:
		return fmt.Sprintf("stringlist(%q)", v.StringList)
	case TypeDoubleList:
		return fmt.Sprintf("doublelist(%v)", v.DoubleList)
	case TypeCompound:
		return fmt.Sprintf("compound(%d)", v.Compound)
	case TypeColor:
		return fmt.Sprintf("color(%d,%d,%d,%d)", v.Color.R, v.Color.G, v.Color.B, v.Color.A)
	case Position2D, PositionLonLat:
		return fmt.Sprintf("position(%g,%g)", v.Position[0], v.Position[1])
	case Position3D, PositionLonLatAlt:
		return fmt.Sprintf("position(%g,%g,%g)", v.Position[0], v.Position[1], v.Position[2])
	default:
		return fmt.Sprintf("unknown(0x%02x)", v.Type)
	}
}
