package coords

import "github.com/seyedmohammadhosseini/veins/internal/protocol/buffer"

// WritePeerCoord appends x and y as consecutive doubles.
func WritePeerCoord(b *buffer.Buffer, c PeerCoord) {
	b.WriteFloat64(c.X)
	b.WriteFloat64(c.Y)
}

// WritePeerCoord3D appends x, y and elevation as consecutive doubles.
func WritePeerCoord3D(b *buffer.Buffer, c PeerCoord) {
	WritePeerCoord(b, c)
	b.WriteFloat64(c.Z)
}

func ReadPeerCoord(b *buffer.Buffer) (PeerCoord, error) {
	raw, err := b.ReadBytes(16)
	if err != nil {
		return PeerCoord{}, err
	}
	r := buffer.From(raw)
	x, _ := r.ReadFloat64()
	y, _ := r.ReadFloat64()
	return PeerCoord{X: x, Y: y}, nil
}

func ReadPeerCoord3D(b *buffer.Buffer) (PeerCoord, error) {
	raw, err := b.ReadBytes(24)
	if err != nil {
		return PeerCoord{}, err
	}
	r := buffer.From(raw)
	x, _ := r.ReadFloat64()
	y, _ := r.ReadFloat64()
	z, _ := r.ReadFloat64()
	return PeerCoord{X: x, Y: y, Z: z}, nil
}
