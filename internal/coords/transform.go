package coords

import "sync"

// Transform holds the projection chosen at configuration time. Net bounds
// may be set exactly once; conversions before that fail.
type Transform struct {
	kind ProjectionKind

	mu     sync.RWMutex
	proj   Projection
	bounds NetBounds
}

// NewTransform validates kind and returns an unconfigured transform.
func NewTransform(kind ProjectionKind) (*Transform, error) {
	k, err := ParseProjectionKind(string(kind))
	if err != nil {
		return nil, err
	}
	return &Transform{kind: k}, nil
}

func (t *Transform) Kind() ProjectionKind {
	return t.kind
}

// SetNetbounds derives the projection from the network corners and margin.
func (t *Transform) SetNetbounds(lowerLeft, upperRight PeerCoord, margin int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.proj != nil {
		return ErrAlreadyConfigured
	}
	bounds := NetBounds{LowerLeft: lowerLeft, UpperRight: upperRight, Margin: margin}
	proj, err := NewProjection(t.kind, bounds)
	if err != nil {
		return err
	}
	t.proj = proj
	t.bounds = bounds
	return nil
}

func (t *Transform) Configured() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.proj != nil
}

func (t *Transform) Bounds() (NetBounds, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.bounds, t.proj != nil
}

func (t *Transform) projection() (Projection, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.proj == nil {
		return nil, ErrNotConfigured
	}
	return t.proj, nil
}

func (t *Transform) ToLocal(c PeerCoord) (Coord, error) {
	p, err := t.projection()
	if err != nil {
		return Coord{}, err
	}
	return p.ToLocal(c), nil
}

func (t *Transform) ToPeer(c Coord) (PeerCoord, error) {
	p, err := t.projection()
	if err != nil {
		return PeerCoord{}, err
	}
	return p.ToPeer(c), nil
}

// ToLocalList converts element-wise, preserving order and length.
func (t *Transform) ToLocalList(in []PeerCoord) ([]Coord, error) {
	p, err := t.projection()
	if err != nil {
		return nil, err
	}
	out := make([]Coord, len(in))
	for i, c := range in {
		out[i] = p.ToLocal(c)
	}
	return out, nil
}

// ToPeerList converts element-wise, preserving order and length.
func (t *Transform) ToPeerList(in []Coord) ([]PeerCoord, error) {
	p, err := t.projection()
	if err != nil {
		return nil, err
	}
	out := make([]PeerCoord, len(in))
	for i, c := range in {
		out[i] = p.ToPeer(c)
	}
	return out, nil
}
