package coords

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

var (
	ErrNotConfigured     = errors.New("coords: net bounds not configured")
	ErrAlreadyConfigured = errors.New("coords: net bounds already configured")
	ErrInvalidBounds     = errors.New("coords: invalid net bounds")
	ErrUnknownProjection = errors.New("coords: unknown projection")
)

// Coord is a position in the local simulation plane (y grows downwards).
type Coord struct {
	X, Y, Z float64
}

// PeerCoord is a position in the peer's coordinate system.
type PeerCoord struct {
	X, Y, Z float64
}

// NetBounds is the bounding box of the peer's road network plus the margin
// added around it in the local plane.
type NetBounds struct {
	LowerLeft  PeerCoord
	UpperRight PeerCoord
	Margin     int
}

// ProjectionKind names a projection strategy.
type ProjectionKind string

const (
	ProjectionBoundsAffine ProjectionKind = "bounds-affine"
	ProjectionMercator     ProjectionKind = "mercator"
)

func ParseProjectionKind(raw string) (ProjectionKind, error) {
	switch ProjectionKind(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ProjectionBoundsAffine:
		return ProjectionBoundsAffine, nil
	case ProjectionMercator:
		return ProjectionMercator, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownProjection, raw)
	}
}

// Projection maps between the two coordinate systems. Implementations are
// pure and mutual inverses within floating point tolerance inside the bounds.
type Projection interface {
	Name() string
	ToLocal(PeerCoord) Coord
	ToPeer(Coord) PeerCoord
}

// NewProjection builds the strategy for kind over bounds.
func NewProjection(kind ProjectionKind, bounds NetBounds) (Projection, error) {
	if err := validateBounds(bounds); err != nil {
		return nil, err
	}
	switch kind {
	case ProjectionBoundsAffine, "":
		return newBoundsAffine(bounds), nil
	case ProjectionMercator:
		return newMercator(bounds)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProjection, kind)
	}
}

func validateBounds(b NetBounds) error {
	if b.Margin < 0 {
		return fmt.Errorf("%w: negative margin %d", ErrInvalidBounds, b.Margin)
	}
	for _, v := range []float64{b.LowerLeft.X, b.LowerLeft.Y, b.UpperRight.X, b.UpperRight.Y} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite corner", ErrInvalidBounds)
		}
	}
	if b.UpperRight.X <= b.LowerLeft.X || b.UpperRight.Y <= b.LowerLeft.Y {
		return fmt.Errorf("%w: upper right %v not above lower left %v", ErrInvalidBounds, b.UpperRight, b.LowerLeft)
	}
	return nil
}

// boundsAffine shifts the lower-left corner to the margin and flips the y
// axis so the peer's upper edge lands on local y == margin.
type boundsAffine struct {
	originX float64
	originY float64
	dimY    float64
	margin  float64
}

func newBoundsAffine(b NetBounds) *boundsAffine {
	return &boundsAffine{
		originX: b.LowerLeft.X,
		originY: b.LowerLeft.Y,
		dimY:    b.UpperRight.Y - b.LowerLeft.Y,
		margin:  float64(b.Margin),
	}
}

func (p *boundsAffine) Name() string { return string(ProjectionBoundsAffine) }

func (p *boundsAffine) ToLocal(c PeerCoord) Coord {
	return Coord{
		X: c.X - p.originX + p.margin,
		Y: p.dimY - (c.Y - p.originY) + p.margin,
		Z: c.Z,
	}
}

func (p *boundsAffine) ToPeer(c Coord) PeerCoord {
	return PeerCoord{
		X: c.X + p.originX - p.margin,
		Y: p.dimY - (c.Y - p.margin) + p.originY,
		Z: c.Z,
	}
}

// maxMercatorLat is the latitude where web mercator is conventionally clipped.
const maxMercatorLat = 85.05112878

// mercator treats peer coordinates as lon/lat (X=lon, Y=lat) and places the
// local plane in web mercator meters relative to the lower-left corner, with
// the same y flip as boundsAffine.
type mercator struct {
	origin orb.Point
	dimY   float64
	margin float64
}

func newMercator(b NetBounds) (*mercator, error) {
	for _, c := range []PeerCoord{b.LowerLeft, b.UpperRight} {
		if c.X < -180 || c.X > 180 || c.Y < -maxMercatorLat || c.Y > maxMercatorLat {
			return nil, fmt.Errorf("%w: %v outside lon/lat range", ErrInvalidBounds, c)
		}
	}
	ll := project.WGS84.ToMercator(orb.Point{b.LowerLeft.X, b.LowerLeft.Y})
	ur := project.WGS84.ToMercator(orb.Point{b.UpperRight.X, b.UpperRight.Y})
	return &mercator{
		origin: ll,
		dimY:   ur.Y() - ll.Y(),
		margin: float64(b.Margin),
	}, nil
}

func (p *mercator) Name() string { return string(ProjectionMercator) }

func (p *mercator) ToLocal(c PeerCoord) Coord {
	m := project.WGS84.ToMercator(orb.Point{c.X, c.Y})
	return Coord{
		X: m.X() - p.origin.X() + p.margin,
		Y: p.dimY - (m.Y() - p.origin.Y()) + p.margin,
		Z: c.Z,
	}
}

func (p *mercator) ToPeer(c Coord) PeerCoord {
	m := orb.Point{
		c.X - p.margin + p.origin.X(),
		p.dimY - (c.Y - p.margin) + p.origin.Y(),
	}
	g := project.Mercator.ToWGS84(m)
	return PeerCoord{X: g.Lon(), Y: g.Lat(), Z: c.Z}
}
