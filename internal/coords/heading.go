package coords

import (
	"fmt"
	"math"
	"strings"
)

// Heading is a local direction of travel in radians, 0 pointing east and
// growing counter-clockwise, normalized into [0, 2π).
type Heading float64

// PeerHeading is the peer's direction of travel in degrees. Its orientation
// depends on the HeadingConvention in use.
type PeerHeading float64

func (h Heading) Radians() float64 { return float64(h) }

func (h Heading) Degrees() float64 { return float64(h) * 180 / math.Pi }

// HeadingFromDegrees builds a normalized local heading.
func HeadingFromDegrees(deg float64) Heading {
	return Heading(NormalizeRadians(deg * math.Pi / 180))
}

// NormalizeRadians maps a into [0, 2π).
func NormalizeRadians(a float64) float64 {
	return normalize(a, 2*math.Pi)
}

// NormalizeDegrees maps a into [0, 360).
func NormalizeDegrees(a float64) float64 {
	return normalize(a, 360)
}

func normalize(a, period float64) float64 {
	r := math.Mod(a, period)
	if r < 0 {
		r += period
	}
	if r >= period {
		r = 0
	}
	return r
}

// HeadingConvention converts between the peer's and the local angle
// conventions. Both directions normalize their results.
type HeadingConvention interface {
	Name() string
	ToLocal(PeerHeading) Heading
	ToPeer(Heading) PeerHeading
}

// HeadingKind names a heading convention.
type HeadingKind string

const (
	HeadingCompass     HeadingKind = "compass"
	HeadingMathDegrees HeadingKind = "math-degrees"
)

func NewHeadingConvention(kind HeadingKind) (HeadingConvention, error) {
	switch HeadingKind(strings.ToLower(strings.TrimSpace(string(kind)))) {
	case "", HeadingCompass:
		return CompassConvention{}, nil
	case HeadingMathDegrees:
		return MathDegreesConvention{}, nil
	default:
		return nil, fmt.Errorf("coords: unknown heading convention %q", kind)
	}
}

// CompassConvention is the peer's navigational convention: degrees, 0 at
// north, growing clockwise.
type CompassConvention struct{}

func (CompassConvention) Name() string { return string(HeadingCompass) }

func (CompassConvention) ToLocal(h PeerHeading) Heading {
	return Heading(NormalizeRadians((90 - float64(h)) * math.Pi / 180))
}

func (CompassConvention) ToPeer(h Heading) PeerHeading {
	return PeerHeading(NormalizeDegrees(90 - float64(h)*180/math.Pi))
}

// MathDegreesConvention is for peers that already use the mathematical
// orientation and only differ in unit.
type MathDegreesConvention struct{}

func (MathDegreesConvention) Name() string { return string(HeadingMathDegrees) }

func (MathDegreesConvention) ToLocal(h PeerHeading) Heading {
	return Heading(NormalizeRadians(float64(h) * math.Pi / 180))
}

func (MathDegreesConvention) ToPeer(h Heading) PeerHeading {
	return PeerHeading(NormalizeDegrees(float64(h) * 180 / math.Pi))
}
