// Package coords reconciles the local simulation plane with the peer's
// coordinate system and heading convention.
//
// Ownership boundary:
// - net bounds configuration (set once)
// - pluggable projection strategies (bounds-relative affine, web mercator)
// - heading conventions and angle normalization
// - untagged coordinate wire encoding
package coords
