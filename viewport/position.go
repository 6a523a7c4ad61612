// Package viewport classifies where a scrolling viewport sits relative to the
// content it shows and paces how much of a long list is revealed.
package viewport

import (
	"math"
	"time"
)

// Distance is how far the bottom edge of the viewport is from the end of
// the content.
type Distance int

const (
	InRange Distance = iota
	Near
	Far
)

func (d Distance) String() string {
	switch d {
	case InRange:
		return "in-range"
	case Near:
		return "near"
	case Far:
		return "far"
	}
	return "unknown"
}

const (
	TopEpsilon      = 150
	NearThreshold   = 159
	DefaultInterval = 50 * time.Millisecond
	DefaultStep     = 50
)

type Position struct {
	AtTop    bool
	ToBottom Distance
}

// Initial is the position reported before the first measurement.
var Initial = Position{AtTop: true, ToBottom: InRange}

// Hold reports whether revealing more content should pause.
func (p Position) Hold() bool {
	return p.ToBottom == Far
}

// MoreAbove is true once the viewport scrolled past the top.
func (p Position) MoreAbove() bool {
	return !p.AtTop
}

// MoreBelow is true while content remains below the viewport's reach.
func (p Position) MoreBelow() bool {
	return p.ToBottom != InRange
}

// Extents are the measurements a classification works from, in the same
// unit (pixels, rows).
type Extents struct {
	Viewport float64
	Content  float64
	Offset   float64
}

// Classify positions a viewport of the given extent, scrolled offset into
// content of the given extent.
func Classify(viewport, content, offset float64) Position {
	remaining := math.Max(math.Floor(content-(offset+viewport)), 0)
	p := Position{AtTop: offset <= TopEpsilon}
	switch {
	case remaining <= NearThreshold:
		p.ToBottom = InRange
	case remaining <= 2*viewport:
		p.ToBottom = Near
	default:
		p.ToBottom = Far
	}
	return p
}

func (e Extents) Classify() Position {
	return Classify(e.Viewport, e.Content, e.Offset)
}
