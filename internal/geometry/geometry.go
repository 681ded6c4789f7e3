// Package geometry computes how a background image covers the image region
// and where its corners land for hit-testing.
package geometry

import "math"

// Bounds for the user-controlled image transform, in reference units
const (
	MinScale   = 0.3
	MaxScale   = 3.0
	MaxOffsetX = 200.0
	MaxOffsetY = 100.0
)

// Point is a position in canvas pixels
type Point struct {
	X, Y float64
}

// Size is a width/height pair in canvas pixels
type Size struct {
	Width, Height float64
}

// Rect is an axis-aligned rectangle; Min is the top-left corner
type Rect struct {
	X, Y, Width, Height float64
}

// Right returns the x coordinate of the right edge
func (r Rect) Right() float64 { return r.X + r.Width }

// Bottom returns the y coordinate of the bottom edge
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Contains reports whether p lies inside r, edges included
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.Right() && p.Y >= r.Y && p.Y <= r.Bottom()
}

// Intersect returns the overlap of r and o. The result has zero size when
// they do not overlap.
func (r Rect) Intersect(o Rect) Rect {
	x0 := math.Max(r.X, o.X)
	y0 := math.Max(r.Y, o.Y)
	x1 := math.Min(r.Right(), o.Right())
	y1 := math.Min(r.Bottom(), o.Bottom())
	if x1 <= x0 || y1 <= y0 {
		return Rect{X: x0, Y: y0}
	}
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Empty reports whether r has no area
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Corner returns the position of corner c of r
func (r Rect) Corner(c Corner) Point {
	switch c {
	case TopRight:
		return Point{X: r.Right(), Y: r.Y}
	case BottomLeft:
		return Point{X: r.X, Y: r.Bottom()}
	case BottomRight:
		return Point{X: r.Right(), Y: r.Bottom()}
	default:
		return Point{X: r.X, Y: r.Y}
	}
}

// FitDimensions computes a cover fit of a native image into a box, then
// applies the user scale uniformly. The native aspect ratio is preserved.
func FitDimensions(nativeWidth, nativeHeight, boxWidth, boxHeight, scale float64) Size {
	aspect := nativeWidth / nativeHeight
	boxAspect := boxWidth / boxHeight

	if aspect > boxAspect {
		// Wider than the box: height drives, width overflows
		h := boxHeight * scale
		return Size{Width: h * aspect, Height: h}
	}

	w := boxWidth * scale
	return Size{Width: w, Height: w / aspect}
}

// PlaceImage centers a fitted image inside box and shifts it by offset.
// The returned rectangle may extend past box; callers clip to box.
func PlaceImage(box Rect, draw Size, offset Point) Rect {
	return Rect{
		X:      box.X + (box.Width-draw.Width)/2 + offset.X,
		Y:      box.Y + (box.Height-draw.Height)/2 + offset.Y,
		Width:  draw.Width,
		Height: draw.Height,
	}
}

// Clamp limits v to [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// ClampScale limits an image scale to [MinScale, MaxScale]
func ClampScale(s float64) float64 {
	return Clamp(s, MinScale, MaxScale)
}

// ClampOffset limits an image offset to the reference drag bounds
func ClampOffset(p Point) Point {
	return Point{
		X: Clamp(p.X, -MaxOffsetX, MaxOffsetX),
		Y: Clamp(p.Y, -MaxOffsetY, MaxOffsetY),
	}
}
