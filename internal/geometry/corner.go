package geometry

// HandleSize is the side of a corner hit-zone in reference units
const HandleSize = 12.0

// Corner identifies a corner of the drawn image
type Corner int

const (
	NoCorner Corner = iota
	TopLeft
	TopRight
	BottomLeft
	BottomRight
)

func (c Corner) String() string {
	return []string{"none", "tl", "tr", "bl", "br"}[c]
}

// Corners lists the corners in hit-test order
var Corners = []Corner{TopLeft, TopRight, BottomLeft, BottomRight}

// HitZone returns the square hit-zone centered on corner c of rect
func HitZone(rect Rect, c Corner, handleSize float64) Rect {
	p := rect.Corner(c)
	return Rect{X: p.X - handleSize/2, Y: p.Y - handleSize/2, Width: handleSize, Height: handleSize}
}

// HitTestCorner returns the first corner of rect whose hit-zone contains p.
// handleSize is HandleSize multiplied by the canvas resolution ratio.
func HitTestCorner(p Point, rect Rect, handleSize float64) Corner {
	for _, c := range Corners {
		if HitZone(rect, c, handleSize).Contains(p) {
			return c
		}
	}
	return NoCorner
}
