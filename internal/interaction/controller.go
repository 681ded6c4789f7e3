// Package interaction turns pointer events over the preview canvas into
// image drags and corner resizes.
//
// All coordinates are reference units, which are preview canvas pixels.
// The controller is not safe for concurrent use; callers serialize events.
package interaction

import (
	"fmt"

	"github.com/zafaroo/postcraft/internal/geometry"
)

// resizeSensitivity is the pointer travel, in reference units, that
// changes the scale by 1.0
const resizeSensitivity = 200.0

// Target is the composition state the controller edits
type Target interface {
	// ImageRect returns the last drawn image rectangle and whether an
	// image was drawn at all
	ImageRect() (geometry.Rect, bool)
	ImageRegion() geometry.Rect
	HasBackground() bool
	Offset() geometry.Point
	Scale() float64
	SetOffset(geometry.Point)
	SetScale(float64)
}

// State is the controller state
type State int

const (
	Idle State = iota
	Dragging
	Resizing
)

func (s State) String() string {
	switch s {
	case Dragging:
		return "dragging"
	case Resizing:
		return "resizing"
	default:
		return "idle"
	}
}

// Cursor hints mirroring the CSS cursor names
const (
	CursorDefault  = "default"
	CursorGrab     = "grab"
	CursorGrabbing = "grabbing"
	CursorNWResize = "nw-resize"
	CursorNEResize = "ne-resize"
)

// Controller is the pointer state machine
type Controller struct {
	target Target
	state  State

	corner     geometry.Corner
	start      geometry.Point
	startScale float64
	anchor     geometry.Point
}

// NewController creates a controller editing t
func NewController(t Target) *Controller {
	return &Controller{target: t}
}

// State returns the current state
func (c *Controller) State() State {
	return c.state
}

// Corner returns the corner being resized, or NoCorner
func (c *Controller) Corner() geometry.Corner {
	if c.state != Resizing {
		return geometry.NoCorner
	}
	return c.corner
}

// inRegion reports whether p is in the image region. Only the vertical
// extent matters; the region spans the canvas width.
func (c *Controller) inRegion(p geometry.Point) bool {
	region := c.target.ImageRegion()
	return p.Y >= region.Y && p.Y <= region.Bottom()
}

func (c *Controller) cornerAt(p geometry.Point) geometry.Corner {
	rect, ok := c.target.ImageRect()
	if !ok {
		return geometry.NoCorner
	}
	return geometry.HitTestCorner(p, rect, geometry.HandleSize)
}

// PointerDown starts a resize on a corner handle or a drag anywhere else
// in the image region. Presses in the text panel are ignored.
func (c *Controller) PointerDown(p geometry.Point) {
	if !c.inRegion(p) {
		return
	}

	if corner := c.cornerAt(p); corner != geometry.NoCorner {
		c.state = Resizing
		c.corner = corner
		c.start = p
		c.startScale = c.target.Scale()
		return
	}

	if c.target.HasBackground() {
		off := c.target.Offset()
		c.state = Dragging
		c.anchor = geometry.Point{X: p.X - off.X, Y: p.Y - off.Y}
	}
}

// PointerMove updates the offset or scale. It reports whether the target
// was changed.
func (c *Controller) PointerMove(p geometry.Point) bool {
	switch c.state {
	case Dragging:
		c.target.SetOffset(geometry.ClampOffset(geometry.Point{
			X: p.X - c.anchor.X,
			Y: p.Y - c.anchor.Y,
		}))
		return true
	case Resizing:
		delta := ResizeDelta(c.corner, p.X-c.start.X, p.Y-c.start.Y)
		c.target.SetScale(geometry.ClampScale(c.startScale + delta/resizeSensitivity))
		return true
	default:
		return false
	}
}

// PointerUp ends any drag or resize. Offset and scale keep their values.
func (c *Controller) PointerUp() {
	c.state = Idle
	c.corner = geometry.NoCorner
}

// PointerLeave behaves like PointerUp
func (c *Controller) PointerLeave() {
	c.PointerUp()
}

// ResizeDelta returns the signed pointer travel for a resize from corner.
// Moving away from the image center grows it from every corner.
func ResizeDelta(corner geometry.Corner, dx, dy float64) float64 {
	switch corner {
	case geometry.BottomRight:
		return dx + dy
	case geometry.TopLeft:
		return -(dx + dy)
	case geometry.TopRight:
		return dx - dy
	case geometry.BottomLeft:
		return -dx + dy
	default:
		return 0
	}
}

// Cursor returns the cursor to show with the pointer at p
func (c *Controller) Cursor(p geometry.Point) string {
	if c.state == Dragging {
		return CursorGrabbing
	}
	if c.state == Resizing {
		return resizeCursor(c.corner)
	}
	if !c.inRegion(p) {
		return CursorDefault
	}
	if corner := c.cornerAt(p); corner != geometry.NoCorner {
		return resizeCursor(corner)
	}
	if c.target.HasBackground() {
		return CursorGrab
	}
	return CursorDefault
}

func resizeCursor(corner geometry.Corner) string {
	if corner == geometry.TopLeft || corner == geometry.BottomRight {
		return CursorNWResize
	}
	return CursorNEResize
}

// Event is a serialized pointer event as sent by remote front ends
type Event struct {
	Type string  `json:"type"` // down, move, up, leave
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// Handle dispatches ev. It reports whether the target was changed.
func (c *Controller) Handle(ev Event) (bool, error) {
	p := geometry.Point{X: ev.X, Y: ev.Y}

	switch ev.Type {
	case "down":
		c.PointerDown(p)
		return false, nil
	case "move":
		return c.PointerMove(p), nil
	case "up":
		c.PointerUp()
		return false, nil
	case "leave":
		c.PointerLeave()
		return false, nil
	default:
		return false, fmt.Errorf("unknown pointer event: %q", ev.Type)
	}
}
