// Package composer owns one editing session's composition: it keeps the
// State, decodes background images off the caller's goroutine, renders the
// preview after every change and produces the final export.
//
// A Composer is not safe for concurrent use. Callers serialize access, the
// way a UI event loop would; only background decoding runs elsewhere and
// its results come back through Decoded and ApplyDecoded.
package composer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/zafaroo/postcraft/internal/export"
	"github.com/zafaroo/postcraft/internal/geometry"
	"github.com/zafaroo/postcraft/internal/layout"
	"github.com/zafaroo/postcraft/internal/renderer"
	"github.com/zafaroo/postcraft/pkg/postformat"
)

// ExportFilename is the suggested name of every export
const ExportFilename = "facebook_news_post.png"

// Decoded is the outcome of one background decode
type Decoded struct {
	Token uint64
	Image image.Image
	Err   error
}

// Artifact is a final render ready for a sink
type Artifact struct {
	Filename string
	PNG      []byte
	Result   *renderer.Result
}

// Option configures a Composer
type Option func(*Composer)

// WithRenderer sets the renderer. The default uses the embedded fonts.
func WithRenderer(r *renderer.Renderer) Option {
	return func(c *Composer) {
		c.renderer = r
	}
}

// WithStyle sets the starting style
func WithStyle(s postformat.Style) Option {
	return func(c *Composer) {
		c.style = s
	}
}

// WithLocation sets the footer location used when the item has none
func WithLocation(location string) Option {
	return func(c *Composer) {
		c.location = location
	}
}

// Composer renders one composition
type Composer struct {
	renderer *renderer.Renderer
	style    postformat.Style
	location string

	state State

	background image.Image
	decodeErr  *DecodeError
	token      uint64
	applied    uint64

	decoded chan Decoded
	ctx     context.Context
	cancel  context.CancelFunc
	closed  bool

	last      *renderer.Result
	renderErr error
	listeners []func(*renderer.Result, error)
}

// New opens a composition for item and renders the first preview
func New(item postformat.NewsItem, opts ...Option) (*Composer, error) {
	c := &Composer{
		style:   postformat.DefaultStyle(),
		decoded: make(chan Decoded),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.renderer == nil {
		r, err := renderer.New(nil)
		if err != nil {
			return nil, err
		}
		c.renderer = r
	}

	state, err := NewState(item, c.style)
	if err != nil {
		return nil, fmt.Errorf("invalid style: %w", err)
	}
	if state.Location == "" {
		state.Location = c.location
	}
	c.state = state

	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.render()

	return c, nil
}

// OnRender registers fn to run after every preview render
func (c *Composer) OnRender(fn func(res *renderer.Result, err error)) {
	c.listeners = append(c.listeners, fn)
}

// render redraws the preview and notifies listeners
func (c *Composer) render() {
	if c.closed {
		return
	}
	res, err := c.RenderPreview()
	c.last, c.renderErr = res, err
	for _, fn := range c.listeners {
		fn(res, err)
	}
}

// State returns a copy of the current state
func (c *Composer) State() State {
	return c.state
}

// LastPreview returns the most recent preview and its error
func (c *Composer) LastPreview() (*renderer.Result, error) {
	return c.last, c.renderErr
}

// Update applies fn to the state and re-renders. Setters on State clamp,
// so fn cannot leave the state out of bounds.
func (c *Composer) Update(fn func(s *State)) {
	fn(&c.state)
	c.render()
}

// ApplyStyle merges a partial style and re-renders. An invalid color or
// alignment leaves the state untouched.
func (c *Composer) ApplyStyle(style postformat.Style) error {
	next := c.state
	if err := next.ApplyStyle(style); err != nil {
		return err
	}
	c.state = next
	c.render()
	return nil
}

func (c *Composer) SetTitle(title string) {
	c.Update(func(s *State) { s.Title = title })
}

func (c *Composer) SetTitleFontSize(v float64) {
	c.Update(func(s *State) { s.SetTitleFontSize(v) })
}

func (c *Composer) SetMetaFontSize(v float64) {
	c.Update(func(s *State) { s.SetMetaFontSize(v) })
}

func (c *Composer) SetLineHeight(v float64) {
	c.Update(func(s *State) { s.SetLineHeight(v) })
}

func (c *Composer) SetAlign(a string) {
	c.Update(func(s *State) { s.SetAlign(a) })
}

func (c *Composer) SetShadow(on bool) {
	c.Update(func(s *State) { s.Shadow = on })
}

func (c *Composer) SetLinkQR(on bool) {
	c.Update(func(s *State) { s.LinkQR = on })
}

// SetPanelColor sets the panel color from a #rrggbb string
func (c *Composer) SetPanelColor(hex string) error {
	col, err := postformat.ParseHexColor(hex)
	if err != nil {
		return err
	}
	c.Update(func(s *State) { s.PanelColor = col })
	return nil
}

// SetTitleColor sets the title color from a #rrggbb string
func (c *Composer) SetTitleColor(hex string) error {
	col, err := postformat.ParseHexColor(hex)
	if err != nil {
		return err
	}
	c.Update(func(s *State) { s.TitleColor = col })
	return nil
}

// ResetTransform restores offset {0,0} and scale 1
func (c *Composer) ResetTransform() {
	c.Update(func(s *State) { s.ResetTransform() })
}

// Offset, Scale, SetOffset and SetScale together with ImageRect,
// ImageRegion and HasBackground make a Composer an interaction.Target.

func (c *Composer) Offset() geometry.Point {
	return c.state.Offset
}

func (c *Composer) Scale() float64 {
	return c.state.Scale
}

func (c *Composer) SetOffset(p geometry.Point) {
	c.Update(func(s *State) { s.SetOffset(p) })
}

func (c *Composer) SetScale(v float64) {
	c.Update(func(s *State) { s.SetScale(v) })
}

// ImageRect returns the image rectangle of the last preview
func (c *Composer) ImageRect() (geometry.Rect, bool) {
	if c.last == nil || !c.last.HasImageRect {
		return geometry.Rect{}, false
	}
	return c.last.ImageRect, true
}

func (c *Composer) ImageRegion() geometry.Rect {
	return renderer.PreviewTarget.ImageRegion()
}

func (c *Composer) HasBackground() bool {
	return c.background != nil
}

// SetBackgroundImage starts decoding data in the background and returns the
// request token. The transform is reset right away; the image appears
// once the matching Decoded is applied. Any older pending decode becomes
// stale.
func (c *Composer) SetBackgroundImage(data []byte) uint64 {
	c.token++
	token := c.token

	if c.closed {
		return token
	}

	go func() {
		img, err := renderer.Decode(data)
		ev := Decoded{Token: token, Image: img, Err: err}
		select {
		case c.decoded <- ev:
		case <-c.ctx.Done():
		}
	}()

	c.ResetTransform()
	return token
}

// ClearBackground removes the image and invalidates pending decodes
func (c *Composer) ClearBackground() {
	c.token++
	c.applied = c.token
	c.background = nil
	c.decodeErr = nil
	c.render()
}

// Decoded delivers decode results. Read it from the goroutine that owns
// the composer only to hand events to ApplyDecoded.
func (c *Composer) Decoded() <-chan Decoded {
	return c.decoded
}

// Pending reports whether the latest background request is still decoding
func (c *Composer) Pending() bool {
	return c.applied != c.token
}

// Token returns the latest background request token
func (c *Composer) Token() uint64 {
	return c.token
}

// ApplyDecoded installs a decode result if it answers the latest request
// and reports whether it did. Stale results and results arriving after
// Close are dropped.
func (c *Composer) ApplyDecoded(ev Decoded) bool {
	if c.closed || ev.Token != c.token {
		return false
	}

	c.applied = ev.Token
	if ev.Err != nil {
		c.background = nil
		c.decodeErr = &DecodeError{Token: ev.Token, Err: ev.Err}
	} else {
		c.background = ev.Image
		c.decodeErr = nil
	}

	c.render()
	return true
}

// AwaitDecode blocks until the latest background request has been applied.
// It returns the decode error of that request, if any.
func (c *Composer) AwaitDecode(ctx context.Context) error {
	for c.Pending() {
		if c.closed {
			return ErrClosed
		}
		select {
		case ev := <-c.decoded:
			c.ApplyDecoded(ev)
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if c.decodeErr != nil {
		return c.decodeErr
	}
	return nil
}

// DecodeErr returns the failure of the current background, if any
func (c *Composer) DecodeErr() error {
	if c.decodeErr == nil {
		return nil
	}
	return c.decodeErr
}

// Close ends the session. Pending decodes are abandoned and their results
// discarded.
func (c *Composer) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.cancel()
}

// Closed reports whether Close was called
func (c *Composer) Closed() bool {
	return c.closed
}

// RenderPreview renders the 320x400 preview. When the background failed to
// decode, the gradient is drawn and a *DecodeError is returned along with
// a complete result.
func (c *Composer) RenderPreview() (*renderer.Result, error) {
	return c.renderAt(renderer.PreviewTarget)
}

// RenderFinal renders the 1080x1350 export and encodes it as PNG. A
// *DecodeError is reported the same way as by RenderPreview.
func (c *Composer) RenderFinal() (*Artifact, error) {
	res, err := c.renderAt(renderer.FinalTarget)
	var decodeErr *DecodeError
	if err != nil && !errors.As(err, &decodeErr) {
		return nil, err
	}

	var buf bytes.Buffer
	if encErr := renderer.EncodePNG(&buf, res.Image); encErr != nil {
		return nil, fmt.Errorf("failed to encode png: %w", encErr)
	}

	return &Artifact{Filename: ExportFilename, PNG: buf.Bytes(), Result: res}, err
}

func (c *Composer) renderAt(t renderer.Target) (*renderer.Result, error) {
	res, err := c.renderer.Render(c.state.scene(c.background), t)
	if err != nil {
		return nil, err
	}
	if c.decodeErr != nil {
		return res, c.decodeErr
	}
	return res, nil
}

// Export renders the final image and hands it to sink. Any failure comes
// back as *ExportFailure; the state is not modified either way.
func (c *Composer) Export(ctx context.Context, sink export.Sink) error {
	if c.closed {
		return &ExportFailure{Filename: ExportFilename, Err: ErrClosed}
	}

	art, err := c.RenderFinal()
	var decodeErr *DecodeError
	if err != nil && !errors.As(err, &decodeErr) {
		return &ExportFailure{Filename: ExportFilename, Err: err}
	}

	if err := sink.Export(ctx, art.PNG, art.Filename); err != nil {
		return &ExportFailure{Filename: art.Filename, Err: err}
	}
	return nil
}

// TitleLines wraps the current title without drawing
func (c *Composer) TitleLines() (lines []string, truncated int) {
	measure, done := c.renderer.Measure()
	defer done()

	plan := layout.Layout(layout.Panel{
		CanvasWidth: layout.ReferenceWidth,
		Height:      float64(renderer.PreviewTarget.Height) - renderer.PreviewTarget.ImageRegion().Height,
		Style:       c.state.scene(nil).Text,
		Title:       c.state.DrawnTitle(),
	}, measure)
	return plan.TitleLines, plan.Truncated
}
