package renderer

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/zafaroo/postcraft/internal/geometry"
	"github.com/zafaroo/postcraft/internal/layout"
)

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New(nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return r
}

func testScene() *Scene {
	return &Scene{
		Scale:      1,
		Title:      "Fire breaks out near market",
		Footer:     "Indore | 5/3/2024",
		PanelColor: color.Black,
		TitleColor: color.RGBA{0xff, 0xff, 0x00, 0xff},
		Text: layout.Style{
			TitleFontSize: 24,
			MetaFontSize:  14,
			LineHeight:    1.2,
			Align:         layout.AlignLeft,
			Shadow:        true,
		},
	}
}

// solid returns a w x h image filled with c
func solid(w, h int, c color.RGBA) *image.RGBA {
	im := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(im.Pix); i += 4 {
		im.Pix[i], im.Pix[i+1], im.Pix[i+2], im.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return im
}

// halves returns an image whose left half is a and right half is b
func halves(w, h int, a, b color.RGBA) *image.RGBA {
	im := solid(w, h, a)
	for y := 0; y < h; y++ {
		for x := w / 2; x < w; x++ {
			im.SetRGBA(x, y, b)
		}
	}
	return im
}

func sameRGB(got color.RGBA, want color.RGBA) bool {
	return got.R == want.R && got.G == want.G && got.B == want.B
}

func TestRender_Dimensions(t *testing.T) {
	r := newTestRenderer(t)

	for _, target := range []Target{PreviewTarget, FinalTarget} {
		res, err := r.Render(testScene(), target)
		if err != nil {
			t.Fatalf("Render(%v) error = %v", target.Mode, err)
		}
		b := res.Image.Bounds()
		if b.Dx() != target.Width || b.Dy() != target.Height {
			t.Errorf("%v canvas is %dx%d, want %dx%d", target.Mode, b.Dx(), b.Dy(), target.Width, target.Height)
		}
	}
}

func TestRender_Idempotent(t *testing.T) {
	r := newTestRenderer(t)
	s := testScene()
	s.Background = halves(400, 300, color.RGBA{0xff, 0, 0, 0xff}, color.RGBA{0, 0, 0xff, 0xff})
	s.Offset = geometry.Point{X: 12, Y: -7}
	s.Scale = 1.4

	first, err := r.Render(s, PreviewTarget)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	second, err := r.Render(s, PreviewTarget)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	if !bytes.Equal(first.Image.Pix, second.Image.Pix) {
		t.Error("Rendering the same scene twice produced different pixels")
	}
}

func TestRender_GradientWithoutImage(t *testing.T) {
	r := newTestRenderer(t)

	res, err := r.Render(testScene(), PreviewTarget)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if res.HasImageRect {
		t.Error("HasImageRect = true without a background")
	}

	top := res.Image.RGBAAt(160, 0)
	bottom := res.Image.RGBAAt(160, 239)
	if top.R <= bottom.R {
		t.Errorf("Gradient top %v should be lighter than bottom %v", top, bottom)
	}
	if top.R < 0x40 || top.R > 0x4a || bottom.R < 0x2a || bottom.R > 0x34 {
		t.Errorf("Gradient endpoints %v / %v outside #4a4a4a..#2a2a2a", top, bottom)
	}
}

func TestRender_PanelColor(t *testing.T) {
	r := newTestRenderer(t)
	s := testScene()
	s.PanelColor = color.RGBA{0x10, 0x20, 0x30, 0xff}

	res, err := r.Render(s, PreviewTarget)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	// Right edge of the panel is clear of left aligned text
	got := res.Image.RGBAAt(318, 245)
	if !sameRGB(got, color.RGBA{0x10, 0x20, 0x30, 0xff}) {
		t.Errorf("Panel pixel = %v, want #102030", got)
	}
}

func TestRender_ImageClippedToRegion(t *testing.T) {
	r := newTestRenderer(t)
	red := color.RGBA{0xff, 0, 0, 0xff}
	s := testScene()
	s.Background = solid(400, 300, red)
	s.Scale = geometry.MaxScale
	s.Offset = geometry.Point{X: geometry.MaxOffsetX, Y: geometry.MaxOffsetY}

	for _, target := range []Target{PreviewTarget, FinalTarget} {
		res, err := r.Render(s, target)
		if err != nil {
			t.Fatalf("Render() error = %v", err)
		}

		panel := target.TextPanel()
		x := target.Width - 2
		y := int(panel.Y) + 1
		if got := res.Image.RGBAAt(x, y); sameRGB(got, red) {
			t.Errorf("%v: image bled into the text panel at (%d,%d)", target.Mode, x, y)
		}
	}
}

func TestRender_UncoveredRegionStaysTransparent(t *testing.T) {
	r := newTestRenderer(t)
	s := testScene()
	s.Background = solid(400, 300, color.RGBA{0xff, 0, 0, 0xff})
	s.Scale = geometry.MinScale

	for _, target := range []Target{PreviewTarget, FinalTarget} {
		res, err := r.Render(s, target)
		if err != nil {
			t.Fatalf("Render() error = %v", err)
		}
		if got := res.Image.RGBAAt(5, 5); got != (color.RGBA{}) {
			t.Errorf("%v: pixel outside the shrunken image = %v, want transparent", target.Mode, got)
		}
	}
}

func TestRender_HandlesOnlyInPreview(t *testing.T) {
	r := newTestRenderer(t)
	red := color.RGBA{0xff, 0, 0, 0xff}
	s := testScene()
	// 4:3 matches the image region exactly, so the image corners sit on
	// the region corners
	s.Background = solid(400, 300, red)

	preview, err := r.Render(s, PreviewTarget)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !preview.HasImageRect {
		t.Fatal("HasImageRect = false with a background")
	}
	if got := preview.Image.RGBAAt(1, 1); sameRGB(got, red) {
		t.Errorf("Preview top-left pixel = %v, want a handle", got)
	}

	final, err := r.Render(s, FinalTarget)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got := final.Image.RGBAAt(3, 3); !sameRGB(got, red) {
		t.Errorf("Final top-left pixel = %v, want the image", got)
	}
}

func TestRender_OffsetMovesImage(t *testing.T) {
	r := newTestRenderer(t)
	red := color.RGBA{0xff, 0, 0, 0xff}
	blue := color.RGBA{0, 0, 0xff, 0xff}
	s := testScene()
	s.Background = halves(400, 300, red, blue)

	base, err := r.Render(s, PreviewTarget)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	s.Offset = geometry.Point{X: 50}
	moved, err := r.Render(s, PreviewTarget)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	if got := base.Image.RGBAAt(180, 120); !sameRGB(got, blue) {
		t.Errorf("Base pixel right of center = %v, want blue", got)
	}
	if got := moved.Image.RGBAAt(180, 120); !sameRGB(got, red) {
		t.Errorf("Shifted pixel right of center = %v, want red", got)
	}
	if moved.ImageRect.X != base.ImageRect.X+50 {
		t.Errorf("ImageRect.X = %v, want %v", moved.ImageRect.X, base.ImageRect.X+50)
	}
}

func TestRender_FinalOffsetScalesWithWidth(t *testing.T) {
	r := newTestRenderer(t)
	s := testScene()
	s.Background = solid(400, 300, color.RGBA{0xff, 0, 0, 0xff})
	s.Offset = geometry.Point{X: 20, Y: 10}

	res, err := r.Render(s, FinalTarget)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	ratio := 1080.0 / 320.0
	if res.ImageRect.X != 20*ratio || res.ImageRect.Y != 10*ratio {
		t.Errorf("Final image origin = (%v,%v), want (%v,%v)", res.ImageRect.X, res.ImageRect.Y, 20*ratio, 10*ratio)
	}
}

func TestRender_WrapParity(t *testing.T) {
	r := newTestRenderer(t)
	titles := []string{
		"Fire breaks out near market",
		"Heavy rain expected across Madhya Pradesh as monsoon strengthens",
		"Short",
	}

	for _, title := range titles {
		s := testScene()
		s.Title = title

		preview, err := r.Render(s, PreviewTarget)
		if err != nil {
			t.Fatalf("Render() error = %v", err)
		}
		final, err := r.Render(s, FinalTarget)
		if err != nil {
			t.Fatalf("Render() error = %v", err)
		}

		if len(preview.TitleLines) != len(final.TitleLines) {
			t.Errorf("%q wraps to %d preview lines and %d final lines", title, len(preview.TitleLines), len(final.TitleLines))
		}
	}
}

func TestRender_LinkQR(t *testing.T) {
	r := newTestRenderer(t)
	s := testScene()
	s.Link = "https://example.com/news/fire-market"
	s.LinkQR = true

	res, err := r.Render(s, PreviewTarget)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	// The card padding just outside the code is white
	region := PreviewTarget.ImageRegion()
	x := int(region.Right()) - 8 - 1
	y := int(region.Bottom()) - 8 - 1
	if got := res.Image.RGBAAt(x+2, y+2); !sameRGB(got, color.RGBA{0xff, 0xff, 0xff, 0xff}) {
		t.Errorf("QR card pixel = %v, want white", got)
	}
}

func TestRender_LinkTooLongForCode(t *testing.T) {
	r := newTestRenderer(t)

	plain, err := r.Render(testScene(), PreviewTarget)
	if err != nil {
		t.Fatal(err)
	}

	s := testScene()
	s.Link = "https://example.com/" + strings.Repeat("a", 4000)
	s.LinkQR = true

	for _, target := range []Target{PreviewTarget, FinalTarget} {
		res, err := r.Render(s, target)
		if err != nil {
			t.Fatalf("Render(%dx%d) error = %v", target.Width, target.Height, err)
		}
		if res == nil || res.Image == nil {
			t.Fatalf("Render(%dx%d) returned no image", target.Width, target.Height)
		}
		if res.LinkCodeErr == nil {
			t.Errorf("Render(%dx%d) should report the skipped link code", target.Width, target.Height)
		}
		if len(res.TitleLines) == 0 {
			t.Errorf("Render(%dx%d) dropped the text panel", target.Width, target.Height)
		}
	}

	// Without the badge the canvas matches a render that never asked for it
	res, _ := r.Render(s, PreviewTarget)
	if !bytes.Equal(res.Image.Pix, plain.Image.Pix) {
		t.Error("Skipped link code should leave the canvas untouched")
	}
}

func TestDecode(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, solid(8, 6, color.RGBA{1, 2, 3, 0xff})); err != nil {
		t.Fatal(err)
	}

	img, err := Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if b := img.Bounds(); b.Dx() != 8 || b.Dy() != 6 {
		t.Errorf("Decoded size = %dx%d, want 8x6", b.Dx(), b.Dy())
	}

	if _, err := Decode([]byte("not an image")); err == nil {
		t.Error("Decode() of garbage should fail")
	}
	if _, err := Decode(nil); err != ErrEmptyImage {
		t.Errorf("Decode(nil) error = %v, want ErrEmptyImage", err)
	}
}

func TestEncodePNG(t *testing.T) {
	r := newTestRenderer(t)
	res, err := r.Render(testScene(), PreviewTarget)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	var buf bytes.Buffer
	if err := EncodePNG(&buf, res.Image); err != nil {
		t.Fatalf("EncodePNG() error = %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
		t.Error("EncodePNG() output is not a PNG")
	}
}
