package tui

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"math"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/zafaroo/postcraft/internal/command"
	"github.com/zafaroo/postcraft/internal/composer"
	"github.com/zafaroo/postcraft/internal/export"
	"github.com/zafaroo/postcraft/internal/geometry"
	"github.com/zafaroo/postcraft/internal/session"
	"github.com/zafaroo/postcraft/pkg/postformat"
)

func newTestApp(t *testing.T) (*App, *session.Session, *export.MemorySink) {
	t.Helper()

	reg := session.NewRegistry()
	t.Cleanup(reg.CloseAll)

	sess, err := reg.Open(postformat.NewsItem{
		Title:    "Fire breaks out near market - Dainik Bhaskar",
		Date:     time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC),
		Location: "Indore",
	})
	if err != nil {
		t.Fatal(err)
	}

	sink := &export.MemorySink{}
	app := NewApp(sess, command.NewExecutor(command.Options{}), sink)
	t.Cleanup(app.cancel)
	app.Update(tea.WindowSizeMsg{Width: 120, Height: 40})

	return app, sess, sink
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestApp_TransformKeys(t *testing.T) {
	app, sess, _ := newTestApp(t)

	app.Update(tea.KeyMsg{Type: tea.KeyRight})
	app.Update(tea.KeyMsg{Type: tea.KeyRight})
	app.Update(tea.KeyMsg{Type: tea.KeyUp})
	if off := sess.State().Offset; off != (geometry.Point{X: 10, Y: -5}) {
		t.Errorf("Offset = %v, want {10 -5}", off)
	}

	app.Update(runes("+"))
	app.Update(runes("+"))
	app.Update(runes("-"))
	if s := sess.State().Scale; math.Abs(s-1.1) > 1e-9 {
		t.Errorf("Scale = %v, want 1.1", s)
	}

	app.Update(runes("r"))
	st := sess.State()
	if st.Scale != 1 || st.Offset != (geometry.Point{}) {
		t.Errorf("After reset = %v / %v", st.Scale, st.Offset)
	}
}

func TestApp_ScaleKeysClamp(t *testing.T) {
	app, sess, _ := newTestApp(t)

	for i := 0; i < 40; i++ {
		app.Update(runes("+"))
	}
	if s := sess.State().Scale; s != geometry.MaxScale {
		t.Errorf("Scale = %v, want %v", s, geometry.MaxScale)
	}
}

func TestApp_AlignAndShadow(t *testing.T) {
	app, sess, _ := newTestApp(t)

	want := []string{"center", "right", "left"}
	for _, w := range want {
		app.Update(runes("a"))
		if got := string(sess.State().Align); got != w {
			t.Errorf("Align = %q, want %q", got, w)
		}
	}

	app.Update(runes("s"))
	if sess.State().Shadow {
		t.Error("Shadow still on after toggle")
	}
	app.Update(runes("s"))
	if !sess.State().Shadow {
		t.Error("Shadow still off after second toggle")
	}
}

func TestApp_Export(t *testing.T) {
	app, _, sink := newTestApp(t)

	_, cmd := app.Update(runes("e"))
	if cmd == nil {
		t.Fatal("Export key returned no command")
	}
	if !app.exporting {
		t.Error("Expected exporting flag while the export runs")
	}

	msg := cmd()
	done, ok := msg.(exportDoneMsg)
	if !ok {
		t.Fatalf("Command returned %T", msg)
	}
	app.Update(done)

	if app.exporting {
		t.Error("exporting flag not cleared")
	}
	a, ok := sink.Last()
	if !ok || a.Filename != composer.ExportFilename {
		t.Errorf("Last() = %+v, %v", a, ok)
	}
	if last := app.logs[len(app.logs)-1]; last.level != "success" {
		t.Errorf("Last log = %+v", last)
	}
}

func TestApp_CommandLine(t *testing.T) {
	app, sess, _ := newTestApp(t)

	app.Update(runes(":"))
	if !app.command.IsVisible() {
		t.Fatal("Command line not shown")
	}

	app.Update(runes("scale 2"))
	app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if s := sess.State().Scale; s != 2 {
		t.Errorf("Scale = %v, want 2", s)
	}

	// Keys go to the input while the command line is open
	app.Update(runes("r"))
	if s := sess.State().Scale; s != 2 {
		t.Errorf("Scale after typing r = %v, want 2", s)
	}

	app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if app.command.IsVisible() {
		t.Error("Command line still visible after Esc")
	}

	app.Update(runes(":"))
	app.Update(runes("bogus"))
	app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if last := app.logs[len(app.logs)-1]; last.level != "error" {
		t.Errorf("Last log = %+v, want an error", last)
	}
}

func TestApp_PreviewEvents(t *testing.T) {
	app, sess, _ := newTestApp(t)

	sess.Do(func(c *composer.Composer) error {
		c.SetTitle("Road closed")
		return nil
	})

	msg := app.waitForEvent()()
	if _, ok := msg.(previewMsg); !ok {
		t.Fatalf("waitForEvent() = %T", msg)
	}
	app.Update(msg)

	if app.state.Title != "Road closed" {
		t.Errorf("Title = %q", app.state.Title)
	}
	if strings.Join(app.preview.TitleLines, " ") != "Road closed" {
		t.Errorf("TitleLines = %v", app.preview.TitleLines)
	}
}

func TestApp_SessionClosedQuits(t *testing.T) {
	app, sess, _ := newTestApp(t)

	sess.Close()

	msg := app.waitForEvent()()
	if _, ok := msg.(sessionClosedMsg); !ok {
		t.Fatalf("waitForEvent() = %T", msg)
	}
	if _, cmd := app.Update(msg); cmd == nil || !app.quitting {
		t.Error("Closed session should quit the program")
	}
}

func TestApp_MouseDrag(t *testing.T) {
	app, sess, _ := newTestApp(t)

	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 400, 300))); err != nil {
		t.Fatal(err)
	}
	if _, err := sess.SetBackgroundImage(buf.Bytes()); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sess.AwaitDecode(ctx); err != nil {
		t.Fatalf("AwaitDecode() error = %v", err)
	}
	// Transform reset, then the decoded image
	app.Update(app.waitForEvent()())
	app.Update(app.waitForEvent()())

	// Cell (16,6) of the thumbnail is (165,130) in reference units,
	// cell (21,8) is (215,170)
	originX := sidebarWidth + 1 + contentPadLeft
	originY := contentPadTop + headerLines

	app.Update(tea.MouseMsg{X: originX + 16, Y: originY + 6, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	app.Update(tea.MouseMsg{X: originX + 21, Y: originY + 8, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft})
	app.Update(tea.MouseMsg{X: originX + 21, Y: originY + 8, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})

	if off := sess.State().Offset; off != (geometry.Point{X: 50, Y: 40}) {
		t.Errorf("Offset = %v, want {50 40}", off)
	}
}

func TestApp_View(t *testing.T) {
	app, _, _ := newTestApp(t)

	view := app.View()
	if got := strings.Count(view, "\n") + 1; got != 40 {
		t.Errorf("View has %d lines, want 40", got)
	}
	for _, want := range []string{"Postcraft", "Fire breaks out near market", "Indore | 5/3/2024"} {
		if !strings.Contains(view, want) {
			t.Errorf("View does not contain %q", want)
		}
	}
}

func TestThumbnail(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 320, 400))

	lines := Thumbnail(img, 32)
	if len(lines) != 20 {
		t.Fatalf("Thumbnail has %d rows, want 20", len(lines))
	}
	for i, l := range lines {
		if w := lipgloss.Width(l); w != 32 {
			t.Errorf("Row %d width = %d, want 32", i, w)
		}
	}

	if Thumbnail(image.NewRGBA(image.Rectangle{}), 32) != nil {
		t.Error("Empty image should give no thumbnail")
	}
}

func TestCellToReference(t *testing.T) {
	tests := []struct {
		cx, cy int
		want   geometry.Point
	}{
		{0, 0, geometry.Point{X: 5, Y: 10}},
		{16, 6, geometry.Point{X: 165, Y: 130}},
		{31, 19, geometry.Point{X: 315, Y: 390}},
	}

	for _, tt := range tests {
		if got := cellToReference(tt.cx, tt.cy, 32, 20); got != tt.want {
			t.Errorf("cellToReference(%d, %d) = %v, want %v", tt.cx, tt.cy, got, tt.want)
		}
	}
}

func TestNextAlign(t *testing.T) {
	tests := map[string]string{
		"left":    "center",
		"center":  "right",
		"right":   "left",
		"unknown": "left",
	}
	for in, want := range tests {
		if got := nextAlign(in); got != want {
			t.Errorf("nextAlign(%q) = %q, want %q", in, got, want)
		}
	}
}
