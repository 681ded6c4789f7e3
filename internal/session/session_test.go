package session

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/zafaroo/postcraft/internal/composer"
	"github.com/zafaroo/postcraft/internal/export"
	"github.com/zafaroo/postcraft/internal/geometry"
	"github.com/zafaroo/postcraft/internal/interaction"
	"github.com/zafaroo/postcraft/pkg/postformat"
)

func testItem() postformat.NewsItem {
	return postformat.NewsItem{
		Title:    "Fire breaks out near market - Dainik Bhaskar",
		Date:     time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC),
		Location: "Indore",
	}
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	im := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for i := range im.Pix {
		im.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, im); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func waitDecode(t *testing.T, s *Session) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.AwaitDecode(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		t.Fatal("AwaitDecode() timed out")
	}
	return err
}

func TestRegistry_OpenGetClose(t *testing.T) {
	reg := NewRegistry()
	defer reg.CloseAll()

	s, err := reg.Open(testItem())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if s.ID == "" {
		t.Fatal("Expected a session ID")
	}

	if reg.Get(s.ID) != s {
		t.Error("Get() did not return the opened session")
	}
	if reg.Len() != 1 {
		t.Errorf("Len() = %d, want 1", reg.Len())
	}

	infos := reg.List()
	if len(infos) != 1 || infos[0].Title != "Fire breaks out near market" {
		t.Errorf("List() = %+v", infos)
	}

	if !reg.Close(s.ID) {
		t.Error("Close() = false for an open session")
	}
	if reg.Get(s.ID) != nil {
		t.Error("Get() after Close should return nil")
	}
	if reg.Close(s.ID) {
		t.Error("Close() twice should return false")
	}

	if err := s.Do(func(c *composer.Composer) error { return nil }); !errors.Is(err, composer.ErrClosed) {
		t.Errorf("Do() on a closed session = %v, want ErrClosed", err)
	}
}

func TestRegistry_SessionsAreIndependent(t *testing.T) {
	reg := NewRegistry()
	defer reg.CloseAll()

	a, _ := reg.Open(testItem())
	b, _ := reg.Open(testItem())

	a.Do(func(c *composer.Composer) error {
		c.SetScale(2)
		return nil
	})

	if b.State().Scale != 1 {
		t.Errorf("Scale of the other session = %v, want 1", b.State().Scale)
	}
	if a.ID == b.ID {
		t.Error("Sessions share an ID")
	}
}

func TestRegistry_OpenPost(t *testing.T) {
	reg := NewRegistry()
	defer reg.CloseAll()

	post := &postformat.Post{
		Version:    postformat.Version,
		Item:       testItem(),
		Title:      "Custom headline",
		Style:      postformat.Style{Align: "center", TitleFontSize: 30},
		Background: &postformat.Background{Base64: base64.StdEncoding.EncodeToString(testPNG(t))},
	}

	s, err := reg.OpenPost(post)
	if err != nil {
		t.Fatalf("OpenPost() error = %v", err)
	}

	if err := waitDecode(t, s); err != nil {
		t.Fatalf("AwaitDecode() error = %v", err)
	}

	info := s.Info()
	if info.Title != "Custom headline" || !info.HasBackground || info.Pending {
		t.Errorf("Info() = %+v", info)
	}
	if st := s.State(); st.Align != "center" || st.TitleFontSize != 30 {
		t.Errorf("State() = %+v", st)
	}
}

func TestRegistry_OpenPostBadBase64(t *testing.T) {
	reg := NewRegistry()
	defer reg.CloseAll()

	post := &postformat.Post{
		Version:    postformat.Version,
		Item:       testItem(),
		Background: &postformat.Background{Base64: "!!!"},
	}

	if _, err := reg.OpenPost(post); err == nil {
		t.Error("OpenPost() with bad base64 should fail")
	}
	if reg.Len() != 0 {
		t.Errorf("Failed OpenPost() left %d sessions", reg.Len())
	}
}

func TestSession_SubscribeReceivesRenders(t *testing.T) {
	reg := NewRegistry()
	defer reg.CloseAll()
	s, _ := reg.Open(testItem())

	events, cancel := s.Subscribe()
	defer cancel()

	s.Do(func(c *composer.Composer) error {
		c.SetTitle("Road closed")
		return nil
	})

	select {
	case ev := <-events:
		if ev.Type != EventPreview || ev.Result == nil || ev.State.Title != "Road closed" {
			t.Errorf("Event = %+v", ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("No render event")
	}
}

func TestSession_CloseEndsSubscriptions(t *testing.T) {
	reg := NewRegistry()
	s, _ := reg.Open(testItem())

	events, cancel := s.Subscribe()
	defer cancel()

	reg.Close(s.ID)

	var sawClosed bool
	for ev := range events {
		if ev.Type == EventClosed {
			sawClosed = true
		}
	}
	if !sawClosed {
		t.Error("Expected a closed event before the channel closed")
	}
}

func TestSession_PointerDrag(t *testing.T) {
	reg := NewRegistry()
	defer reg.CloseAll()
	s, _ := reg.Open(testItem())

	if _, err := s.SetBackgroundImage(testPNG(t)); err != nil {
		t.Fatal(err)
	}
	if err := waitDecode(t, s); err != nil {
		t.Fatal(err)
	}

	_, cursor, err := s.Pointer(interaction.Event{Type: "down", X: 160, Y: 120})
	if err != nil {
		t.Fatal(err)
	}
	if cursor != interaction.CursorGrabbing {
		t.Errorf("Cursor while dragging = %q", cursor)
	}
	if s.InteractionState() != interaction.Dragging {
		t.Errorf("InteractionState() = %v", s.InteractionState())
	}

	changed, _, _ := s.Pointer(interaction.Event{Type: "move", X: 210, Y: 150})
	if !changed {
		t.Error("Move while dragging should change the state")
	}
	s.Pointer(interaction.Event{Type: "up"})

	if off := s.State().Offset; off != (geometry.Point{X: 50, Y: 30}) {
		t.Errorf("Offset = %v, want {50 30}", off)
	}
}

func TestSession_DecodeFailure(t *testing.T) {
	reg := NewRegistry()
	defer reg.CloseAll()
	s, _ := reg.Open(testItem())

	s.SetBackgroundImage([]byte("garbage"))
	err := waitDecode(t, s)

	var decodeErr *composer.DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("AwaitDecode() = %v, want *DecodeError", err)
	}

	res, err := s.Preview()
	if res == nil || !errors.As(err, &decodeErr) {
		t.Errorf("Preview() = %v, %v", res, err)
	}
}

func TestSession_Export(t *testing.T) {
	reg := NewRegistry()
	defer reg.CloseAll()
	s, _ := reg.Open(testItem())

	var sink export.MemorySink
	if err := s.Export(context.Background(), &sink); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if a, ok := sink.Last(); !ok || a.Filename != composer.ExportFilename {
		t.Errorf("Last() = %+v, %v", a, ok)
	}
}

func TestSession_ConcurrentAccess(t *testing.T) {
	reg := NewRegistry()
	defer reg.CloseAll()
	s, _ := reg.Open(testItem())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Do(func(c *composer.Composer) error {
				c.SetOffset(geometry.Point{X: float64(i)})
				return nil
			})
			s.Pointer(interaction.Event{Type: "leave"})
			_ = s.Info()
		}(i)
	}
	wg.Wait()

	if x := s.State().Offset.X; x < 0 || x > 7 {
		t.Errorf("Offset.X = %v, want one of the written values", x)
	}
}

func TestSession_ColorStyle(t *testing.T) {
	reg := NewRegistry(composer.WithStyle(postformat.Style{PanelColor: "#102030"}))
	defer reg.CloseAll()
	s, err := reg.Open(testItem())
	if err != nil {
		t.Fatal(err)
	}

	if got := s.State().PanelColor; got != (color.RGBA{0x10, 0x20, 0x30, 0xff}) {
		t.Errorf("PanelColor = %v", got)
	}
}
