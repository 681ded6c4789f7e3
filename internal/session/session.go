// Package session keeps the open compositions of a server in memory
package session

import (
	"context"
	"sync"
	"time"

	"github.com/zafaroo/postcraft/internal/composer"
	"github.com/zafaroo/postcraft/internal/export"
	"github.com/zafaroo/postcraft/internal/geometry"
	"github.com/zafaroo/postcraft/internal/interaction"
	"github.com/zafaroo/postcraft/internal/renderer"
)

// subscriberBuffer is the number of events a slow subscriber may lag
// behind before events are dropped for it
const subscriberBuffer = 8

// Event types
const (
	EventPreview = "preview"
	EventClosed  = "closed"
)

// Event is sent to subscribers after every preview render and on close
type Event struct {
	Type    string
	Session string
	Result  *renderer.Result
	Err     error
	State   composer.State
}

// Session is one composition. All access to the composer goes through
// the session's lock, so HTTP handlers, websocket readers and the decode
// pump see one ordered stream of changes.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu   sync.Mutex
	comp *composer.Composer
	ctrl *interaction.Controller

	subs    map[int]chan Event
	nextSub int

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func newSession(id string, comp *composer.Composer) *Session {
	s := &Session{
		ID:        id,
		CreatedAt: time.Now(),
		comp:      comp,
		ctrl:      interaction.NewController(comp),
		subs:      make(map[int]chan Event),
		done:      make(chan struct{}),
	}

	comp.OnRender(func(res *renderer.Result, err error) {
		s.publish(Event{Type: EventPreview, Session: s.ID, Result: res, Err: err, State: comp.State()})
	})

	s.wg.Add(1)
	go s.pump()

	return s
}

// pump applies finished background decodes
func (s *Session) pump() {
	defer s.wg.Done()

	for {
		select {
		case <-s.done:
			return
		case ev := <-s.comp.Decoded():
			s.mu.Lock()
			s.comp.ApplyDecoded(ev)
			s.mu.Unlock()
		}
	}
}

// publish fans ev out to subscribers. Callers hold s.mu.
func (s *Session) publish(ev Event) {
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe returns a channel of render events and a function that ends the
// subscription. The channel is closed when either is called or the session
// closes.
func (s *Session) Subscribe() (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if s.comp.Closed() {
		close(ch)
		return ch, func() {}
	}

	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

// Do runs fn with exclusive access to the composer
func (s *Session) Do(fn func(c *composer.Composer) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.comp.Closed() {
		return composer.ErrClosed
	}
	return fn(s.comp)
}

// State returns a copy of the composition state
func (s *Session) State() composer.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.comp.State()
}

// Preview returns the last rendered preview
func (s *Session) Preview() (*renderer.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.comp.LastPreview()
}

// Pointer feeds a pointer event to the session's interaction controller and
// returns the cursor hint for the pointer position afterwards
func (s *Session) Pointer(ev interaction.Event) (changed bool, cursor string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.comp.Closed() {
		return false, "", composer.ErrClosed
	}

	changed, err = s.ctrl.Handle(ev)
	if err != nil {
		return false, "", err
	}
	return changed, s.ctrl.Cursor(geometry.Point{X: ev.X, Y: ev.Y}), nil
}

// InteractionState returns the controller state
func (s *Session) InteractionState() interaction.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.State()
}

// SetBackgroundImage starts decoding data and returns the request token
func (s *Session) SetBackgroundImage(data []byte) (uint64, error) {
	var token uint64
	err := s.Do(func(c *composer.Composer) error {
		token = c.SetBackgroundImage(data)
		return nil
	})
	return token, err
}

// AwaitDecode waits until the latest background request has been applied
// and returns its decode error, if any
func (s *Session) AwaitDecode(ctx context.Context) error {
	events, cancel := s.Subscribe()
	defer cancel()

	for {
		s.mu.Lock()
		closed := s.comp.Closed()
		pending := s.comp.Pending()
		err := s.comp.DecodeErr()
		s.mu.Unlock()

		if closed {
			return composer.ErrClosed
		}
		if !pending {
			return err
		}

		select {
		case _, ok := <-events:
			if !ok {
				return composer.ErrClosed
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Export renders the final image into sink
func (s *Session) Export(ctx context.Context, sink export.Sink) error {
	return s.Do(func(c *composer.Composer) error {
		return c.Export(ctx, sink)
	})
}

// RenderFinal renders the final artifact without exporting it
func (s *Session) RenderFinal() (*composer.Artifact, error) {
	var art *composer.Artifact
	err := s.Do(func(c *composer.Composer) error {
		var err error
		art, err = c.RenderFinal()
		return err
	})
	return art, err
}

// Close discards the composition and ends every subscription
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)

		s.mu.Lock()
		s.comp.Close()
		for id, ch := range s.subs {
			select {
			case ch <- Event{Type: EventClosed, Session: s.ID}:
			default:
			}
			close(ch)
			delete(s.subs, id)
		}
		s.mu.Unlock()

		s.wg.Wait()
	})
}

// Info summarizes a session for listings
type Info struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Location      string    `json:"location"`
	HasBackground bool      `json:"has_background"`
	Pending       bool      `json:"pending"`
	CreatedAt     time.Time `json:"created_at"`
}

// Info returns the session summary
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.comp.State()
	return Info{
		ID:            s.ID,
		Title:         st.DrawnTitle(),
		Location:      st.Location,
		HasBackground: s.comp.HasBackground(),
		Pending:       s.comp.Pending(),
		CreatedAt:     s.CreatedAt,
	}
}
