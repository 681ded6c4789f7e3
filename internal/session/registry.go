package session

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/zafaroo/postcraft/internal/composer"
	"github.com/zafaroo/postcraft/pkg/postformat"
)

// Registry holds the open sessions. Nothing is written to disk; a session
// lives until it is closed or the process exits.
type Registry struct {
	data map[string]*Session
	opts []composer.Option
	mu   sync.RWMutex
}

// NewRegistry creates a registry whose sessions share opts, typically the
// renderer and the default style
func NewRegistry(opts ...composer.Option) *Registry {
	return &Registry{
		data: make(map[string]*Session),
		opts: opts,
	}
}

// Open starts a session for item. Extra options apply after the registry's.
func (r *Registry) Open(item postformat.NewsItem, opts ...composer.Option) (*Session, error) {
	all := make([]composer.Option, 0, len(r.opts)+len(opts))
	all = append(all, r.opts...)
	all = append(all, opts...)

	comp, err := composer.New(item, all...)
	if err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}

	s := newSession(uuid.New().String(), comp)

	r.mu.Lock()
	r.data[s.ID] = s
	r.mu.Unlock()

	return s, nil
}

// OpenPost starts a session from a parsed .post document, including its
// title override and background
func (r *Registry) OpenPost(post *postformat.Post) (*Session, error) {
	s, err := r.Open(post.Item, composer.WithStyle(post.Style))
	if err != nil {
		return nil, err
	}

	if post.Title != "" {
		s.Do(func(c *composer.Composer) error {
			c.SetTitle(post.Title)
			return nil
		})
	}

	if post.Background != nil {
		data, err := post.BackgroundBytes()
		if err != nil {
			r.Close(s.ID)
			return nil, err
		}
		if _, err := s.SetBackgroundImage(data); err != nil {
			r.Close(s.ID)
			return nil, err
		}
	}

	return s, nil
}

// Get returns a session by ID, or nil
func (r *Registry) Get(id string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.data[id]
}

// Close closes and removes a session
func (r *Registry) Close(id string) bool {
	r.mu.Lock()
	s, ok := r.data[id]
	delete(r.data, id)
	r.mu.Unlock()

	if !ok {
		return false
	}
	s.Close()
	return true
}

// List returns summaries of every open session, oldest first
func (r *Registry) List() []Info {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.data))
	for _, s := range r.data {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	infos := make([]Info, 0, len(sessions))
	for _, s := range sessions {
		infos = append(infos, s.Info())
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos
}

// Len returns the number of open sessions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}

// CloseAll closes every session
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.data
	r.data = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
