package template

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"wamsg/internal/eventbus"
	"wamsg/internal/storage"
	logx "wamsg/pkg/logx"
)

// Clock returns the current time. Store stamps CreatedAt/UpdatedAt with it.
type Clock func() time.Time

// IDGenerator returns a fresh opaque identifier.
type IDGenerator func() string

type Option func(*Store)

func WithKey(key string) Option {
	return func(s *Store) {
		if k := strings.TrimSpace(key); k != "" {
			s.key = k
		}
	}
}

func WithClock(c Clock) Option {
	return func(s *Store) {
		if c != nil {
			s.now = c
		}
	}
}

func WithIDGenerator(g IDGenerator) Option {
	return func(s *Store) {
		if g != nil {
			s.newID = g
		}
	}
}

func WithLogger(log logx.Logger) Option {
	return func(s *Store) {
		if !log.IsZero() {
			s.log = log
		}
	}
}

func WithBus(b eventbus.Bus) Option {
	return func(s *Store) { s.bus = b }
}

// Store is the ordered template collection backed by a KV blob.
type Store struct {
	kv    storage.KV
	key   string
	now   Clock
	newID IDGenerator
	log   logx.Logger
	bus   eventbus.Bus

	mu    sync.RWMutex
	items []Template
}

func NewStore(kv storage.KV, opts ...Option) *Store {
	s := &Store{
		kv:    kv,
		key:   DefaultKey,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
		log:   logx.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Load replaces the in-memory collection with the persisted one.
//
// An absent key yields an empty collection. So does a blob that fails to
// parse: it is logged and otherwise treated as "no data yet". Read errors
// from the backend are returned.
func (s *Store) Load(ctx context.Context) error {
	b, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}

	var items []Template
	if ok && len(b) > 0 {
		if err := json.Unmarshal(b, &items); err != nil {
			s.log.Warn("persisted templates unreadable; starting empty",
				logx.String("key", s.key), logx.Int("bytes", len(b)), logx.Err(err))
			items = nil
		}
	}

	s.mu.Lock()
	s.items = items
	s.mu.Unlock()

	s.log.Debug("templates loaded", logx.String("key", s.key), logx.Int("count", len(items)))
	return nil
}

// List returns the collection in insertion order. The slice is a copy.
func (s *Store) List() []Template {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Template(nil), s.items...)
}

// Get returns the template with the given id.
func (s *Store) Get(id string) (Template, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.items[i], true
	}
	return Template{}, false
}

func (s *Store) Create(ctx context.Context, name, message string) (Template, error) {
	name, message, err := s.validate(name, message)
	if err != nil {
		return Template{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	t := Template{
		ID:        s.uniqueIDLocked(),
		Name:      name,
		Message:   message,
		CreatedAt: now,
		UpdatedAt: now,
	}
	next := make([]Template, 0, len(s.items)+1)
	next = append(next, s.items...)
	next = append(next, t)

	if err := s.persistLocked(ctx, next); err != nil {
		return Template{}, err
	}
	s.items = next

	s.log.Info("template created", logx.String("id", t.ID), logx.String("name", t.Name))
	eventbus.Publish(s.bus, eventbus.TemplateCreated, eventbus.TemplateEvent{ID: t.ID, Name: t.Name})
	return t, nil
}

func (s *Store) Update(ctx context.Context, id, name, message string) (Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return Template{}, &NotFoundError{ID: id}
	}
	name, message, err := s.validate(name, message)
	if err != nil {
		return Template{}, err
	}

	t := s.items[i]
	t.Name = name
	t.Message = message
	t.UpdatedAt = s.now()
	// Keep UpdatedAt strictly increasing even with a coarse or skewed clock.
	if !t.UpdatedAt.After(s.items[i].UpdatedAt) {
		t.UpdatedAt = s.items[i].UpdatedAt.Add(time.Millisecond)
	}

	next := append([]Template(nil), s.items...)
	next[i] = t

	if err := s.persistLocked(ctx, next); err != nil {
		return Template{}, err
	}
	s.items = next

	s.log.Info("template updated", logx.String("id", t.ID), logx.String("name", t.Name))
	eventbus.Publish(s.bus, eventbus.TemplateUpdated, eventbus.TemplateEvent{ID: t.ID, Name: t.Name})
	return t, nil
}

// Delete removes the template if present. An unknown id is not an error;
// the collection is persisted either way.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]Template, 0, len(s.items))
	var removed *Template
	for i := range s.items {
		if s.items[i].ID == id {
			t := s.items[i]
			removed = &t
			continue
		}
		next = append(next, s.items[i])
	}

	if err := s.persistLocked(ctx, next); err != nil {
		return err
	}
	s.items = next

	if removed == nil {
		s.log.Debug("template delete: id not present", logx.String("id", id))
		return nil
	}
	s.log.Info("template deleted", logx.String("id", removed.ID), logx.String("name", removed.Name))
	eventbus.Publish(s.bus, eventbus.TemplateDeleted, eventbus.TemplateEvent{ID: removed.ID, Name: removed.Name})
	return nil
}

func (s *Store) validate(name, message string) (string, string, error) {
	name = strings.TrimSpace(name)
	message = strings.TrimSpace(message)

	field := ""
	switch {
	case name == "":
		field = "name"
	case message == "":
		field = "message"
	}
	if field != "" {
		eventbus.Publish(s.bus, eventbus.TemplateValidationFailed, eventbus.TemplateEvent{Field: field})
		return "", "", &ValidationError{Field: field}
	}
	return name, message, nil
}

func (s *Store) persistLocked(ctx context.Context, items []Template) error {
	if items == nil {
		items = []Template{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode templates: %w", err)
	}
	if err := s.kv.Set(ctx, s.key, b); err != nil {
		s.log.Error("persist templates failed", logx.String("key", s.key), logx.Err(err))
		return fmt.Errorf("persist templates: %w", err)
	}
	return nil
}

func (s *Store) indexLocked(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) uniqueIDLocked() string {
	for {
		id := s.newID()
		if id != "" && s.indexLocked(id) < 0 {
			return id
		}
	}
}
