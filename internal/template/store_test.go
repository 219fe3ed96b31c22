package template

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"wamsg/internal/eventbus"
	"wamsg/internal/storage"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(t *testing.T, kv storage.KV, opts ...Option) *Store {
	t.Helper()
	s := NewStore(kv, opts...)
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return s
}

func TestCreateThenLoadRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	kv := storage.NewMemory()

	s := newTestStore(t, kv)
	created, err := s.Create(ctx, "  Welcome ", "Hi there,\nthanks for joining!  ")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Name != "Welcome" || created.Message != "Hi there,\nthanks for joining!" {
		t.Fatalf("fields not trimmed: %+v", created)
	}
	if !created.CreatedAt.Equal(created.UpdatedAt) {
		t.Fatalf("createdAt %v != updatedAt %v", created.CreatedAt, created.UpdatedAt)
	}

	fresh := newTestStore(t, kv)
	got := fresh.List()
	if len(got) != 1 {
		t.Fatalf("List len = %d, want 1", len(got))
	}
	if got[0].ID != created.ID || got[0].Name != created.Name || got[0].Message != created.Message {
		t.Fatalf("round trip mismatch: got %+v want %+v", got[0], created)
	}
	if !got[0].CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("createdAt changed across load: %v vs %v", got[0].CreatedAt, created.CreatedAt)
	}
}

func TestListPreservesInsertionOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t, storage.NewMemory())
	for _, n := range []string{"c", "a", "b"} {
		if _, err := s.Create(ctx, n, "body "+n); err != nil {
			t.Fatalf("Create(%s): %v", n, err)
		}
	}
	got := s.List()
	for i, want := range []string{"c", "a", "b"} {
		if got[i].Name != want {
			t.Fatalf("List[%d] = %q, want %q", i, got[i].Name, want)
		}
	}
}

func TestCreateValidation(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name, tplName, message, field string
	}{
		{name: "empty name", tplName: "", message: "x", field: "name"},
		{name: "empty message", tplName: "x", message: "", field: "message"},
		{name: "blank both", tplName: "  ", message: "  ", field: "name"},
		{name: "blank message", tplName: "x", message: "\n\t ", field: "message"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			kv := storage.NewMemory()
			s := newTestStore(t, kv)
			_, err := s.Create(context.Background(), tt.tplName, tt.message)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("err = %v, want ErrValidation", err)
			}
			var ve *ValidationError
			if !errors.As(err, &ve) || ve.Field != tt.field {
				t.Fatalf("err = %#v, want field %q", err, tt.field)
			}
			if len(s.List()) != 0 || kv.Writes() != 0 {
				t.Fatalf("failed create must not mutate or persist (len=%d writes=%d)", len(s.List()), kv.Writes())
			}
		})
	}

	s := newTestStore(t, storage.NewMemory())
	if _, err := s.Create(context.Background(), "A", "B"); err != nil {
		t.Fatalf("Create(A, B): %v", err)
	}
}

func TestUpdatePreservesIdentity(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clk := &fakeClock{t: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
	s := newTestStore(t, storage.NewMemory(), WithClock(clk.now))

	orig, err := s.Create(ctx, "A", "B")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	clk.advance(time.Minute)

	got, err := s.Update(ctx, orig.ID, "A2", "B2")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.ID != orig.ID || !got.CreatedAt.Equal(orig.CreatedAt) {
		t.Fatalf("identity changed: %+v vs %+v", got, orig)
	}
	if got.Name != "A2" || got.Message != "B2" {
		t.Fatalf("fields not updated: %+v", got)
	}
	if !got.UpdatedAt.After(orig.UpdatedAt) {
		t.Fatalf("updatedAt %v not after %v", got.UpdatedAt, orig.UpdatedAt)
	}
	if stored, _ := s.Get(orig.ID); stored != got {
		t.Fatalf("store holds %+v, returned %+v", stored, got)
	}
}

func TestUpdateWithStalledClockStillAdvances(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clk := &fakeClock{t: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
	s := newTestStore(t, storage.NewMemory(), WithClock(clk.now))

	orig, _ := s.Create(ctx, "A", "B")
	first, err := s.Update(ctx, orig.ID, "A", "B2")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	second, err := s.Update(ctx, orig.ID, "A", "B3")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !first.UpdatedAt.After(orig.UpdatedAt) || !second.UpdatedAt.After(first.UpdatedAt) {
		t.Fatalf("updatedAt not strictly increasing: %v, %v, %v", orig.UpdatedAt, first.UpdatedAt, second.UpdatedAt)
	}
}

func TestUpdateUnknownID(t *testing.T) {
	t.Parallel()
	kv := storage.NewMemory()
	s := newTestStore(t, kv)
	_, err := s.Update(context.Background(), "missing", "A", "B")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if kv.Writes() != 0 {
		t.Fatalf("writes = %d, want 0", kv.Writes())
	}
}

func TestUpdateValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t, storage.NewMemory())
	orig, _ := s.Create(ctx, "A", "B")
	if _, err := s.Update(ctx, orig.ID, "A", "   "); !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if got, _ := s.Get(orig.ID); got.Message != "B" {
		t.Fatalf("failed update mutated template: %+v", got)
	}
}

func TestDeleteIsLenient(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	kv := storage.NewMemory()
	s := newTestStore(t, kv)
	keep, _ := s.Create(ctx, "keep", "x")

	if err := s.Delete(ctx, "does-not-exist"); err != nil {
		t.Fatalf("Delete(missing): %v", err)
	}
	got := s.List()
	if len(got) != 1 || got[0].ID != keep.ID {
		t.Fatalf("collection changed: %+v", got)
	}

	if err := s.Delete(ctx, keep.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(s.List()) != 0 {
		t.Fatalf("expected empty collection")
	}
	if fresh := newTestStore(t, kv); len(fresh.List()) != 0 {
		t.Fatalf("delete not persisted")
	}
}

func TestEveryMutationWritesOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	kv := storage.NewMemory()
	s := newTestStore(t, kv)

	a, _ := s.Create(ctx, "a", "1")
	_, _ = s.Update(ctx, a.ID, "a", "2")
	_ = s.Delete(ctx, "nope")
	_ = s.Delete(ctx, a.ID)
	_ = s.List()

	if kv.Writes() != 4 {
		t.Fatalf("writes = %d, want 4", kv.Writes())
	}
}

func TestLoadTreatsMalformedAsEmpty(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	for _, blob := range []string{`{not json`, `{"id":"x"}`, `null`, ``} {
		kv := storage.NewMemory()
		_ = kv.Set(ctx, DefaultKey, []byte(blob))
		s := NewStore(kv)
		if err := s.Load(ctx); err != nil {
			t.Fatalf("Load(%q): %v", blob, err)
		}
		if n := len(s.List()); n != 0 {
			t.Fatalf("Load(%q): len = %d, want 0", blob, n)
		}
	}
}

func TestLoadReadsOriginalLayout(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	kv := storage.NewMemory()
	blob := `[{"id":"3f1c","name":"Promo","message":"50% off\ntoday","createdAt":"2024-05-01T09:30:00.000Z","updatedAt":"2024-05-02T11:00:00.000Z"}]`
	_ = kv.Set(ctx, DefaultKey, []byte(blob))

	s := newTestStore(t, kv)
	got, ok := s.Get("3f1c")
	if !ok {
		t.Fatal("template not loaded")
	}
	if got.Message != "50% off\ntoday" || got.UpdatedAt.Day() != 2 {
		t.Fatalf("unexpected template: %+v", got)
	}
}

type failingKV struct {
	*storage.Memory
	fail bool
}

func (f *failingKV) Set(ctx context.Context, key string, value []byte) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.Memory.Set(ctx, key, value)
}

func TestFailedPersistLeavesStateUnchanged(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	kv := &failingKV{Memory: storage.NewMemory()}
	s := newTestStore(t, kv)
	a, _ := s.Create(ctx, "a", "1")

	kv.fail = true
	if _, err := s.Create(ctx, "b", "2"); err == nil {
		t.Fatal("expected Create error")
	}
	if _, err := s.Update(ctx, a.ID, "a", "changed"); err == nil {
		t.Fatal("expected Update error")
	}
	if err := s.Delete(ctx, a.ID); err == nil {
		t.Fatal("expected Delete error")
	}

	got := s.List()
	if len(got) != 1 || got[0].Message != "1" {
		t.Fatalf("in-memory state diverged from persisted: %+v", got)
	}
}

func TestIDsAreUnique(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ids := []string{"dup", "dup", "", "fresh"}
	n := 0
	gen := func() string {
		id := ids[n]
		n++
		return id
	}
	s := newTestStore(t, storage.NewMemory(), WithIDGenerator(gen))
	a, _ := s.Create(ctx, "a", "1")
	b, _ := s.Create(ctx, "b", "2")
	if a.ID != "dup" || b.ID != "fresh" {
		t.Fatalf("ids = %q, %q; want dup, fresh", a.ID, b.ID)
	}
}

func TestOutcomesPublished(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	bus := eventbus.New()
	ch, unsub := bus.Subscribe(16)
	defer unsub()

	s := newTestStore(t, storage.NewMemory(), WithBus(bus))
	a, _ := s.Create(ctx, "a", "1")
	_, _ = s.Create(ctx, "", "1")
	_, _ = s.Update(ctx, a.ID, "a", "2")
	_ = s.Delete(ctx, a.ID)

	want := []string{eventbus.TemplateCreated, eventbus.TemplateValidationFailed, eventbus.TemplateUpdated, eventbus.TemplateDeleted}
	for i, w := range want {
		select {
		case e := <-ch:
			if e.Type != w {
				t.Fatalf("event %d = %q, want %q", i, e.Type, w)
			}
		default:
			t.Fatalf("missing event %d (%s)", i, w)
		}
	}
}

func TestCustomKey(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	kv := storage.NewMemory()
	s := newTestStore(t, kv, WithKey("team-a"))
	_, _ = s.Create(ctx, "a", "1")
	if _, ok, _ := kv.Get(ctx, "team-a"); !ok {
		t.Fatal("expected blob under custom key")
	}
	if _, ok, _ := kv.Get(ctx, DefaultKey); ok {
		t.Fatal("default key must stay untouched")
	}
}

func ExampleStore_Create() {
	s := NewStore(storage.NewMemory(), WithIDGenerator(func() string { return "t1" }))
	_ = s.Load(context.Background())
	t, _ := s.Create(context.Background(), "Welcome", "Hello!")
	fmt.Println(t.ID, t.Name, t.Chars())
	// Output: t1 Welcome 6
}
