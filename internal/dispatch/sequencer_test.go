package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"wamsg/internal/eventbus"
	"wamsg/internal/template"
)

// recorder is a fake opener that refuses the attempts listed in refuse
// (1-based) and records every attempted URL.
type recorder struct {
	attempts []string
	refuse   map[int]error
}

func (r *recorder) Open(ctx context.Context, url string) error {
	r.attempts = append(r.attempts, url)
	if err, ok := r.refuse[len(r.attempts)]; ok {
		return err
	}
	return nil
}

type sleepLog struct {
	calls []time.Duration
	err   error
}

func (s *sleepLog) sleep(ctx context.Context, d time.Duration) error {
	s.calls = append(s.calls, d)
	return s.err
}

var tpl = &template.Template{ID: "t1", Name: "Promo", Message: "Hi all"}

const threeContacts = "+1 111\n+2 222\n+3 333"

func newTestSequencer(op Opener, sl *sleepLog, opts ...Option) *Sequencer {
	opts = append([]Option{WithSleeper(sl.sleep)}, opts...)
	return New(Config{}, op, opts...)
}

func TestBulkOpensEveryContactInOrder(t *testing.T) {
	t.Parallel()
	op := &recorder{}
	sl := &sleepLog{}
	s := newTestSequencer(op, sl)

	res, err := s.Dispatch(context.Background(), tpl, threeContacts, ModeBulk)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	want := []string{
		"https://wa.me/1111?text=Hi%20all",
		"https://wa.me/2222?text=Hi%20all",
		"https://wa.me/3333?text=Hi%20all",
	}
	if strings.Join(op.attempts, ",") != strings.Join(want, ",") {
		t.Fatalf("attempts = %q, want %q", op.attempts, want)
	}
	if len(sl.calls) != 2 || sl.calls[0] != DefaultDelay || sl.calls[1] != DefaultDelay {
		t.Fatalf("sleeps = %v, want two of %v", sl.calls, DefaultDelay)
	}
	if res.Opened != 3 || res.Total != 3 {
		t.Fatalf("result = %+v, want 3/3", res)
	}
}

func TestBulkAbortsOnFirstRefusal(t *testing.T) {
	t.Parallel()
	op := &recorder{refuse: map[int]error{2: ErrRefused}}
	sl := &sleepLog{}
	s := newTestSequencer(op, sl)

	res, err := s.Dispatch(context.Background(), tpl, threeContacts, ModeBulk)
	if !errors.Is(err, ErrPopupBlocked) {
		t.Fatalf("err = %v, want ErrPopupBlocked", err)
	}
	var pb *PopupBlockedError
	if !errors.As(err, &pb) || pb.Index != 1 || pb.Contact != "2222" {
		t.Fatalf("err = %#v, want index 1 contact 2222", err)
	}
	if !errors.Is(err, ErrRefused) {
		t.Fatal("PopupBlockedError should unwrap to the opener's refusal")
	}
	if len(op.attempts) != 2 {
		t.Fatalf("attempts = %d, want 2 (third contact must not be tried)", len(op.attempts))
	}
	if len(sl.calls) != 1 {
		t.Fatalf("sleeps = %d, want 1", len(sl.calls))
	}
	if res.Opened != 1 {
		t.Fatalf("Opened = %d, want 1", res.Opened)
	}
}

func TestSingleUsesFirstContactOnly(t *testing.T) {
	t.Parallel()
	op := &recorder{}
	sl := &sleepLog{}
	s := newTestSequencer(op, sl)

	res, err := s.Dispatch(context.Background(), tpl, "garbage\n"+threeContacts, ModeSingle)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(op.attempts) != 1 || op.attempts[0] != "https://wa.me/1111?text=Hi%20all" {
		t.Fatalf("attempts = %q", op.attempts)
	}
	if len(sl.calls) != 0 {
		t.Fatalf("single mode must not sleep, got %v", sl.calls)
	}
	if res.Opened != 1 || res.Total != 1 {
		t.Fatalf("result = %+v", res)
	}
}

func TestSingleRefusal(t *testing.T) {
	t.Parallel()
	op := &recorder{refuse: map[int]error{1: ErrRefused}}
	s := newTestSequencer(op, &sleepLog{})
	if _, err := s.Dispatch(context.Background(), tpl, "123", ModeSingle); !errors.Is(err, ErrPopupBlocked) {
		t.Fatalf("err = %v, want ErrPopupBlocked", err)
	}
}

func TestPreconditions(t *testing.T) {
	t.Parallel()
	op := &recorder{}
	s := newTestSequencer(op, &sleepLog{})

	if _, err := s.Dispatch(context.Background(), nil, "123", ModeBulk); !errors.Is(err, ErrNoTemplateSelected) {
		t.Fatalf("nil template: err = %v", err)
	}
	if _, err := s.Dispatch(context.Background(), tpl, "abc\n\n  ", ModeBulk); !errors.Is(err, ErrNoValidContacts) {
		t.Fatalf("no contacts: err = %v", err)
	}
	if _, err := s.Dispatch(context.Background(), tpl, "123", Mode("blast")); err == nil {
		t.Fatal("unknown mode: expected error")
	}
	if len(op.attempts) != 0 {
		t.Fatalf("preconditions must fail before any open, got %d", len(op.attempts))
	}
}

func TestCancelDuringDelay(t *testing.T) {
	t.Parallel()
	op := &recorder{}
	sl := &sleepLog{err: context.Canceled}
	s := newTestSequencer(op, sl)

	res, err := s.Dispatch(context.Background(), tpl, threeContacts, ModeBulk)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(op.attempts) != 1 || res.Opened != 1 {
		t.Fatalf("attempts = %d opened = %d, want 1/1", len(op.attempts), res.Opened)
	}
}

func TestCanceledContextOpensNothing(t *testing.T) {
	t.Parallel()
	op := &recorder{}
	s := newTestSequencer(op, &sleepLog{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Dispatch(ctx, tpl, threeContacts, ModeBulk); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if len(op.attempts) != 0 {
		t.Fatalf("attempts = %d, want 0", len(op.attempts))
	}
}

func TestOtherOpenErrorStopsSequence(t *testing.T) {
	t.Parallel()
	boom := errors.New("exec: xdg-open not found")
	op := &recorder{refuse: map[int]error{1: boom}}
	s := newTestSequencer(op, &sleepLog{})

	_, err := s.Dispatch(context.Background(), tpl, threeContacts, ModeBulk)
	if !errors.Is(err, boom) || errors.Is(err, ErrPopupBlocked) {
		t.Fatalf("err = %v, want wrapped %v (not popup-blocked)", err, boom)
	}
	if len(op.attempts) != 1 {
		t.Fatalf("attempts = %d, want 1", len(op.attempts))
	}
}

func TestConfiguredDelayAndBase(t *testing.T) {
	t.Parallel()
	op := &recorder{}
	sl := &sleepLog{}
	s := New(Config{ProviderBase: "https://api.whatsapp.com/send", Delay: 500 * time.Millisecond}, op, WithSleeper(sl.sleep))

	if _, err := s.Dispatch(context.Background(), tpl, "1\n2", ModeBulk); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !strings.HasPrefix(op.attempts[0], "https://api.whatsapp.com/send/1?") {
		t.Fatalf("attempt = %q", op.attempts[0])
	}
	if len(sl.calls) != 1 || sl.calls[0] != 500*time.Millisecond {
		t.Fatalf("sleeps = %v", sl.calls)
	}

	s.Apply(Config{Delay: -1})
	sl.calls = nil
	if _, err := s.Dispatch(context.Background(), tpl, "1\n2", ModeBulk); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(sl.calls) != 0 {
		t.Fatalf("negative delay should disable pauses, got %v", sl.calls)
	}
}

func TestJobStatusTracked(t *testing.T) {
	t.Parallel()
	op := &recorder{refuse: map[int]error{3: ErrRefused}}
	s := newTestSequencer(op, &sleepLog{})

	res, _ := s.Dispatch(context.Background(), tpl, threeContacts, ModeBulk)
	st, ok := s.Status(res.JobID)
	if !ok {
		t.Fatalf("no status for %s", res.JobID)
	}
	if st.Running || st.Opened != 2 || st.Total != 3 || st.Err == "" || st.TemplateID != "t1" {
		t.Fatalf("status = %+v", st)
	}

	res2, _ := s.Dispatch(context.Background(), tpl, "9", ModeSingle)
	jobs := s.Jobs()
	if len(jobs) != 2 || jobs[0].ID != res2.JobID {
		t.Fatalf("Jobs() should list newest first: %+v", jobs)
	}
}

func TestJobHistoryBounded(t *testing.T) {
	t.Parallel()
	s := newTestSequencer(&recorder{}, &sleepLog{})
	s.statusMax = 3
	var first string
	for i := 0; i < 5; i++ {
		res, _ := s.Dispatch(context.Background(), tpl, "1", ModeSingle)
		if i == 0 {
			first = res.JobID
		}
	}
	if len(s.Jobs()) != 3 {
		t.Fatalf("len(Jobs) = %d, want 3", len(s.Jobs()))
	}
	if _, ok := s.Status(first); ok {
		t.Fatal("oldest job should have been evicted")
	}
}

func TestDispatchOutcomes(t *testing.T) {
	t.Parallel()
	bus := eventbus.New()
	ch, unsub := bus.Subscribe(32)
	defer unsub()

	s := newTestSequencer(&recorder{refuse: map[int]error{2: ErrRefused}}, &sleepLog{}, WithBus(bus))
	_, _ = s.Dispatch(context.Background(), tpl, threeContacts, ModeBulk)

	var types []string
	for len(ch) > 0 {
		types = append(types, (<-ch).Type)
	}
	want := []string{eventbus.DispatchStarted, eventbus.DispatchOpened, eventbus.PopupBlocked}
	if strings.Join(types, ",") != strings.Join(want, ",") {
		t.Fatalf("events = %v, want %v", types, want)
	}
}

func TestSleepContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := SleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if err := SleepContext(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("err = %v", err)
	}
}
