package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"wamsg/internal/config"
	"wamsg/internal/dispatch"
	"wamsg/internal/storage"
	"wamsg/internal/template"
)

type recordingOpener struct {
	mu   sync.Mutex
	urls []string
}

func (r *recordingOpener) Open(_ context.Context, url string) error {
	r.mu.Lock()
	r.urls = append(r.urls, url)
	r.mu.Unlock()
	return nil
}

func (r *recordingOpener) opened() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.urls...)
}

func newTestApp(t *testing.T, cfgBody string) (*App, *recordingOpener) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if cfgBody != "" {
		if err := os.WriteFile(path, []byte(cfgBody), 0o600); err != nil {
			t.Fatalf("write config: %v", err)
		}
	}
	op := &recordingOpener{}
	a, err := New(context.Background(), Options{
		ConfigPath: path,
		LogLevel:   "error",
		Delay:      "-1s",
		KV:         storage.NewMemory(),
		OpenerImpl: op,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a, op
}

func TestSendResolvesTemplateByName(t *testing.T) {
	t.Parallel()
	a, op := newTestApp(t, "")
	ctx := context.Background()
	if _, err := a.Store().Create(ctx, "Promo", "Hi there"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	res, err := a.Send(ctx, "promo", "111\n+2 22", dispatch.ModeBulk)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.Opened != 2 || res.Total != 2 {
		t.Fatalf("result = %+v, want 2/2", res)
	}
	want := []string{"https://wa.me/111?text=Hi%20there", "https://wa.me/222?text=Hi%20there"}
	got := op.opened()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("opened = %v, want %v", got, want)
	}
}

func TestSendDefaultsToSingleMode(t *testing.T) {
	t.Parallel()
	a, op := newTestApp(t, "")
	ctx := context.Background()
	if _, err := a.Store().Create(ctx, "Promo", "x"); err != nil {
		t.Fatal(err)
	}
	res, err := a.Send(ctx, "Promo", "1\n2\n3", "")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.Mode != dispatch.ModeSingle || len(op.opened()) != 1 {
		t.Fatalf("mode=%s opened=%d, want single/1", res.Mode, len(op.opened()))
	}
}

func TestSendErrors(t *testing.T) {
	t.Parallel()
	a, op := newTestApp(t, "")
	ctx := context.Background()

	if _, err := a.Send(ctx, "", "123", dispatch.ModeSingle); !errors.Is(err, dispatch.ErrNoTemplateSelected) {
		t.Fatalf("empty ref err = %v", err)
	}
	if _, err := a.Send(ctx, "ghost", "123", dispatch.ModeSingle); !errors.Is(err, template.ErrNotFound) {
		t.Fatalf("unknown ref err = %v", err)
	}
	if _, err := a.Store().Create(ctx, "Promo", "x"); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Send(ctx, "Promo", "abc", dispatch.ModeSingle); !errors.Is(err, dispatch.ErrNoValidContacts) {
		t.Fatalf("no contacts err = %v", err)
	}
	if n := len(op.opened()); n != 0 {
		t.Fatalf("opened %d links on error paths", n)
	}
}

const scheduledConfig = `
logging:
  level: error
dispatch:
  delay: 5s
schedules:
  - name: morning
    schedule: "0 9 * * *"
    template: Promo
    contacts: ["+1 (555) 000", "777"]
  - name: paused
    schedule: 1h
    template: Promo
    contacts: ["1"]
    disabled: true
`

func TestScheduledRunDispatchesBulk(t *testing.T) {
	t.Parallel()
	a, op := newTestApp(t, scheduledConfig)
	ctx := context.Background()
	if _, err := a.Store().Create(ctx, "Promo", "Hello"); err != nil {
		t.Fatal(err)
	}

	jobs := a.scheduleJobs(a.Config())
	if len(jobs) != 1 || jobs[0].Name != "morning" {
		t.Fatalf("jobs = %+v, want only morning", jobs)
	}
	if err := a.Scheduler().Replace(jobs); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if err := a.Scheduler().RunNow(ctx, "morning"); err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	got := op.opened()
	if len(got) != 2 || !strings.HasPrefix(got[0], "https://wa.me/1555000?") {
		t.Fatalf("opened = %v", got)
	}
}

func TestScheduledRunNeverGuessesTemplate(t *testing.T) {
	t.Parallel()
	a, op := newTestApp(t, "")
	ctx := context.Background()
	// the schedule still names "Promo" after a rename
	if _, err := a.Store().Create(ctx, "Promo2", "Hello"); err != nil {
		t.Fatal(err)
	}
	sc := config.ScheduleConfig{Name: "morning", Schedule: "1h", Template: "Promo", Contacts: []string{"1", "2"}}
	err := a.runScheduled(ctx, sc)
	if !errors.Is(err, template.ErrNotFound) {
		t.Fatalf("runScheduled err = %v, want ErrNotFound", err)
	}
	var nf *template.NotFoundError
	if !errors.As(err, &nf) || nf.Suggestion != "Promo2" {
		t.Fatalf("err = %#v, want suggestion Promo2", err)
	}
	if n := len(op.opened()); n != 0 {
		t.Fatalf("opened %d links for an unknown template", n)
	}
}

func TestNewRejectsBadSchedule(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "schedules:\n  - name: bad\n    schedule: whenever\n    template: x\n    contacts: [\"1\"]\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := New(context.Background(), Options{ConfigPath: path, KV: storage.NewMemory()})
	if err == nil || !strings.Contains(err.Error(), "schedules.bad.schedule") {
		t.Fatalf("New err = %v, want schedule error", err)
	}
}

func TestApplyConfigUpdatesSchedules(t *testing.T) {
	t.Parallel()
	a, _ := newTestApp(t, "")
	next := config.Default()
	next.Schedules = []config.ScheduleConfig{{Name: "nightly", Schedule: "@daily", Template: "x", Contacts: []string{"1"}}}

	a.applyConfig(&next)
	if a.Config() != &next {
		t.Fatal("config not swapped")
	}
	snap := a.Scheduler().Snapshot()
	if len(snap) != 1 || snap[0].Name != "nightly" {
		t.Fatalf("snapshot = %+v", snap)
	}
}
