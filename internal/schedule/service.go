package schedule

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"wamsg/internal/eventbus"
	logx "wamsg/pkg/logx"
)

// Job is one named schedule.
type Job struct {
	Name     string
	Schedule string
	Timeout  time.Duration // 0 = no per-run timeout
	Run      func(ctx context.Context) error
}

// Info describes a registered job for status output.
type Info struct {
	Name     string
	Schedule string
	Next     time.Time
	Prev     time.Time
}

type entry struct {
	job  Job
	spec Spec
	id   cron.EntryID
}

// Service wraps a cron instance whose job set can be replaced while
// running (config hot reload).
type Service struct {
	log logx.Logger
	bus eventbus.Bus
	loc *time.Location

	mu      sync.Mutex
	c       *cron.Cron
	runCtx  context.Context
	cancel  context.CancelFunc
	entries map[string]*entry
}

type Option func(*Service)

func WithLogger(l logx.Logger) Option { return func(s *Service) { s.log = l } }

func WithBus(b eventbus.Bus) Option { return func(s *Service) { s.bus = b } }

func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func New(opts ...Option) *Service {
	s := &Service{loc: time.Local, entries: map[string]*entry{}}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With(logx.String("comp", "schedule"))
	return s
}

// Replace swaps the full job set. Jobs whose name and schedule are
// unchanged keep their cron entry (and next run time). All schedules are
// parsed before anything changes; on error nothing is replaced.
func (s *Service) Replace(jobs []Job) error {
	parsed := make(map[string]*entry, len(jobs))
	var errs []error
	for _, j := range jobs {
		name := strings.TrimSpace(j.Name)
		if name == "" {
			errs = append(errs, errors.New("schedule name required"))
			continue
		}
		if j.Run == nil {
			errs = append(errs, fmt.Errorf("schedule %s: nil job", name))
			continue
		}
		if _, dup := parsed[name]; dup {
			errs = append(errs, fmt.Errorf("schedule %s: duplicate name", name))
			continue
		}
		sp, err := ParseSchedule(j.Schedule)
		if err != nil {
			errs = append(errs, fmt.Errorf("schedule %s: %w", name, err))
			continue
		}
		j.Name = name
		parsed[name] = &entry{job: j, spec: sp}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for name, old := range s.entries {
		nw, ok := parsed[name]
		if ok && nw.spec.CronSpec() == old.spec.CronSpec() && old.id != 0 {
			// keep the entry; swap in the new closure
			nw.id = old.id
			s.entries[name] = nw
			delete(parsed, name)
			continue
		}
		if s.c != nil && old.id != 0 {
			s.c.Remove(old.id)
		}
		delete(s.entries, name)
	}
	for name, e := range parsed {
		s.entries[name] = e
		if s.c != nil {
			if err := s.addLocked(e); err != nil {
				s.log.Error("schedule register failed", logx.String("name", name), logx.Err(err))
			}
		}
	}
	return nil
}

// Start begins ticking. Jobs run with a context derived from ctx.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return
	}
	s.runCtx, s.cancel = context.WithCancel(ctx)
	s.c = cron.New(
		cron.WithParser(parser),
		cron.WithLocation(s.loc),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{log: s.log})),
	)
	for name, e := range s.entries {
		if err := s.addLocked(e); err != nil {
			s.log.Error("schedule register failed", logx.String("name", name), logx.Err(err))
		}
	}
	s.c.Start()
	s.log.Info("scheduler started", logx.Int("schedules", len(s.entries)), logx.String("tz", s.loc.String()))
}

// Stop halts ticking, cancels running jobs and waits for them until ctx
// is done.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	cancel := s.cancel
	s.c = nil
	s.cancel = nil
	for _, e := range s.entries {
		e.id = 0
	}
	s.mu.Unlock()
	if c == nil {
		return
	}
	if cancel != nil {
		cancel()
	}
	select {
	case <-c.Stop().Done():
		s.log.Info("scheduler stopped")
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out; jobs still running")
	}
}

// Snapshot lists registered jobs sorted by name.
func (s *Service) Snapshot() []Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Info, 0, len(s.entries))
	for _, e := range s.entries {
		it := Info{Name: e.job.Name, Schedule: e.job.Schedule}
		if s.c != nil && e.id != 0 {
			ce := s.c.Entry(e.id)
			it.Next, it.Prev = ce.Next, ce.Prev
		}
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Service) addLocked(e *entry) error {
	name := e.job.Name
	id, err := s.c.AddFunc(e.spec.CronSpec(), func() { s.runNamed(name) })
	if err != nil {
		return err
	}
	e.id = id
	s.log.Debug("schedule registered", logx.String("name", name), logx.String("spec", e.spec.CronSpec()))
	return nil
}

// runNamed looks the job up at fire time so Replace can swap closures
// without re-registering.
func (s *Service) runNamed(name string) {
	s.mu.Lock()
	e, ok := s.entries[name]
	ctx := s.runCtx
	s.mu.Unlock()
	if !ok || ctx == nil {
		return
	}
	s.exec(ctx, e.job)
}

// RunNow executes the named job on the caller's goroutine.
func (s *Service) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	e, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("schedule %s: not found", name)
	}
	return s.exec(ctx, e.job)
}

func (s *Service) exec(ctx context.Context, j Job) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic in scheduled job", logx.String("name", j.Name), logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
			err = fmt.Errorf("schedule %s: panic: %v", j.Name, r)
		}
		dur := time.Since(start)
		ev := eventbus.ScheduleEvent{Name: j.Name, Started: start, Duration: dur}
		if err != nil {
			ev.Error = err.Error()
			s.log.Warn("scheduled job failed", logx.String("name", j.Name), logx.Duration("dur", dur), logx.Err(err))
			eventbus.Publish(s.bus, eventbus.ScheduleFailed, ev)
			return
		}
		s.log.Info("scheduled job finished", logx.String("name", j.Name), logx.Duration("dur", dur))
		eventbus.Publish(s.bus, eventbus.ScheduleFinished, ev)
	}()

	runCtx := ctx
	if j.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}
	return j.Run(runCtx)
}

// cronLogger adapts logx to cron.Logger. cron's Info is chatty (every
// wake-up) so it goes to Debug.
type cronLogger struct{ log logx.Logger }

func (l cronLogger) Info(msg string, kv ...any) {
	l.log.Debug("cron: "+msg, logx.Any("kv", kv))
}

func (l cronLogger) Error(err error, msg string, kv ...any) {
	l.log.Error("cron: "+msg, logx.Err(err), logx.Any("kv", kv))
}
