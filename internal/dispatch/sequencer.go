package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wamsg/internal/eventbus"
	"wamsg/internal/template"
	logx "wamsg/pkg/logx"
)

func New(cfg Config, opener Opener, opts ...Option) *Sequencer {
	s := &Sequencer{
		cfg:       normalizeConfig(cfg),
		opener:    opener,
		sleep:     SleepContext,
		log:       logx.Nop(),
		status:    map[string]*JobStatus{},
		statusMax: 200,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func normalizeConfig(cfg Config) Config {
	if cfg.ProviderBase == "" {
		cfg.ProviderBase = DefaultProviderBase
	}
	if cfg.Delay == 0 {
		cfg.Delay = DefaultDelay
	}
	return cfg
}

// Apply swaps the config for subsequent dispatches.
func (s *Sequencer) Apply(cfg Config) {
	s.mu.Lock()
	s.cfg = normalizeConfig(cfg)
	s.mu.Unlock()
}

// SetOpener swaps the opener for subsequent dispatches.
func (s *Sequencer) SetOpener(o Opener) {
	s.mu.Lock()
	s.opener = o
	s.mu.Unlock()
}

// Dispatch opens one link per normalized contact.
//
// In single mode only the first contact is used. In bulk mode contacts are
// opened in input order with cfg.Delay between successful opens; the first
// refusal aborts the remainder with a *PopupBlockedError. Any other opener
// error or a canceled ctx also stops the sequence. The returned Result is
// valid in every case.
func (s *Sequencer) Dispatch(ctx context.Context, tpl *template.Template, rawContacts string, mode Mode) (Result, error) {
	if tpl == nil {
		eventbus.Publish(s.bus, eventbus.NoTemplateSelected, eventbus.DispatchEvent{Mode: string(mode)})
		return Result{Mode: mode}, ErrNoTemplateSelected
	}
	if mode != ModeSingle && mode != ModeBulk {
		return Result{Mode: mode}, fmt.Errorf("unknown dispatch mode %q", mode)
	}

	contacts := NormalizeContacts(rawContacts)
	if len(contacts) == 0 {
		eventbus.Publish(s.bus, eventbus.NoValidContacts, eventbus.DispatchEvent{Template: tpl.Name, Mode: string(mode)})
		return Result{Mode: mode}, ErrNoValidContacts
	}
	if mode == ModeSingle {
		contacts = contacts[:1]
	}

	// Snapshot mutable dependencies to avoid races with Apply().
	s.mu.Lock()
	cfg := s.cfg
	opener := s.opener
	s.mu.Unlock()
	if opener == nil {
		return Result{Mode: mode}, errors.New("dispatch: no opener configured")
	}

	start := time.Now()
	res := Result{JobID: s.newJob(tpl, mode, len(contacts), start), Mode: mode, Total: len(contacts)}
	log := s.log.With(logx.String("job", res.JobID), logx.String("template", tpl.Name), logx.String("mode", string(mode)))
	ev := eventbus.DispatchEvent{JobID: res.JobID, Template: tpl.Name, Mode: string(mode), Total: res.Total}

	log.Info("dispatch started", logx.Int("total", res.Total))
	eventbus.Publish(s.bus, eventbus.DispatchStarted, ev)

	for i, c := range contacts {
		if err := ctx.Err(); err != nil {
			return s.stop(res, ev, log, start, eventbus.DispatchCanceled, err)
		}

		link := BuildLink(cfg.ProviderBase, c, tpl.Message)
		res.Links = append(res.Links, link)
		if err := opener.Open(ctx, link); err != nil {
			ev.Index, ev.Contact = i, c
			if errors.Is(err, ErrRefused) {
				return s.stop(res, ev, log, start, eventbus.PopupBlocked, &PopupBlockedError{Index: i, Contact: c, Err: err})
			}
			return s.stop(res, ev, log, start, eventbus.DispatchFailed, fmt.Errorf("open contact %d: %w", i+1, err))
		}
		res.Opened++
		s.markOpened(res.JobID)
		log.Debug("link opened", logx.Int("index", i), logx.String("contact", c))
		eventbus.Publish(s.bus, eventbus.DispatchOpened, eventbus.DispatchEvent{
			JobID: res.JobID, Template: tpl.Name, Mode: string(mode), Contact: c, Index: i, Opened: res.Opened, Total: res.Total,
		})

		if i < len(contacts)-1 && cfg.Delay > 0 {
			if err := s.sleep(ctx, cfg.Delay); err != nil {
				return s.stop(res, ev, log, start, eventbus.DispatchCanceled, err)
			}
		}
	}

	took := time.Since(start)
	s.finish(res.JobID, nil)
	ev.Opened, ev.Took = res.Opened, took
	log.Info("dispatch complete", logx.Int("opened", res.Opened), logx.Duration("dur", took))
	eventbus.Publish(s.bus, eventbus.DispatchComplete, ev)
	return res, nil
}

func (s *Sequencer) stop(res Result, ev eventbus.DispatchEvent, log logx.Logger, start time.Time, outcome string, err error) (Result, error) {
	s.finish(res.JobID, err)
	ev.Opened, ev.Took, ev.Error = res.Opened, time.Since(start), err.Error()
	log.Warn("dispatch stopped",
		logx.String("outcome", outcome),
		logx.Int("opened", res.Opened),
		logx.Int("total", res.Total),
		logx.Err(err),
	)
	eventbus.Publish(s.bus, outcome, ev)
	return res, err
}
