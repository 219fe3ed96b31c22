package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"wamsg/internal/config"
	"wamsg/internal/dispatch"
	"wamsg/internal/runtime/supervisor"
	"wamsg/internal/schedule"
	logx "wamsg/pkg/logx"
)

const scheduledRunTimeout = 30 * time.Minute

// Serve runs the configured schedules and follows config changes until ctx
// is canceled. It reports readiness and shutdown to systemd when started
// as a notify service (no-op otherwise).
func (a *App) Serve(ctx context.Context) error {
	sup := supervisor.New(ctx, supervisor.WithLogger(a.log.With(logx.String("comp", "supervisor"))), supervisor.WithCancelOnError(true))

	if err := a.sched.Replace(a.scheduleJobs(a.Config())); err != nil {
		return err
	}
	a.sched.Start(sup.Context())

	updates := a.cfgm.Subscribe(4)
	defer a.cfgm.Unsubscribe(updates)

	sup.GoRestart("config.watch", a.cfgm.Watch, 250*time.Millisecond, 10*time.Second)
	sup.Go("config.apply", func(ctx context.Context) error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case cfg, ok := <-updates:
				if !ok {
					return nil
				}
				a.applyConfig(cfg)
			}
		}
	})
	if interval, err := daemon.SdWatchdogEnabled(false); err == nil && interval > 0 {
		sup.Go("systemd.watchdog", func(ctx context.Context) error {
			t := time.NewTicker(interval / 2)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-t.C:
					_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
				}
			}
		})
	}

	notifySystemd(a.log, daemon.SdNotifyReady)
	a.log.Info("serving", logx.Int("schedules", len(a.sched.Snapshot())), logx.String("config", a.cfgm.Path()))

	<-sup.Context().Done()
	notifySystemd(a.log, daemon.SdNotifyStopping)

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a.sched.Stop(stopCtx)
	err := sup.Stop(stopCtx)
	if errors.Is(err, context.DeadlineExceeded) {
		a.log.Warn("shutdown timed out")
		return nil
	}
	return err
}

func notifySystemd(log logx.Logger, state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		log.Warn("systemd notify failed", logx.String("state", state), logx.Err(err))
		return
	}
	if sent {
		log.Debug("systemd notified", logx.String("state", state))
	}
}

// applyConfig is the hot-reload path. Storage stays as opened.
func (a *App) applyConfig(cfg *config.Config) {
	a.mu.Lock()
	old := a.cfg
	a.mu.Unlock()

	changed, fields := config.SummarizeChange(old, cfg)
	if len(changed) == 0 {
		return
	}
	a.log.Info("config reloaded", append([]logx.Field{logx.Strs("changed", changed)}, fields...)...)
	if r := config.RestartRequired(changed); len(r) > 0 {
		a.log.Warn("config change needs a restart to take effect", logx.Strs("sections", r))
	}

	a.logs.Apply(mapLogConfig(cfg, a.opts.LogLevel))
	if dc, err := mapDispatchConfig(cfg, a.opts.Delay); err == nil {
		a.seq.Apply(dc)
	} else {
		a.log.Warn("dispatch config not applied", logx.Err(err))
	}

	a.mu.Lock()
	a.cfg = cfg
	a.mu.Unlock()
	if old == nil || old.Dispatch.Opener != cfg.Dispatch.Opener || old.Telegram != cfg.Telegram {
		a.resetOpener()
	}

	if err := a.sched.Replace(a.scheduleJobs(cfg)); err != nil {
		a.log.Warn("schedules not applied", logx.Err(err))
	}
}

// scheduleJobs turns config schedules into scheduler jobs. Scheduled runs
// default to bulk mode.
func (a *App) scheduleJobs(cfg *config.Config) []schedule.Job {
	jobs := make([]schedule.Job, 0, len(cfg.Schedules))
	for _, sc := range cfg.Schedules {
		if sc.Disabled {
			continue
		}
		sc := sc
		jobs = append(jobs, schedule.Job{
			Name:     sc.Name,
			Schedule: sc.Schedule,
			Timeout:  scheduledRunTimeout,
			Run:      func(ctx context.Context) error { return a.runScheduled(ctx, sc) },
		})
	}
	return jobs
}

func (a *App) runScheduled(ctx context.Context, sc config.ScheduleConfig) error {
	mode := dispatch.ModeBulk
	if strings.TrimSpace(sc.Mode) != "" {
		m, err := dispatch.ParseMode(sc.Mode)
		if err != nil {
			return err
		}
		mode = m
	}
	contacts := strings.Join(sc.Contacts, "\n")
	if f := strings.TrimSpace(sc.ContactsFile); f != "" {
		b, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("contacts file: %w", err)
		}
		contacts += "\n" + string(b)
	}
	// the CLI may have edited templates since the last run
	if err := a.store.Load(ctx); err != nil {
		return err
	}
	res, err := a.Send(ctx, sc.Template, contacts, mode)
	if err != nil {
		return err
	}
	a.log.Info("scheduled dispatch done", logx.String("schedule", sc.Name), logx.String("job", res.JobID), logx.Int("opened", res.Opened))
	return nil
}
