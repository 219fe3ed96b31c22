package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"wamsg/internal/config"
	"wamsg/internal/dispatch"
	"wamsg/internal/eventbus"
	"wamsg/internal/opener"
	"wamsg/internal/schedule"
	"wamsg/internal/storage"
	"wamsg/internal/template"
	logx "wamsg/pkg/logx"
)

// Options are per-invocation overrides on top of the config file.
type Options struct {
	ConfigPath string
	LogLevel   string
	Opener     string // opener kind override (--opener)
	Delay      string // dispatch delay override (--delay)

	// Out receives links from the stdout opener. Default os.Stdout.
	Out io.Writer

	// Test hooks.
	KV          storage.KV
	OpenerImpl  dispatch.Opener
	SequencerOp []dispatch.Option
}

// App wires config, logging, storage, the template store, the dispatch
// sequencer and (for serve) the scheduler.
type App struct {
	opts Options

	cfgm *config.Manager
	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus
	kv   storage.KV

	store *template.Store
	seq   *dispatch.Sequencer
	sched *schedule.Service

	mu        sync.Mutex
	cfg       *config.Config
	openerSet bool

	closeOnce sync.Once
}

func New(ctx context.Context, opts Options) (*App, error) {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	cfgm := config.NewManager(opts.ConfigPath)
	cfgm.SetValidator(validateConfig)
	cfg, err := cfgm.Load(ctx)
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLogConfig(cfg, opts.LogLevel))
	cfgm.SetLogger(log.With(logx.String("comp", "config")))
	bus := eventbus.New()

	a := &App{opts: opts, cfgm: cfgm, log: log.With(logx.String("comp", "app")), logs: logSvc, bus: bus, cfg: cfg}

	kv := opts.KV
	if kv == nil {
		sc, err := mapStorageConfig(cfg)
		if err != nil {
			_ = logSvc.Close()
			return nil, err
		}
		kv, err = storage.Open(sc, log.With(logx.String("comp", "storage")))
		if err != nil {
			_ = logSvc.Close()
			return nil, err
		}
		a.log.Debug("storage opened", logx.String("driver", sc.Driver))
	}
	a.kv = kv

	var storeOpts []template.Option
	if k := strings.TrimSpace(cfg.Storage.Key); k != "" {
		storeOpts = append(storeOpts, template.WithKey(k))
	}
	storeOpts = append(storeOpts,
		template.WithLogger(log.With(logx.String("comp", "store"))),
		template.WithBus(bus),
	)
	a.store = template.NewStore(kv, storeOpts...)
	if err := a.store.Load(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}

	dc, err := mapDispatchConfig(cfg, opts.Delay)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	seqOpts := append([]dispatch.Option{
		dispatch.WithLogger(log.With(logx.String("comp", "dispatch"))),
		dispatch.WithBus(bus),
	}, opts.SequencerOp...)
	a.seq = dispatch.New(dc, nil, seqOpts...)

	a.sched = schedule.New(
		schedule.WithLogger(log),
		schedule.WithBus(bus),
	)
	return a, nil
}

func (a *App) Store() *template.Store { return a.store }
func (a *App) Sequencer() *dispatch.Sequencer { return a.seq }
func (a *App) Bus() eventbus.Bus { return a.bus }
func (a *App) Logger() logx.Logger { return a.log }
func (a *App) Scheduler() *schedule.Service { return a.sched }
func (a *App) ConfigManager() *config.Manager { return a.cfgm }

func (a *App) Config() *config.Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg
}

// ensureOpener builds the configured opener on first use so commands that
// never reach an opener (template list, an empty contact list) do not need
// telegram credentials. resetOpener forces a rebuild after a config reload.
func (a *App) ensureOpener() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.openerSet {
		return nil
	}
	if a.opts.OpenerImpl != nil {
		a.seq.SetOpener(a.opts.OpenerImpl)
		a.openerSet = true
		return nil
	}
	op, err := opener.New(mapOpenerConfig(a.cfg, a.opts.Opener), a.opts.Out, a.log)
	if err != nil {
		return fmt.Errorf("opener: %w", err)
	}
	a.seq.SetOpener(op)
	a.openerSet = true
	return nil
}

func (a *App) resetOpener() {
	a.mu.Lock()
	a.openerSet = false
	a.mu.Unlock()
}

// Send resolves ref against the store and dispatches to contacts. An empty
// ref dispatches with no template selected.
func (a *App) Send(ctx context.Context, ref, contacts string, mode dispatch.Mode) (dispatch.Result, error) {
	var tpl *template.Template
	if strings.TrimSpace(ref) != "" {
		t, err := a.store.Resolve(ref)
		if err != nil {
			return dispatch.Result{}, err
		}
		tpl = &t
	}
	if mode == "" {
		mode = defaultMode(a.Config())
	}
	if tpl != nil && len(dispatch.NormalizeContacts(contacts)) > 0 {
		if err := a.ensureOpener(); err != nil {
			return dispatch.Result{}, err
		}
	}
	return a.seq.Dispatch(ctx, tpl, contacts, mode)
}

func (a *App) Close() error {
	var err error
	a.closeOnce.Do(func() {
		if a.kv != nil {
			err = a.kv.Close()
		}
		if a.logs != nil {
			err = errors.Join(err, a.logs.Close())
		}
	})
	return err
}

// validateConfig runs on Load and on every hot reload, after config.Validate.
func validateConfig(_ context.Context, cfg *config.Config) error {
	var errs []error
	for _, s := range cfg.Schedules {
		if _, err := schedule.ParseSchedule(s.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("schedules.%s.schedule: %w", s.Name, err))
		}
	}
	if _, err := mapStorageConfig(cfg); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
