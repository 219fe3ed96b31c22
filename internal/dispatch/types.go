package dispatch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"wamsg/internal/eventbus"
	logx "wamsg/pkg/logx"
)

const (
	DefaultProviderBase = "https://wa.me"
	DefaultDelay        = 2 * time.Second
)

type Mode string

const (
	ModeSingle Mode = "single"
	ModeBulk   Mode = "bulk"
)

// ParseMode accepts "single" and "bulk" (case-insensitive). Empty means single.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(ModeSingle):
		return ModeSingle, nil
	case string(ModeBulk):
		return ModeBulk, nil
	default:
		return "", fmt.Errorf("unknown dispatch mode %q (want single or bulk)", s)
	}
}

// Opener opens one outbound link. Returning ErrRefused (or an error
// wrapping it) signals that the platform declined.
type Opener interface {
	Open(ctx context.Context, url string) error
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, url string) error

func (f OpenerFunc) Open(ctx context.Context, url string) error { return f(ctx, url) }

// Sleeper pauses between opens. It returns early with ctx.Err() on cancel.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Config configures the sequencer.
//
// Delay is the pause between successive bulk opens: 0 means DefaultDelay,
// a negative value disables the pause.
type Config struct {
	ProviderBase string
	Delay        time.Duration
}

// Result summarizes a dispatch. Opened counts the contacts reached before
// the sequence completed or stopped.
type Result struct {
	JobID  string
	Mode   Mode
	Total  int
	Opened int
	Links  []string
}

// JobStatus is the retained record of one dispatch.
type JobStatus struct {
	ID         string
	TemplateID string
	Template   string
	Mode       Mode
	Total      int
	Opened     int
	Err        string
	StartedAt  time.Time
	DoneAt     time.Time
	Running    bool
}

type Option func(*Sequencer)

func WithSleeper(sl Sleeper) Option {
	return func(s *Sequencer) {
		if sl != nil {
			s.sleep = sl
		}
	}
}

func WithLogger(log logx.Logger) Option {
	return func(s *Sequencer) {
		if !log.IsZero() {
			s.log = log
		}
	}
}

func WithBus(b eventbus.Bus) Option {
	return func(s *Sequencer) { s.bus = b }
}

// Sequencer runs dispatches. A single Sequencer may be shared; each Dispatch
// call runs entirely on the caller's goroutine.
type Sequencer struct {
	mu     sync.Mutex
	cfg    Config
	opener Opener

	sleep Sleeper
	log   logx.Logger
	bus   eventbus.Bus

	seq atomic.Uint64

	statusMu  sync.RWMutex
	status    map[string]*JobStatus
	order     []string
	statusMax int
}
