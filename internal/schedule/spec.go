package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

type SpecKind int

const (
	SpecCron SpecKind = iota + 1
	SpecInterval
)

func (k SpecKind) String() string {
	switch k {
	case SpecCron:
		return "cron"
	case SpecInterval:
		return "interval"
	default:
		return "unknown"
	}
}

// Spec is a parsed schedule string.
type Spec struct {
	Kind   SpecKind
	Cron   string        // SpecCron
	Every  time.Duration // SpecInterval
	Source string        // cron | duration | hhmm
}

// CronSpec renders s in the cron parser's syntax.
func (s Spec) CronSpec() string {
	if s.Kind == SpecInterval {
		return "@every " + s.Every.String()
	}
	return s.Cron
}

// SecondOptional allows both 5-field and 6-field (with seconds) cron specs.
var parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSchedule classifies raw and validates it.
func ParseSchedule(raw string) (Spec, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Spec{}, fmt.Errorf("empty schedule")
	}
	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "cron:"):
		return parseCron(strings.TrimSpace(s[len("cron:"):]))
	case strings.HasPrefix(lower, "interval:"):
		return parseInterval(strings.TrimSpace(s[len("interval:"):]))
	case strings.HasPrefix(s, "@") || strings.Contains(s, " "):
		return parseCron(s)
	default:
		return parseInterval(s)
	}
}

func parseCron(s string) (Spec, error) {
	if _, err := parser.Parse(s); err != nil {
		return Spec{}, fmt.Errorf("invalid cron %q: %w", s, err)
	}
	return Spec{Kind: SpecCron, Cron: s, Source: "cron"}, nil
}

func parseInterval(s string) (Spec, error) {
	if strings.Contains(s, ":") {
		h, m, err := parseHHMM(s)
		if err != nil {
			return Spec{}, err
		}
		every := time.Duration(h)*time.Hour + time.Duration(m)*time.Minute
		if every <= 0 {
			return Spec{}, fmt.Errorf("interval %q must be > 0", s)
		}
		return Spec{Kind: SpecInterval, Every: every, Source: "hhmm"}, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return Spec{}, fmt.Errorf("invalid schedule %q: expected cron, duration or HH:MM", s)
	}
	if d < time.Second {
		return Spec{}, fmt.Errorf("interval %q must be >= 1s", s)
	}
	return Spec{Kind: SpecInterval, Every: d, Source: "duration"}, nil
}

func parseHHMM(s string) (hour int, minute int, err error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h, m, nil
}
