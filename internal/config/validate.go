package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the parts of the config that can be checked without
// opening anything. Schedule expressions are validated by the scheduler.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error

	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
	case "", "file", "memory", "mem":
	case "sqlite", "sqlite3":
		if strings.TrimSpace(cfg.Storage.Path) == "" {
			errs = append(errs, errors.New("storage.path is required when storage.driver=sqlite"))
		}
	case "redis":
		if strings.TrimSpace(cfg.Storage.Addr) == "" {
			errs = append(errs, errors.New("storage.addr is required when storage.driver=redis"))
		}
	case "postgres", "postgresql", "pg":
		if strings.TrimSpace(cfg.Storage.DSN) == "" {
			errs = append(errs, errors.New("storage.dsn is required when storage.driver=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver: %s", cfg.Storage.Driver))
	}
	if _, err := ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout); err != nil {
		errs = append(errs, err)
	}

	if _, err := ParseSignedDuration("dispatch.delay", cfg.Dispatch.Delay); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Dispatch.Mode)) {
	case "", "single", "bulk":
	default:
		errs = append(errs, fmt.Errorf("dispatch.mode: unknown mode %q", cfg.Dispatch.Mode))
	}
	if b := strings.TrimSpace(cfg.Dispatch.ProviderBase); b != "" &&
		!strings.HasPrefix(b, "https://") && !strings.HasPrefix(b, "http://") {
		errs = append(errs, fmt.Errorf("dispatch.provider_base must be an http(s) URL, got %q", b))
	}
	if strings.EqualFold(strings.TrimSpace(cfg.Dispatch.Opener), "telegram") {
		if strings.TrimSpace(cfg.Telegram.Token) == "" || cfg.Telegram.ChatID == 0 {
			errs = append(errs, errors.New("telegram.token and telegram.chat_id are required when dispatch.opener=telegram"))
		}
	}

	seen := map[string]bool{}
	for i, s := range cfg.Schedules {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			errs = append(errs, fmt.Errorf("schedules[%d].name is required", i))
			continue
		}
		if seen[name] {
			errs = append(errs, fmt.Errorf("schedules[%d]: duplicate name %q", i, name))
		}
		seen[name] = true
		if strings.TrimSpace(s.Template) == "" {
			errs = append(errs, fmt.Errorf("schedules.%s.template is required", name))
		}
		if len(s.Contacts) == 0 && strings.TrimSpace(s.ContactsFile) == "" {
			errs = append(errs, fmt.Errorf("schedules.%s: contacts or contacts_file is required", name))
		}
		switch strings.ToLower(strings.TrimSpace(s.Mode)) {
		case "", "single", "bulk":
		default:
			errs = append(errs, fmt.Errorf("schedules.%s.mode: unknown mode %q", name, s.Mode))
		}
	}

	return errors.Join(errs...)
}
