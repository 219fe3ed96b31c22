package config

import (
	"reflect"
	"strings"

	logx "wamsg/pkg/logx"
)

// SummarizeChange returns the changed top-level sections and log fields
// describing the new values. Secrets (telegram token, redis password,
// postgres DSN) are reported only as *_set booleans.
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}
	changed := make([]string, 0, 5)
	fields := make([]logx.Field, 0, 16)

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		fields = append(fields,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	if oldCfg.Storage != newCfg.Storage {
		changed = append(changed, "storage")
		fields = append(fields,
			logx.String("storage.driver", newCfg.Storage.Driver),
			logx.String("storage.path", newCfg.Storage.Path),
			logx.String("storage.addr", newCfg.Storage.Addr),
			logx.Bool("storage.password_set", newCfg.Storage.Password != ""),
			logx.Bool("storage.dsn_set", newCfg.Storage.DSN != ""),
		)
	}

	if oldCfg.Dispatch != newCfg.Dispatch {
		changed = append(changed, "dispatch")
		fields = append(fields,
			logx.String("dispatch.provider_base", newCfg.Dispatch.ProviderBase),
			logx.String("dispatch.delay", newCfg.Dispatch.Delay),
			logx.String("dispatch.opener", newCfg.Dispatch.Opener),
		)
	}

	if oldCfg.Telegram != newCfg.Telegram {
		changed = append(changed, "telegram")
		fields = append(fields,
			logx.Bool("telegram.token_set", strings.TrimSpace(newCfg.Telegram.Token) != ""),
			logx.Int64("telegram.chat_id", newCfg.Telegram.ChatID),
			logx.Int("telegram.rate_per_sec", newCfg.Telegram.RatePerSec),
		)
	}

	if !reflect.DeepEqual(oldCfg.Schedules, newCfg.Schedules) {
		changed = append(changed, "schedules")
		names := make([]string, 0, len(newCfg.Schedules))
		for _, s := range newCfg.Schedules {
			names = append(names, s.Name)
		}
		fields = append(fields, logx.Strs("schedules", names))
	}

	return changed, fields
}

// RestartRequired reports sections that hot reload cannot apply; the
// running process keeps its old storage backend until restarted.
func RestartRequired(changed []string) []string {
	var out []string
	for _, s := range changed {
		if s == "storage" {
			out = append(out, s)
		}
	}
	return out
}
