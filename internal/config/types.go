package config

import (
	"os"
	"path/filepath"
)

// Config is the on-disk configuration (JSON or YAML).
//
// Every section is optional; Default() fills in a working local setup
// (file storage under the user config dir, browser opener, 2s bulk delay).
type Config struct {
	Logging   LoggingConfig    `json:"logging"`
	Storage   StorageConfig    `json:"storage"`
	Dispatch  DispatchConfig   `json:"dispatch"`
	Telegram  TelegramConfig   `json:"telegram"`
	Schedules []ScheduleConfig `json:"schedules,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StorageConfig selects the key-value backend holding the templates.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./data/wamsg.db" }
type StorageConfig struct {
	Driver string `json:"driver"`         // file | sqlite | redis | postgres | memory
	Path   string `json:"path,omitempty"` // file: directory, sqlite: db file
	Key    string `json:"key,omitempty"`  // blob key; default "whatsapp-templates"

	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)

	Addr     string `json:"addr,omitempty"`     // redis
	Password string `json:"password,omitempty"` // redis (do not log)
	DB       int    `json:"db,omitempty"`       // redis
	Prefix   string `json:"prefix,omitempty"`   // redis key prefix

	DSN string `json:"dsn,omitempty"` // postgres (do not log)
}

// DispatchConfig controls link building and pacing.
//
// Delay is a Go duration string; "0s" keeps the default, a negative value
// such as "-1s" disables the pause between bulk opens.
type DispatchConfig struct {
	ProviderBase string `json:"provider_base,omitempty"`
	Delay        string `json:"delay,omitempty"`
	Mode         string `json:"mode,omitempty"`   // default mode for send: single | bulk
	Opener       string `json:"opener,omitempty"` // browser | stdout | telegram
}

// TelegramConfig configures the telegram opener.
type TelegramConfig struct {
	Token      string `json:"token,omitempty"` // never logged
	ChatID     int64  `json:"chat_id,omitempty"`
	ThreadID   int    `json:"thread_id,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
}

// ScheduleConfig runs a dispatch on a schedule while `wamsg serve` is up.
//
// Schedule accepts cron ("0 9 * * 1-5", "@daily") or an interval ("6h",
// "interval:30m"). Template is an id or a name. Contacts are raw lines and
// are normalized like interactive input; ContactsFile is read at run time.
type ScheduleConfig struct {
	Name         string   `json:"name"`
	Schedule     string   `json:"schedule"`
	Template     string   `json:"template"`
	Mode         string   `json:"mode,omitempty"`
	Contacts     []string `json:"contacts,omitempty"`
	ContactsFile string   `json:"contacts_file,omitempty"`
	Disabled     bool     `json:"disabled,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", Console: true},
		Storage: StorageConfig{Driver: "file", Path: filepath.Join(DefaultDataDir(), "store")},
		Dispatch: DispatchConfig{
			ProviderBase: "https://wa.me",
			Delay:        "2s",
			Mode:         "single",
			Opener:       "browser",
		},
		Telegram: TelegramConfig{RatePerSec: 1},
	}
}

// DefaultDataDir is $XDG_CONFIG_HOME/wamsg (or the OS equivalent),
// falling back to ./.wamsg.
func DefaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return ".wamsg"
	}
	return filepath.Join(dir, "wamsg")
}

// DefaultPath is the config file looked up when --config is not given.
func DefaultPath() string {
	return filepath.Join(DefaultDataDir(), "config.yaml")
}
