package app

import (
	"strings"
	"time"

	"wamsg/internal/config"
	"wamsg/internal/dispatch"
	"wamsg/internal/opener"
	"wamsg/internal/storage"
	logx "wamsg/pkg/logx"
)

func mapLogConfig(cfg *config.Config, levelOverride string) logx.Config {
	level := cfg.Logging.Level
	if s := strings.TrimSpace(levelOverride); s != "" {
		level = s
	}
	return logx.Config{
		Level:   level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapStorageConfig(cfg *config.Config) (storage.Config, error) {
	sc := cfg.Storage
	busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, time.Second)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{
		Driver:      strings.ToLower(strings.TrimSpace(sc.Driver)),
		Path:        strings.TrimSpace(sc.Path),
		BusyTimeout: busy,
		Addr:        strings.TrimSpace(sc.Addr),
		Password:    sc.Password,
		DB:          sc.DB,
		Prefix:      sc.Prefix,
		DSN:         sc.DSN,
	}, nil
}

func mapDispatchConfig(cfg *config.Config, delayOverride string) (dispatch.Config, error) {
	raw := cfg.Dispatch.Delay
	path := "dispatch.delay"
	if s := strings.TrimSpace(delayOverride); s != "" {
		raw, path = s, "--delay"
	}
	delay, err := config.ParseSignedDuration(path, raw)
	if err != nil {
		return dispatch.Config{}, err
	}
	return dispatch.Config{
		ProviderBase: strings.TrimRight(strings.TrimSpace(cfg.Dispatch.ProviderBase), "/"),
		Delay:        delay,
	}, nil
}

func mapOpenerConfig(cfg *config.Config, kindOverride string) opener.Config {
	kind := cfg.Dispatch.Opener
	if s := strings.TrimSpace(kindOverride); s != "" {
		kind = s
	}
	return opener.Config{
		Kind: kind,
		Telegram: opener.TelegramConfig{
			Token:      cfg.Telegram.Token,
			ChatID:     cfg.Telegram.ChatID,
			ThreadID:   cfg.Telegram.ThreadID,
			RatePerSec: cfg.Telegram.RatePerSec,
		},
	}
}

// defaultMode is the mode used when neither a flag nor a schedule names one.
func defaultMode(cfg *config.Config) dispatch.Mode {
	m, err := dispatch.ParseMode(cfg.Dispatch.Mode)
	if err != nil {
		return dispatch.ModeSingle
	}
	return m
}
