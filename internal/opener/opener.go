package opener

import (
	"fmt"
	"io"
	"strings"

	"wamsg/internal/dispatch"
	logx "wamsg/pkg/logx"
)

const (
	KindBrowser  = "browser"
	KindStdout   = "stdout"
	KindTelegram = "telegram"
)

// Config selects and configures an opener.
type Config struct {
	Kind     string
	Telegram TelegramConfig
}

// New builds the opener named by cfg.Kind. Empty means browser.
// out is used by the stdout opener.
func New(cfg Config, out io.Writer, log logx.Logger) (dispatch.Opener, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case "", KindBrowser:
		return NewBrowser(log), nil
	case KindStdout, "print":
		return NewWriter(out), nil
	case KindTelegram:
		return NewTelegram(cfg.Telegram, log)
	default:
		return nil, fmt.Errorf("unknown opener %q (want browser, stdout or telegram)", cfg.Kind)
	}
}
