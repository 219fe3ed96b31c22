package opener

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"

	"wamsg/internal/dispatch"
	logx "wamsg/pkg/logx"
)

// Browser hands links to the operating system's URL handler.
//
// A handler that cannot be started counts as a refusal: from the caller's
// point of view the link was not opened.
type Browser struct {
	log     logx.Logger
	command func(url string) *exec.Cmd
}

func NewBrowser(log logx.Logger) *Browser {
	return &Browser{log: log, command: browserCommand}
}

func (b *Browser) Open(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cmd := b.command(url)
	if err := cmd.Start(); err != nil {
		b.log.Warn("url handler failed to start", logx.String("cmd", cmd.Path), logx.Err(err))
		return fmt.Errorf("%w: %v", dispatch.ErrRefused, err)
	}
	// The handler usually forks and exits; reap it without blocking dispatch.
	go func() { _ = cmd.Wait() }()
	return nil
}

func browserCommand(url string) *exec.Cmd {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url)
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return exec.Command("xdg-open", url)
	}
}
