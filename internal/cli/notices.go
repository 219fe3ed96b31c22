package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"wamsg/internal/eventbus"
	"wamsg/internal/template"
)

// noticeBuffer fits the events a command publishes regardless of contact
// count. serveNoticeBuffer is for the long-running serve printer.
const (
	noticeBuffer      = 16
	serveNoticeBuffer = 1024
)

// printNotices renders store and dispatch outcomes as one-line notices on
// w until the returned stop func is called. buffer should fit every event
// the command can publish. stop waits for the printer to drain and reports
// events the bus had to drop.
func printNotices(bus eventbus.Bus, w io.Writer, buffer int) (stop func()) {
	before := bus.Dropped()
	ch, unsub := bus.Subscribe(buffer)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range ch {
			if line := notice(ev); line != "" {
				fmt.Fprintln(w, line)
			}
		}
	}()
	return func() {
		unsub()
		<-done
		if n := bus.Dropped() - before; n > 0 {
			fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("! %d notice(s) not shown", n)))
		}
	}
}

func notice(ev eventbus.Event) string {
	switch d := ev.Data.(type) {
	case eventbus.TemplateEvent:
		switch ev.Type {
		case eventbus.TemplateCreated:
			return okStyle.Render("✓ template created: " + d.Name)
		case eventbus.TemplateUpdated:
			return okStyle.Render("✓ template updated: " + d.Name)
		case eventbus.TemplateDeleted:
			return okStyle.Render("✓ template deleted: " + d.Name)
		case eventbus.TemplateValidationFailed:
			return warnStyle.Render("! " + d.Field + " is required")
		}
	case eventbus.DispatchEvent:
		switch ev.Type {
		case eventbus.DispatchStarted:
			return dimStyle.Render(fmt.Sprintf("→ sending %q to %d contact(s)", d.Template, d.Total))
		case eventbus.DispatchOpened:
			return fmt.Sprintf("  [%d/%d] +%s", d.Opened, d.Total, d.Contact)
		case eventbus.DispatchComplete:
			return okStyle.Render(fmt.Sprintf("✓ opened %d of %d in %s", d.Opened, d.Total, d.Took.Round(time.Millisecond)))
		case eventbus.PopupBlocked:
			return errStyle.Render(fmt.Sprintf("✗ opener refused contact %d (+%s); stopped after %d of %d", d.Index+1, d.Contact, d.Opened, d.Total))
		case eventbus.DispatchCanceled:
			return warnStyle.Render(fmt.Sprintf("! canceled after %d of %d", d.Opened, d.Total))
		case eventbus.DispatchFailed:
			return errStyle.Render(fmt.Sprintf("✗ dispatch failed after %d of %d: %s", d.Opened, d.Total, d.Error))
		case eventbus.NoTemplateSelected:
			return warnStyle.Render("! no template selected")
		case eventbus.NoValidContacts:
			return warnStyle.Render("! no valid phone numbers in the contact list")
		}
	case eventbus.ScheduleEvent:
		switch ev.Type {
		case eventbus.ScheduleFinished:
			return okStyle.Render(fmt.Sprintf("✓ schedule %s finished (%s)", d.Name, humanize.Time(d.Started)))
		case eventbus.ScheduleFailed:
			return errStyle.Render(fmt.Sprintf("✗ schedule %s failed: %s", d.Name, d.Error))
		}
	}
	return ""
}

// ErrorMessage turns well-known errors into a friendlier one-liner.
func ErrorMessage(err error) string {
	var nf *template.NotFoundError
	switch {
	case errors.As(err, &nf):
		if nf.Suggestion != "" {
			return fmt.Sprintf("no template matches %q (did you mean %q?)", nf.ID, nf.Suggestion)
		}
		return fmt.Sprintf("no template matches %q (see: wamsg template list)", nf.ID)
	default:
		return err.Error()
	}
}
