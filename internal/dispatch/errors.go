package dispatch

import (
	"errors"
	"fmt"
)

var (
	// ErrRefused is what an Opener returns when the platform declines to
	// open a link (e.g. a popup blocker). It is the only failure the
	// sequencer reports as popup-blocked.
	ErrRefused = errors.New("open refused")

	ErrNoTemplateSelected = errors.New("no template selected")
	ErrNoValidContacts    = errors.New("no valid contacts")
	ErrPopupBlocked       = errors.New("popup blocked")
)

// PopupBlockedError reports the contact whose open was refused. Contacts
// after Index were never attempted.
type PopupBlockedError struct {
	Index   int
	Contact string
	Err     error
}

func (e *PopupBlockedError) Error() string {
	return fmt.Sprintf("popup blocked at contact %d (%s)", e.Index+1, e.Contact)
}

func (e *PopupBlockedError) Is(target error) bool { return target == ErrPopupBlocked }

func (e *PopupBlockedError) Unwrap() error { return e.Err }
