package eventbus

import "time"

// Outcome names published by the template store and the dispatch sequencer.
const (
	TemplateCreated          = "created"
	TemplateUpdated          = "updated"
	TemplateDeleted          = "deleted"
	TemplateValidationFailed = "validation-failed"

	DispatchStarted    = "dispatch-started"
	DispatchOpened     = "dispatch-opened"
	DispatchComplete   = "dispatch-complete"
	DispatchCanceled   = "dispatch-canceled"
	DispatchFailed     = "dispatch-failed"
	PopupBlocked       = "popup-blocked"
	NoTemplateSelected = "no-template-selected"
	NoValidContacts    = "no-valid-contacts"

	ScheduleFinished = "schedule-finished"
	ScheduleFailed   = "schedule-failed"
)

// TemplateEvent is the payload of template outcomes.
type TemplateEvent struct {
	ID    string
	Name  string
	Field string // validation-failed only
}

// DispatchEvent is the payload of dispatch outcomes.
type DispatchEvent struct {
	JobID    string
	Template string
	Mode     string
	Contact  string
	Index    int
	Opened   int
	Total    int
	Took     time.Duration
	Error    string
}

// ScheduleEvent is the payload of schedule outcomes.
type ScheduleEvent struct {
	Name     string
	Started  time.Time
	Duration time.Duration
	Error    string
}
