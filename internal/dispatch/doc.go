// Package dispatch turns a template and a pasted contact list into outbound
// messaging links and hands them to an Opener, one at a time.
//
// Bulk mode opens links sequentially with a fixed pause between them. The
// pause exists because link handlers (browsers in particular) block bursts
// of opens that are not tied to a user action; it is a platform workaround,
// not a scheduling policy. The first refused open aborts the rest.
package dispatch
