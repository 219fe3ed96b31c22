// Package schedule runs named jobs on cron or interval schedules.
//
// Supported schedule formats:
//   - Cron: "*/5 * * * *", "0 9 * * 1-5", "@daily", "cron:0 0 * * *"
//   - Interval duration: "55m", "interval:2h30m"
//   - Interval HH:MM: "00:50" (50 minutes), "02:30" (2 hours 30 minutes)
//
// A job never overlaps itself: if the previous run of the same name is
// still active the tick is skipped. Panics inside a job are recovered and
// logged with a stack trace.
package schedule
