// Package logx is wamsg's logging layer over zerolog.
//
// Components hold a Logger value and add fixed fields with With. Loggers
// handed out by a Service follow its current sinks, so a config reload that
// calls Service.Apply changes level and outputs for every component at once.
// Console lines are human readable; the optional log file gets JSON.
package logx
