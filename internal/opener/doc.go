// Package opener provides the dispatch.Opener implementations: the system
// URL handler, a plain writer, and delivery of links to a Telegram chat.
package opener
