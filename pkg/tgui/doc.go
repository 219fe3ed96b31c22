// Package tgui has small helpers for composing Telegram messages in
// ParseMode="HTML": escaping, a few inline tags and rune-safe truncation.
package tgui
