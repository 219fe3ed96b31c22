package template

import (
	"time"
	"unicode/utf8"
)

// DefaultKey is the storage key holding the serialized collection.
const DefaultKey = "whatsapp-templates"

// Template is a named, reusable message body.
//
// The JSON shape is the persisted layout: ids are opaque strings and
// timestamps are RFC 3339 strings.
type Template struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Chars returns the message length in characters (not bytes).
func (t Template) Chars() int { return utf8.RuneCountInString(t.Message) }
