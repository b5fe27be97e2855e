// Package models contains domain models for flowstate.
package models

import "strings"

// Tag is a user-defined two-level category label. The main tag is required,
// the sub tag is optional. Tag is a comparable value type and is used
// directly as a map key by the analytics layer.
type Tag struct {
	Main string `json:"main_tag"`
	Sub  string `json:"sub_tag,omitempty"`
}

// NewTag builds a normalized Tag from raw user input. Normalization strips
// surrounding whitespace and one leading '#', then lowercases. The returned
// tag may have an empty Main; callers validate that at the boundary.
func NewTag(main, sub string) Tag {
	return Tag{
		Main: normalizeTagPart(main),
		Sub:  normalizeTagPart(sub),
	}
}

func normalizeTagPart(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "#")
	return strings.ToLower(strings.TrimSpace(s))
}

// Display returns the hashtag form: "#main" or "#main/sub".
func (t Tag) Display() string {
	if t.Sub != "" {
		return "#" + t.Main + "/" + t.Sub
	}
	return "#" + t.Main
}

// String implements fmt.Stringer.
func (t Tag) String() string { return t.Display() }
