package types

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// Item types
const (
	TypeText  = "text"
	TypeLink  = "link"
	TypeImage = "image"
	TypeFile  = "file"
)

var (
	ErrEmptyContent = errors.New("item content is empty")
	ErrInvalidType  = errors.New("invalid item type")
)

// Item is a single clipboard entry as seen by callers. The persisted
// form lives in storage.ItemModel.
type Item struct {
	ID          string    `json:"id"`
	Content     string    `json:"content"`
	Type        string    `json:"type"`
	Filename    string    `json:"filename,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Pinned      bool      `json:"pinned"`
	Trashed     bool      `json:"trashed"`
	DisplayName string    `json:"display_name,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ValidType reports whether t is one of the known item types.
func ValidType(t string) bool {
	switch t {
	case TypeText, TypeLink, TypeImage, TypeFile:
		return true
	}
	return false
}

func (i *Item) Validate() error {
	if i.Content == "" {
		return ErrEmptyContent
	}
	if !ValidType(i.Type) {
		return ErrInvalidType
	}
	return nil
}

// Title is what list views show: the display name when set, else the
// filename, else the first line of content.
func (i *Item) Title() string {
	if i.DisplayName != "" {
		return i.DisplayName
	}
	if i.Filename != "" {
		return i.Filename
	}
	line, _, _ := strings.Cut(i.Content, "\n")
	return Truncate(strings.TrimSpace(line), 80)
}

// HasTag is case-insensitive.
func (i *Item) HasTag(tag string) bool {
	for _, t := range i.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// NormalizeTags trims whitespace and drops empty and duplicate tags,
// keeping the first occurrence order.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// DetectType guesses the type of copied text.
func DetectType(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.ContainsAny(trimmed, " \n\t") &&
		(strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://")) {
		return TypeLink
	}
	return TypeText
}

// Truncate shortens s to at most n runes, appending an ellipsis when cut.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}
