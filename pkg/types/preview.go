package types

import "time"

// LinkPreview holds the Open Graph data scraped from a page.
type LinkPreview struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Image       string `json:"image,omitempty"`
	Description string `json:"description,omitempty"`
	SiteName    string `json:"site_name,omitempty"`
}

// Empty reports whether no usable metadata was found.
func (p *LinkPreview) Empty() bool {
	return p.Title == "" && p.Image == "" && p.Description == ""
}

// Snapshot is the small summary the widget and live activity render.
type Snapshot struct {
	ItemCount   int       `json:"item_count"`
	PinnedCount int       `json:"pinned_count"`
	ThemeColor  string    `json:"theme_color"`
	Latest      string    `json:"latest,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}
