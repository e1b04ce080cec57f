package types

import (
	"errors"
	"net/url"
	"time"
)

var (
	ErrMissingCreator = errors.New("post creator id is required")
	ErrInvalidURL     = errors.New("post content url must be an http(s) url")
)

// Post is a document in the creator_posts collection written by the
// browser extension and curated from the admin dashboard.
type Post struct {
	ID              string    `json:"id"`
	CreatorID       string    `json:"creator_id"`
	LinkTitle       string    `json:"link_title"`
	LinkDescription string    `json:"link_description"`
	ContentURL      string    `json:"content_url"`
	ImageURL        string    `json:"image_url,omitempty"`
	CuratorNote     string    `json:"curator_note,omitempty"`
	IsPublic        bool      `json:"is_public"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (p *Post) Validate() error {
	if p.CreatorID == "" {
		return ErrMissingCreator
	}
	if !IsWebURL(p.ContentURL) {
		return ErrInvalidURL
	}
	return nil
}

// IsWebURL reports whether raw parses as an absolute http or https URL.
func IsWebURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
