package storage

import (
	"clipboard-sync/pkg/types"
	"time"
)

// SearchOptions defines criteria for searching items
type SearchOptions struct {
	// Text search query, matched against content, display name,
	// filename and tags
	Query string

	// Filter by item type
	Type string

	// Filter by tags (all tags must match)
	Tags []string

	// Include trashed items
	IncludeTrashed bool

	// Time range
	From time.Time
	To   time.Time

	// Pagination
	Limit  int
	Offset int

	// Sort options
	SortBy    string // "timestamp", "updated_at"
	SortOrder string // "asc", "desc"
}

// SearchResult represents a search result with metadata
type SearchResult struct {
	Item *types.Item `json:"item"`

	// Fields the query matched in
	Matches []string `json:"matches,omitempty"`
}

// SearchService defines the interface for searching items
type SearchService interface {
	Search(opts SearchOptions) ([]SearchResult, error)

	// GetRecent returns the most recently copied live items
	GetRecent(limit int) ([]SearchResult, error)

	// GetByType returns live items of a specific type
	GetByType(itemType string, limit int) ([]SearchResult, error)
}
