package storage

import (
	"clipboard-sync/pkg/types"
	"context"
	"time"

	"go.uber.org/zap"
)

// Storage defines the interface for clipboard item persistence
type Storage interface {
	// Store saves a copied item. Content matching a live item of the same
	// type re-surfaces that item instead of creating a new one; created
	// reports whether a new item was inserted.
	Store(ctx context.Context, item types.Item) (stored *types.Item, created bool, err error)

	// Get retrieves an item by ID, trashed or not
	Get(ctx context.Context, id string) (*types.Item, error)

	// Update applies a patch to an item
	Update(ctx context.Context, id string, patch ItemPatch) (*types.Item, error)

	// SetPinned pins or unpins an item
	SetPinned(ctx context.Context, id string, pinned bool) (*types.Item, error)

	// Trash soft-deletes an item; Restore undoes it
	Trash(ctx context.Context, id string) error
	Restore(ctx context.Context, id string) error

	// Delete removes an item and its share permanently
	Delete(ctx context.Context, id string) error

	// EmptyTrash hard-deletes every trashed item and returns how many went
	EmptyTrash(ctx context.Context) (int, error)

	// List returns items matching the filter
	List(ctx context.Context, filter ListFilter) ([]*types.Item, error)

	// Count returns the number of items matching the filter, ignoring paging
	Count(ctx context.Context, filter ListFilter) (int64, error)

	// ApplyRemote writes an item received from the mirror. The local copy is
	// replaced only when the remote one is strictly newer. Reports whether
	// anything changed.
	ApplyRemote(ctx context.Context, item types.Item) (kind string, err error)

	// DeleteRemote removes a local item deleted on the mirror at the given
	// time, unless the local copy was modified afterwards.
	DeleteRemote(ctx context.Context, id string, deletedAt time.Time) (bool, error)

	// ChangesSince returns history entries with Seq > after, oldest first
	ChangesSince(ctx context.Context, after uint64, limit int) ([]Change, error)

	// PurgeHistory drops history entries with Seq <= upTo
	PurgeHistory(ctx context.Context, upTo uint64) error

	Close() error
}

// ShareStore manages the share record attached to an item.
type ShareStore interface {
	// CreateShare returns the item's existing share or creates a new one
	CreateShare(ctx context.Context, itemID, permission string) (*types.Share, error)
	FetchShare(ctx context.Context, itemID string) (*types.Share, error)
	ShareByToken(ctx context.Context, token string) (*types.Share, error)
	DeleteShare(ctx context.Context, itemID string) error
}

// PostStore is the creator_posts document collection.
type PostStore interface {
	CreatePost(ctx context.Context, post types.Post) (*types.Post, error)
	GetPost(ctx context.Context, id string) (*types.Post, error)
	ListPosts(ctx context.Context, filter PostFilter) ([]*types.Post, error)
	UpdatePost(ctx context.Context, id string, patch PostPatch) (*types.Post, error)
	DeletePost(ctx context.Context, id string) error
}

// ListFilter defines criteria for listing items
type ListFilter struct {
	Type    string
	Tags    []string // all tags must match
	Pinned  *bool
	Trashed bool // list the trash instead of live items
	Limit   int
	Offset  int
}

// ItemPatch holds optional edits; nil fields are left alone.
type ItemPatch struct {
	Content     *string   `json:"content,omitempty"`
	Type        *string   `json:"type,omitempty"`
	Filename    *string   `json:"filename,omitempty"`
	DisplayName *string   `json:"display_name,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p ItemPatch) Empty() bool {
	return p.Content == nil && p.Type == nil && p.Filename == nil &&
		p.DisplayName == nil && p.Tags == nil
}

// Apply copies the set fields onto item.
func (p ItemPatch) Apply(item *types.Item) {
	if p.Content != nil {
		item.Content = *p.Content
	}
	if p.Type != nil {
		item.Type = *p.Type
	}
	if p.Filename != nil {
		item.Filename = *p.Filename
	}
	if p.DisplayName != nil {
		item.DisplayName = *p.DisplayName
	}
	if p.Tags != nil {
		item.Tags = types.NormalizeTags(*p.Tags)
	}
}

// PostFilter narrows ListPosts.
type PostFilter struct {
	CreatorID  string
	PublicOnly bool
	Limit      int
	Offset     int
}

// PostPatch holds dashboard edits to a post.
type PostPatch struct {
	LinkTitle       *string `json:"link_title,omitempty"`
	LinkDescription *string `json:"link_description,omitempty"`
	ImageURL        *string `json:"image_url,omitempty"`
	CuratorNote     *string `json:"curator_note,omitempty"`
	IsPublic        *bool   `json:"is_public,omitempty"`
}

// Change is one history entry.
type Change struct {
	Seq    uint64
	ItemID string
	Kind   string
	Author string
	At     time.Time
}

// Config holds storage configuration
type Config struct {
	DBPath string // Path to SQLite database
	FSPath string // Path to filesystem storage for large content
	Logger *zap.Logger
}
