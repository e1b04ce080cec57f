package storage

import (
	"clipboard-sync/pkg/types"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// StringArray stores a tag list as a JSON array in a text column.
type StringArray []string

func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(a))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (a *StringArray) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*a = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported tags column type %T", src)
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("failed to decode tags: %w", err)
	}
	if len(out) == 0 {
		out = nil
	}
	*a = out
	return nil
}

// ItemModel is the managed record for a clipboard item.
type ItemModel struct {
	ID          string `gorm:"primaryKey;size:36"`
	Content     string `gorm:"type:text"`
	ContentHash string `gorm:"index;size:64"`
	Size        int64
	StoragePath string
	IsExternal  bool
	Type        string    `gorm:"type:string;not null;index"`
	Filename    string
	Timestamp   time.Time `gorm:"index;not null"`
	Pinned      bool      `gorm:"index;not null;default:false"`
	Trashed     bool      `gorm:"index;not null;default:false"`
	TrashedAt   *time.Time
	DisplayName string
	Tags        StringArray `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time `gorm:"autoUpdateTime:false"`
}

func (ItemModel) TableName() string { return "clipboard_items" }

// ToItem copies every attribute of the record into a value item. External
// content is loaded by the caller.
func (m *ItemModel) ToItem() *types.Item {
	var tags []string
	if len(m.Tags) > 0 {
		tags = append(tags, m.Tags...)
	}
	return &types.Item{
		ID:          m.ID,
		Content:     m.Content,
		Type:        m.Type,
		Filename:    m.Filename,
		Timestamp:   m.Timestamp,
		Pinned:      m.Pinned,
		Trashed:     m.Trashed,
		DisplayName: m.DisplayName,
		Tags:        tags,
		UpdatedAt:   m.UpdatedAt,
	}
}

// FromItem builds a record from a value item. Storage bookkeeping fields
// (hash, size, external path) are filled in by the backend.
func FromItem(item *types.Item) *ItemModel {
	var tags StringArray
	if len(item.Tags) > 0 {
		tags = append(tags, item.Tags...)
	}
	return &ItemModel{
		ID:          item.ID,
		Content:     item.Content,
		Type:        item.Type,
		Filename:    item.Filename,
		Timestamp:   item.Timestamp,
		Pinned:      item.Pinned,
		Trashed:     item.Trashed,
		DisplayName: item.DisplayName,
		Tags:        tags,
		UpdatedAt:   item.UpdatedAt,
	}
}

// CopyInto overwrites the user-visible attributes of m with item's,
// leaving the primary key and bookkeeping alone.
func (m *ItemModel) CopyInto(item *types.Item) {
	src := FromItem(item)
	m.Content = src.Content
	m.Type = src.Type
	m.Filename = src.Filename
	m.Timestamp = src.Timestamp
	m.Pinned = src.Pinned
	m.Trashed = src.Trashed
	m.DisplayName = src.DisplayName
	m.Tags = src.Tags
	m.UpdatedAt = src.UpdatedAt
}

// ShareModel is the share record for an item. One share per item.
type ShareModel struct {
	ID         string `gorm:"primaryKey;size:36"`
	ItemID     string `gorm:"uniqueIndex;size:36;not null"`
	Token      string `gorm:"uniqueIndex;not null"`
	Permission string `gorm:"not null"`
	CreatedAt  time.Time
}

func (ShareModel) TableName() string { return "item_shares" }

func (m *ShareModel) ToShare() *types.Share {
	return &types.Share{
		ID:         m.ID,
		ItemID:     m.ItemID,
		Token:      m.Token,
		Permission: m.Permission,
		CreatedAt:  m.CreatedAt,
	}
}

// ChangeModel is one row of persistent history.
type ChangeModel struct {
	Seq    uint64 `gorm:"primaryKey;autoIncrement"`
	ItemID string `gorm:"index;size:36;not null"`
	Kind   string `gorm:"not null"`
	Author string `gorm:"not null"`
	At     time.Time
}

func (ChangeModel) TableName() string { return "item_changes" }

func (m *ChangeModel) ToChange() Change {
	return Change{Seq: m.Seq, ItemID: m.ItemID, Kind: m.Kind, Author: m.Author, At: m.At}
}

// PostModel is a creator_posts document.
type PostModel struct {
	ID              string `gorm:"primaryKey;size:36"`
	CreatorID       string `gorm:"index;not null"`
	LinkTitle       string
	LinkDescription string
	ContentURL      string `gorm:"not null"`
	ImageURL        string
	CuratorNote     string
	IsPublic        bool `gorm:"index"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (PostModel) TableName() string { return "creator_posts" }

func (m *PostModel) ToPost() *types.Post {
	return &types.Post{
		ID:              m.ID,
		CreatorID:       m.CreatorID,
		LinkTitle:       m.LinkTitle,
		LinkDescription: m.LinkDescription,
		ContentURL:      m.ContentURL,
		ImageURL:        m.ImageURL,
		CuratorNote:     m.CuratorNote,
		IsPublic:        m.IsPublic,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func FromPost(p *types.Post) *PostModel {
	return &PostModel{
		ID:              p.ID,
		CreatorID:       p.CreatorID,
		LinkTitle:       p.LinkTitle,
		LinkDescription: p.LinkDescription,
		ContentURL:      p.ContentURL,
		ImageURL:        p.ImageURL,
		CuratorNote:     p.CuratorNote,
		IsPublic:        p.IsPublic,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}
