package mirror

import (
	"clipboard-sync/pkg/types"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Document is one record on the remote: either a live item or a tombstone.
type Document struct {
	ID        string      `json:"id"`
	Item      *types.Item `json:"item,omitempty"`
	Deleted   bool        `json:"deleted,omitempty"`
	DeletedAt time.Time   `json:"deleted_at,omitempty"`
}

// ModifiedAt is the time used to order competing writes.
func (d *Document) ModifiedAt() time.Time {
	if d.Deleted {
		return d.DeletedAt
	}
	if d.Item == nil {
		return time.Time{}
	}
	return d.Item.UpdatedAt
}

// Remote is the cloud side of the mirror.
type Remote interface {
	// Put stores item unless the remote already holds a newer version.
	Put(ctx context.Context, item types.Item) error
	// Tombstone marks id deleted unless the remote holds a newer version.
	Tombstone(ctx context.Context, id string, at time.Time) error
	List(ctx context.Context) ([]Document, error)
}

// DirRemote keeps one JSON document per item in a directory, suitable for a
// folder synced by a cloud drive.
type DirRemote struct {
	dir string
	mu  sync.Mutex
}

func NewDirRemote(dir string) (*DirRemote, error) {
	if dir == "" {
		return nil, fmt.Errorf("mirror path is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create mirror directory: %w", err)
	}
	return &DirRemote{dir: dir}, nil
}

func (r *DirRemote) Dir() string {
	return r.dir
}

func (r *DirRemote) docPath(id string) string {
	return filepath.Join(r.dir, id+".json")
}

// Put implements Remote
func (r *DirRemote) Put(ctx context.Context, item types.Item) error {
	if item.ID == "" {
		return fmt.Errorf("item has no id")
	}
	return r.write(ctx, Document{ID: item.ID, Item: &item})
}

// Tombstone implements Remote
func (r *DirRemote) Tombstone(ctx context.Context, id string, at time.Time) error {
	return r.write(ctx, Document{ID: id, Deleted: true, DeletedAt: at})
}

func (r *DirRemote) write(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	path := r.docPath(doc.ID)
	existing, err := readDocument(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if existing != nil && existing.ModifiedAt().After(doc.ModifiedAt()) {
		return nil
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document %s: %w", doc.ID, err)
	}
	return writeFileAtomic(path, data)
}

// List implements Remote. Unreadable documents are skipped.
func (r *DirRemote) List(ctx context.Context) ([]Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read mirror directory: %w", err)
	}

	docs := make([]Document, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") {
			continue
		}
		doc, err := readDocument(filepath.Join(r.dir, name))
		if err != nil || doc.ID == "" {
			continue
		}
		docs = append(docs, *doc)
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].ModifiedAt().Before(docs[j].ModifiedAt())
	})
	return docs, nil
}

func readDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return &doc, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return os.Rename(tmp.Name(), path)
}
