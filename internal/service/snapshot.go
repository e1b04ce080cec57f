package service

import (
	"clipboard-sync/internal/storage"
	"clipboard-sync/pkg/types"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// latestPreviewRunes bounds the latest-item text shown by the widget
const latestPreviewRunes = 80

// SnapshotWriter keeps the widget snapshot file current.
type SnapshotWriter struct {
	store      storage.Storage
	path       string
	themeColor string
	logger     *zap.Logger
	now        func() time.Time
	mu         sync.Mutex
}

func NewSnapshotWriter(store storage.Storage, path, themeColor string, logger *zap.Logger) *SnapshotWriter {
	return &SnapshotWriter{
		store:      store,
		path:       path,
		themeColor: themeColor,
		logger:     logger,
		now:        time.Now,
	}
}

// Build computes the current snapshot from storage.
func (w *SnapshotWriter) Build(ctx context.Context) (*types.Snapshot, error) {
	total, err := w.store.Count(ctx, storage.ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to count items: %w", err)
	}
	pinned := true
	pinnedCount, err := w.store.Count(ctx, storage.ListFilter{Pinned: &pinned})
	if err != nil {
		return nil, fmt.Errorf("failed to count pinned items: %w", err)
	}

	snap := &types.Snapshot{
		ItemCount:   int(total),
		PinnedCount: int(pinnedCount),
		ThemeColor:  w.themeColor,
		UpdatedAt:   w.now().UTC(),
	}

	// Latest is the most recent copy, ignoring pin order
	item, err := w.latest(ctx)
	if err != nil {
		return nil, err
	}
	if item != nil {
		snap.Latest = types.Truncate(item.Title(), latestPreviewRunes)
	}
	return snap, nil
}

func (w *SnapshotWriter) latest(ctx context.Context) (*types.Item, error) {
	if searcher, ok := w.store.(storage.SearchService); ok {
		recent, err := searcher.GetRecent(1)
		if err != nil {
			return nil, fmt.Errorf("failed to get latest item: %w", err)
		}
		if len(recent) == 0 {
			return nil, nil
		}
		return recent[0].Item, nil
	}
	items, err := w.store.List(ctx, storage.ListFilter{Limit: 1})
	if err != nil {
		return nil, fmt.Errorf("failed to get latest item: %w", err)
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items[0], nil
}

// Write rebuilds the snapshot and replaces the file atomically.
// Builds and writes are serialized so the file never goes back to an older state.
func (w *SnapshotWriter) Write(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	snap, err := w.Build(ctx)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".snapshot-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), w.path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// HandleItemChange implements ChangeHandler
func (w *SnapshotWriter) HandleItemChange(event ChangeEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.Write(ctx); err != nil {
		w.logger.Warn("Failed to write snapshot", zap.String("path", w.path), zap.Error(err))
	}
}
