package service

import (
	"clipboard-sync/internal/clipboard"
	"clipboard-sync/internal/storage"
	"clipboard-sync/pkg/types"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

var (
	ErrReadOnlyShare = errors.New("share does not allow edits")
	ErrNoMonitor     = errors.New("clipboard monitor is not running")
)

// ClipboardError carries the failing operation and the item involved.
type ClipboardError struct {
	Op      string // Operation that failed
	ID      string // Item involved (if applicable)
	Index   int    // Index involved (if applicable)
	Message string // Error message
	Err     error  // Underlying error
}

func (e *ClipboardError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(" failed")
	if e.ID != "" {
		fmt.Fprintf(&b, " for item %s", e.ID)
	} else if e.Index >= 0 {
		fmt.Fprintf(&b, " for index %d", e.Index)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ClipboardError) Unwrap() error {
	return e.Err
}

func opError(op, id, message string, err error) error {
	return &ClipboardError{Op: op, ID: id, Index: -1, Message: message, Err: err}
}

// Store is what the service needs from the persistence layer.
type Store interface {
	storage.Storage
	storage.ShareStore
}

// ClipboardService owns item mutations and fans changes out to handlers
type ClipboardService struct {
	monitor  clipboard.Monitor
	store    Store
	logger   *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	handlers []ChangeHandler
	mu       sync.RWMutex

	// pending events, delivered in order by at most one drain goroutine
	queue    []ChangeEvent
	draining bool
	queueMu  sync.Mutex
}

// New creates a new ClipboardService. monitor may be nil when no system
// clipboard is watched.
func New(store Store, monitor clipboard.Monitor, logger *zap.Logger) *ClipboardService {
	ctx, cancel := context.WithCancel(context.Background())
	return &ClipboardService{
		monitor: monitor,
		store:   store,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// RegisterHandler adds a new change handler
func (s *ClipboardService) RegisterHandler(handler ChangeHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, handler)
}

// Start begins monitoring the clipboard, when a monitor is set
func (s *ClipboardService) Start() error {
	if s.monitor == nil {
		s.logger.Info("No clipboard monitor configured")
		return nil
	}

	s.monitor.OnChange(func(item types.Item) {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if _, err := s.Copy(s.ctx, item); err != nil {
				if errors.Is(err, storage.ErrFileTooLarge) {
					s.logger.Warn("Content too large to store", zap.Int("bytes", len(item.Content)))
					return
				}
				s.logger.Error("Error handling clipboard change", zap.Error(err))
			}
		}()
	})

	if err := s.monitor.Start(); err != nil {
		return opError("Start", "", "failed to start clipboard monitor", err)
	}
	return nil
}

// Stop gracefully shuts down the service
func (s *ClipboardService) Stop() error {
	// Signal shutdown
	s.cancel()

	if s.monitor != nil {
		if err := s.monitor.Stop(); err != nil {
			return opError("Stop", "", "failed to stop clipboard monitor", err)
		}
	}

	// Wait for ongoing operations to complete
	s.wg.Wait()
	return nil
}

// notify queues an event for delivery off the caller's goroutine. Events
// reach handlers in the order they were queued.
func (s *ClipboardService) notify(event ChangeEvent) {
	s.mu.RLock()
	n := len(s.handlers)
	s.mu.RUnlock()
	if n == 0 {
		return
	}

	s.queueMu.Lock()
	s.queue = append(s.queue, event)
	if s.draining {
		s.queueMu.Unlock()
		return
	}
	s.draining = true
	s.wg.Add(1)
	s.queueMu.Unlock()

	go s.drain()
}

func (s *ClipboardService) drain() {
	defer s.wg.Done()
	for {
		s.queueMu.Lock()
		if len(s.queue) == 0 {
			s.draining = false
			s.queueMu.Unlock()
			return
		}
		event := s.queue[0]
		s.queue[0] = ChangeEvent{}
		s.queue = s.queue[1:]
		s.queueMu.Unlock()

		s.mu.RLock()
		handlers := s.handlers
		s.mu.RUnlock()
		for _, handler := range handlers {
			handler.HandleItemChange(event)
		}
	}
}

// Publish announces a change made outside the service, such as one
// pulled from the mirror.
func (s *ClipboardService) Publish(ctx context.Context, change storage.Change) {
	event := ChangeEvent{ItemID: change.ItemID}
	switch change.Kind {
	case storage.ChangeDelete:
		event.Kind = EventDeleted
	case storage.ChangeInsert:
		event.Kind = EventCreated
	default:
		event.Kind = EventUpdated
	}
	if event.Kind != EventDeleted {
		item, err := s.store.Get(ctx, change.ItemID)
		if err != nil {
			s.logger.Warn("Failed to load changed item", zap.String("item", change.ItemID), zap.Error(err))
			return
		}
		event.Item = item
	}
	s.notify(event)
}

// Copy records a copied item (create-on-copy)
func (s *ClipboardService) Copy(ctx context.Context, item types.Item) (*types.Item, error) {
	if item.Type == "" {
		item.Type = types.DetectType(item.Content)
	}
	stored, created, err := s.store.Store(ctx, item)
	if err != nil {
		return nil, opError("Copy", "", "failed to store item", err)
	}
	s.logger.Debug("Stored item", zap.String("item", stored.ID), zap.String("type", stored.Type), zap.Bool("created", created))
	kind := EventUpdated
	if created {
		kind = EventCreated
	}
	s.notify(ChangeEvent{Kind: kind, ItemID: stored.ID, Item: stored})
	return stored, nil
}

func (s *ClipboardService) Get(ctx context.Context, id string) (*types.Item, error) {
	item, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, opError("Get", id, "failed to get item", err)
	}
	return item, nil
}

// Edit applies a patch (update-on-edit)
func (s *ClipboardService) Edit(ctx context.Context, id string, patch storage.ItemPatch) (*types.Item, error) {
	item, err := s.store.Update(ctx, id, patch)
	if err != nil {
		return nil, opError("Edit", id, "failed to update item", err)
	}
	s.notify(ChangeEvent{Kind: EventUpdated, ItemID: id, Item: item})
	return item, nil
}

func (s *ClipboardService) Pin(ctx context.Context, id string) (*types.Item, error) {
	return s.setPinned(ctx, "Pin", id, true)
}

func (s *ClipboardService) Unpin(ctx context.Context, id string) (*types.Item, error) {
	return s.setPinned(ctx, "Unpin", id, false)
}

func (s *ClipboardService) setPinned(ctx context.Context, op, id string, pinned bool) (*types.Item, error) {
	item, err := s.store.SetPinned(ctx, id, pinned)
	if err != nil {
		return nil, opError(op, id, "failed to change pin", err)
	}
	s.notify(ChangeEvent{Kind: EventUpdated, ItemID: id, Item: item})
	return item, nil
}

// Trash soft-deletes an item
func (s *ClipboardService) Trash(ctx context.Context, id string) error {
	if err := s.store.Trash(ctx, id); err != nil {
		return opError("Trash", id, "failed to trash item", err)
	}
	s.notify(ChangeEvent{Kind: EventTrashed, ItemID: id})
	return nil
}

func (s *ClipboardService) Restore(ctx context.Context, id string) error {
	if err := s.store.Restore(ctx, id); err != nil {
		return opError("Restore", id, "failed to restore item", err)
	}
	s.notify(ChangeEvent{Kind: EventRestored, ItemID: id})
	return nil
}

// Delete removes an item permanently
func (s *ClipboardService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return opError("Delete", id, "failed to delete item", err)
	}
	s.notify(ChangeEvent{Kind: EventDeleted, ItemID: id})
	return nil
}

// EmptyTrash hard-deletes all trashed items
func (s *ClipboardService) EmptyTrash(ctx context.Context) (int, error) {
	n, err := s.store.EmptyTrash(ctx)
	if err != nil {
		return 0, opError("EmptyTrash", "", "failed to empty trash", err)
	}
	if n > 0 {
		s.notify(ChangeEvent{Kind: EventDeleted})
	}
	return n, nil
}

func (s *ClipboardService) List(ctx context.Context, filter storage.ListFilter) ([]*types.Item, error) {
	items, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, opError("List", "", "failed to list items", err)
	}
	return items, nil
}

// GetClips returns a paginated list of live items
func (s *ClipboardService) GetClips(ctx context.Context, limit, offset int) ([]*types.Item, error) {
	return s.List(ctx, storage.ListFilter{Limit: limit, Offset: offset})
}

// AddTags merges tags into an item's tag list
func (s *ClipboardService) AddTags(ctx context.Context, id string, tags []string) (*types.Item, error) {
	item, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, opError("AddTags", id, "failed to get item", err)
	}
	merged := types.NormalizeTags(append(append([]string{}, item.Tags...), tags...))
	return s.Edit(ctx, id, storage.ItemPatch{Tags: &merged})
}

// RemoveTags drops tags, matched case-insensitively
func (s *ClipboardService) RemoveTags(ctx context.Context, id string, tags []string) (*types.Item, error) {
	item, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, opError("RemoveTags", id, "failed to get item", err)
	}
	remaining := []string{}
	for _, t := range item.Tags {
		drop := false
		for _, r := range tags {
			if strings.EqualFold(t, strings.TrimSpace(r)) {
				drop = true
				break
			}
		}
		if !drop {
			remaining = append(remaining, t)
		}
	}
	return s.Edit(ctx, id, storage.ItemPatch{Tags: &remaining})
}

// Search searches for items matching the given criteria
func (s *ClipboardService) Search(ctx context.Context, opts storage.SearchOptions) ([]storage.SearchResult, error) {
	if searchService, ok := s.store.(storage.SearchService); ok {
		results, err := searchService.Search(opts)
		if err != nil {
			return nil, opError("Search", "", "search failed", err)
		}
		return results, nil
	}
	return nil, opError("Search", "", "storage does not implement search", nil)
}

// GetClipByIndex returns the nth item in list order (0 being the first)
func (s *ClipboardService) GetClipByIndex(ctx context.Context, index int) (*types.Item, error) {
	if index < 0 {
		return nil, &ClipboardError{Op: "GetClipByIndex", Index: index, Message: "index must not be negative", Err: storage.ErrNotFound}
	}
	items, err := s.store.List(ctx, storage.ListFilter{Limit: 1, Offset: index})
	if err != nil {
		return nil, &ClipboardError{Op: "GetClipByIndex", Index: index, Message: "failed to retrieve items", Err: err}
	}
	if len(items) == 0 {
		return nil, &ClipboardError{Op: "GetClipByIndex", Index: index, Message: "item not found", Err: storage.ErrNotFound}
	}
	return items[0], nil
}

// PasteByIndex sets the clipboard to the nth item
func (s *ClipboardService) PasteByIndex(ctx context.Context, index int) error {
	if s.monitor == nil {
		return &ClipboardError{Op: "PasteByIndex", Index: index, Message: "cannot paste", Err: ErrNoMonitor}
	}
	item, err := s.GetClipByIndex(ctx, index)
	if err != nil {
		return err
	}
	if err := s.monitor.SetContent(*item); err != nil {
		return &ClipboardError{Op: "PasteByIndex", Index: index, Message: "failed to set clipboard content", Err: err}
	}
	s.logger.Debug("Pasted item", zap.Int("index", index), zap.String("item", item.ID))
	return nil
}

// CreateShare returns the item's share, creating it on first use
func (s *ClipboardService) CreateShare(ctx context.Context, id, permission string) (*types.Share, error) {
	share, err := s.store.CreateShare(ctx, id, permission)
	if err != nil {
		return nil, opError("CreateShare", id, "failed to create share", err)
	}
	s.notify(ChangeEvent{Kind: EventShared, ItemID: id})
	return share, nil
}

func (s *ClipboardService) FetchShare(ctx context.Context, id string) (*types.Share, error) {
	share, err := s.store.FetchShare(ctx, id)
	if err != nil {
		return nil, opError("FetchShare", id, "failed to fetch share", err)
	}
	return share, nil
}

func (s *ClipboardService) DeleteShare(ctx context.Context, id string) error {
	if err := s.store.DeleteShare(ctx, id); err != nil {
		return opError("DeleteShare", id, "failed to delete share", err)
	}
	s.notify(ChangeEvent{Kind: EventUnshared, ItemID: id})
	return nil
}

// OpenShare resolves a share token to the shared item. Trashed items are
// hidden from share holders.
func (s *ClipboardService) OpenShare(ctx context.Context, token string) (*types.Share, *types.Item, error) {
	share, err := s.store.ShareByToken(ctx, token)
	if err != nil {
		return nil, nil, opError("OpenShare", "", "failed to resolve share", err)
	}
	item, err := s.store.Get(ctx, share.ItemID)
	if err != nil {
		return nil, nil, opError("OpenShare", share.ItemID, "failed to load shared item", err)
	}
	if item.Trashed {
		return nil, nil, opError("OpenShare", share.ItemID, "shared item is in the trash", storage.ErrNotFound)
	}
	return share, item, nil
}

// EditShared applies an edit through a read-write share
func (s *ClipboardService) EditShared(ctx context.Context, token string, patch storage.ItemPatch) (*types.Item, error) {
	share, _, err := s.OpenShare(ctx, token)
	if err != nil {
		return nil, err
	}
	if !share.CanWrite() {
		return nil, opError("EditShared", share.ItemID, "edit rejected", ErrReadOnlyShare)
	}
	return s.Edit(ctx, share.ItemID, patch)
}
