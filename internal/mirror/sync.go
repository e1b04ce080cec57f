package mirror

import (
	"clipboard-sync/internal/storage"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// pushBatch bounds how many history entries are read per round trip
const pushBatch = 200

// SyncService mirrors the local store to a Remote
type SyncService struct {
	store      storage.Storage
	remote     Remote
	tokenPath  string
	logger     *zap.Logger
	onApplied  func(storage.Change)
	syncTicker *time.Ticker
	done       chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
	mu         sync.Mutex // Serializes Sync
}

// Config holds configuration for the mirror sync service
type Config struct {
	// TokenPath persists the last pushed history sequence.
	TokenPath    string
	SyncInterval time.Duration
	// OnApplied is called for every remote change applied locally.
	OnApplied func(storage.Change)
}

// Result summarizes one sync pass.
type Result struct {
	Pushed  int
	Applied int
	Deleted int
}

// New creates a new mirror sync service
func New(store storage.Storage, remote Remote, config Config, logger *zap.Logger) (*SyncService, error) {
	if remote == nil {
		return nil, fmt.Errorf("remote is required")
	}
	if config.TokenPath == "" {
		return nil, fmt.Errorf("token path is required")
	}

	// Validate sync interval
	if config.SyncInterval <= 0 {
		return nil, fmt.Errorf("sync interval must be positive, got: %v", config.SyncInterval)
	}

	return &SyncService{
		store:      store,
		remote:     remote,
		tokenPath:  config.TokenPath,
		logger:     logger,
		onApplied:  config.OnApplied,
		syncTicker: time.NewTicker(config.SyncInterval),
		done:       make(chan struct{}),
	}, nil
}

// Start runs an initial sync and then syncs on every tick
func (s *SyncService) Start(ctx context.Context) error {
	s.logger.Info("Starting mirror sync service")

	// Perform initial sync
	if _, err := s.Sync(ctx); err != nil {
		s.logger.Warn("Initial sync error", zap.Error(err))
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-ctx.Done():
				s.logger.Debug("Mirror sync stopped (context done)")
				return
			case <-s.done:
				s.logger.Debug("Mirror sync stopped (done signal)")
				return
			case <-s.syncTicker.C:
				if _, err := s.Sync(ctx); err != nil {
					s.logger.Warn("Error during sync", zap.Error(err))
				}
			}
		}
	}()

	return nil
}

// Stop stops the sync service. Safe to call more than once.
func (s *SyncService) Stop() {
	s.stopOnce.Do(func() {
		s.syncTicker.Stop()
		close(s.done)
	})
	s.wg.Wait()
	s.logger.Info("Mirror sync service stopped")
}

// UpdateSyncInterval updates the sync interval while the service is running
func (s *SyncService) UpdateSyncInterval(interval time.Duration) {
	if interval <= 0 {
		s.logger.Warn("Ignoring non-positive sync interval", zap.Duration("interval", interval))
		return
	}
	s.logger.Info("Updating sync interval", zap.Duration("interval", interval))
	s.syncTicker.Reset(interval)
}

// Sync pushes local changes and then pulls remote ones. Pushing first keeps
// a local delete from being undone by the stale remote copy.
func (s *SyncService) Sync(ctx context.Context) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result Result
	pushed, err := s.push(ctx)
	result.Pushed = pushed
	if err != nil {
		return result, fmt.Errorf("push failed: %w", err)
	}

	applied, deleted, err := s.pull(ctx)
	result.Applied = applied
	result.Deleted = deleted
	if err != nil {
		return result, fmt.Errorf("pull failed: %w", err)
	}

	if result != (Result{}) {
		s.logger.Info("Mirror sync completed",
			zap.Int("pushed", result.Pushed),
			zap.Int("applied", result.Applied),
			zap.Int("deleted", result.Deleted))
	}
	return result, nil
}

func (s *SyncService) push(ctx context.Context) (int, error) {
	token, err := s.readToken()
	if err != nil {
		return 0, err
	}

	pushed := 0
	for {
		changes, err := s.store.ChangesSince(ctx, token, pushBatch)
		if err != nil {
			return pushed, err
		}
		if len(changes) == 0 {
			break
		}

		for _, change := range changes {
			if change.Author == storage.AuthorLocal {
				if err := s.pushChange(ctx, change); err != nil {
					return pushed, err
				}
				pushed++
			}
			token = change.Seq
		}

		if err := s.writeToken(token); err != nil {
			return pushed, err
		}
		if err := s.store.PurgeHistory(ctx, token); err != nil {
			s.logger.Warn("Failed to purge history", zap.Uint64("seq", token), zap.Error(err))
		}
		if len(changes) < pushBatch {
			break
		}
	}
	return pushed, nil
}

func (s *SyncService) pushChange(ctx context.Context, change storage.Change) error {
	if change.Kind == storage.ChangeDelete {
		return s.remote.Tombstone(ctx, change.ItemID, change.At)
	}

	item, err := s.store.Get(ctx, change.ItemID)
	if errors.Is(err, storage.ErrNotFound) {
		// Deleted later in the same history; the delete entry follows
		return nil
	}
	if err != nil {
		return err
	}
	return s.remote.Put(ctx, *item)
}

func (s *SyncService) pull(ctx context.Context) (applied, deleted int, err error) {
	docs, err := s.remote.List(ctx)
	if err != nil {
		return 0, 0, err
	}

	for _, doc := range docs {
		if doc.Deleted {
			ok, err := s.store.DeleteRemote(ctx, doc.ID, doc.DeletedAt)
			if err != nil {
				return applied, deleted, fmt.Errorf("failed to apply tombstone %s: %w", doc.ID, err)
			}
			if ok {
				deleted++
				s.applied(storage.Change{ItemID: doc.ID, Kind: storage.ChangeDelete, Author: storage.AuthorMirror, At: doc.DeletedAt})
			}
			continue
		}
		if doc.Item == nil {
			continue
		}

		kind, err := s.store.ApplyRemote(ctx, *doc.Item)
		if err != nil {
			s.logger.Warn("Skipping remote item", zap.String("item", doc.ID), zap.Error(err))
			continue
		}
		if kind != "" {
			applied++
			s.applied(storage.Change{ItemID: doc.ID, Kind: kind, Author: storage.AuthorMirror, At: doc.Item.UpdatedAt})
		}
	}
	return applied, deleted, nil
}

func (s *SyncService) applied(change storage.Change) {
	if s.onApplied != nil {
		s.onApplied(change)
	}
}

func (s *SyncService) readToken() (uint64, error) {
	data, err := os.ReadFile(s.tokenPath)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read sync token: %w", err)
	}
	token, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		s.logger.Warn("Resetting unreadable sync token", zap.String("path", s.tokenPath))
		return 0, nil
	}
	return token, nil
}

func (s *SyncService) writeToken(token uint64) error {
	return writeFileAtomic(s.tokenPath, []byte(strconv.FormatUint(token, 10)))
}
