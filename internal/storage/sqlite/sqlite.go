package sqlite

import (
	"clipboard-sync/internal/storage"
	"clipboard-sync/pkg/types"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type SQLiteStorage struct {
	db     *gorm.DB
	fsPath string // Base path for file system storage
	now    func() time.Time
}

var (
	_ storage.Storage       = (*SQLiteStorage)(nil)
	_ storage.ShareStore    = (*SQLiteStorage)(nil)
	_ storage.PostStore     = (*SQLiteStorage)(nil)
	_ storage.SearchService = (*SQLiteStorage)(nil)
)

// New creates a new SQLite storage instance
func New(config storage.Config) (*SQLiteStorage, error) {
	dsn := config.DBPath
	if !strings.Contains(dsn, "?") {
		dsn += "?_busy_timeout=5000&_foreign_keys=on"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: newGormLogger(config.Logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// sqlite allows a single writer; serialize through one connection
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	// Auto-migrate the schema
	if err := db.AutoMigrate(&storage.ItemModel{}, &storage.ShareModel{}, &storage.ChangeModel{}, &storage.PostModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	if err := storage.VerifySchema(db, storage.ItemSchema()); err != nil {
		return nil, err
	}

	// Create storage directory if it doesn't exist
	if err := os.MkdirAll(config.FSPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &SQLiteStorage{
		db:     db,
		fsPath: config.FSPath,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Close releases the database handle
func (s *SQLiteStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// calculateHash generates SHA-256 hash of content
func calculateHash(content string) string {
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return storage.ErrNotFound
	}
	return err
}

// Store implements storage.Storage interface
func (s *SQLiteStorage) Store(ctx context.Context, item types.Item) (*types.Item, bool, error) {
	if err := item.Validate(); err != nil {
		return nil, false, err
	}
	if int64(len(item.Content)) > storage.MaxStorageSize {
		return nil, false, storage.ErrFileTooLarge
	}

	contentHash := calculateHash(item.Content)
	now := s.now()
	var result *types.Item
	created := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Same content copied again re-surfaces the live item
		var existing storage.ItemModel
		found := tx.Where("content_hash = ? AND type = ? AND trashed = ?", contentHash, item.Type, false).
			Limit(1).Find(&existing)
		if found.Error != nil {
			return fmt.Errorf("failed to check for existing content: %w", found.Error)
		}
		if found.RowsAffected > 0 {
			existing.Timestamp = now
			existing.UpdatedAt = now
			if err := tx.Save(&existing).Error; err != nil {
				return fmt.Errorf("failed to update existing item: %w", err)
			}
			if err := recordChange(tx, existing.ID, storage.ChangeUpdate, storage.AuthorLocal, now); err != nil {
				return err
			}
			result = existing.ToItem()
			result.Content = item.Content
			return nil
		}

		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		if item.Timestamp.IsZero() {
			item.Timestamp = now
		}
		item.UpdatedAt = now
		item.Trashed = false
		item.Tags = types.NormalizeTags(item.Tags)

		model := storage.FromItem(&item)
		if err := s.setContent(model, item.Content); err != nil {
			return err
		}
		if err := tx.Create(model).Error; err != nil {
			return fmt.Errorf("failed to create item: %w", err)
		}
		if err := recordChange(tx, model.ID, storage.ChangeInsert, storage.AuthorLocal, now); err != nil {
			return err
		}
		result = model.ToItem()
		result.Content = item.Content
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return result, created, nil
}

// Get implements storage.Storage interface
func (s *SQLiteStorage) Get(ctx context.Context, id string) (*types.Item, error) {
	var model storage.ItemModel
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return s.toItem(&model)
}

// Update implements storage.Storage interface
func (s *SQLiteStorage) Update(ctx context.Context, id string, patch storage.ItemPatch) (*types.Item, error) {
	var result *types.Item
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model storage.ItemModel
		if err := tx.Where("id = ?", id).First(&model).Error; err != nil {
			return notFound(err)
		}
		item, err := s.toItem(&model)
		if err != nil {
			return err
		}
		if patch.Empty() {
			result = item
			return nil
		}

		patch.Apply(item)
		if err := item.Validate(); err != nil {
			return err
		}
		if int64(len(item.Content)) > storage.MaxStorageSize {
			return storage.ErrFileTooLarge
		}

		oldPath := model.StoragePath
		item.UpdatedAt = s.now()
		model.CopyInto(item)
		if err := s.setContent(&model, item.Content); err != nil {
			return err
		}
		if err := tx.Save(&model).Error; err != nil {
			return fmt.Errorf("failed to update item: %w", err)
		}
		if oldPath != "" && oldPath != model.StoragePath {
			if err := s.releaseExternal(tx, oldPath); err != nil {
				return err
			}
		}
		if err := recordChange(tx, id, storage.ChangeUpdate, storage.AuthorLocal, item.UpdatedAt); err != nil {
			return err
		}
		result = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SetPinned implements storage.Storage interface
func (s *SQLiteStorage) SetPinned(ctx context.Context, id string, pinned bool) (*types.Item, error) {
	err := s.updateFlags(ctx, id, map[string]interface{}{"pinned": pinned}, func(m *storage.ItemModel) bool {
		return m.Pinned == pinned
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Trash implements storage.Storage interface
func (s *SQLiteStorage) Trash(ctx context.Context, id string) error {
	now := s.now()
	return s.updateFlags(ctx, id, map[string]interface{}{"trashed": true, "trashed_at": now}, func(m *storage.ItemModel) bool {
		return m.Trashed
	})
}

// Restore implements storage.Storage interface
func (s *SQLiteStorage) Restore(ctx context.Context, id string) error {
	return s.updateFlags(ctx, id, map[string]interface{}{"trashed": false, "trashed_at": nil}, func(m *storage.ItemModel) bool {
		return !m.Trashed
	})
}

// updateFlags applies column updates unless unchanged reports the item is
// already in the wanted state.
func (s *SQLiteStorage) updateFlags(ctx context.Context, id string, fields map[string]interface{}, unchanged func(*storage.ItemModel) bool) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model storage.ItemModel
		if err := tx.Where("id = ?", id).First(&model).Error; err != nil {
			return notFound(err)
		}
		if unchanged(&model) {
			return nil
		}
		now := s.now()
		fields["updated_at"] = now
		if err := tx.Model(&storage.ItemModel{}).Where("id = ?", id).Updates(fields).Error; err != nil {
			return fmt.Errorf("failed to update item %s: %w", id, err)
		}
		return recordChange(tx, id, storage.ChangeUpdate, storage.AuthorLocal, now)
	})
}

// Delete implements storage.Storage interface
func (s *SQLiteStorage) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model storage.ItemModel
		if err := tx.Where("id = ?", id).First(&model).Error; err != nil {
			return notFound(err)
		}
		return s.deleteModel(tx, &model, storage.AuthorLocal)
	})
}

// EmptyTrash implements storage.Storage interface
func (s *SQLiteStorage) EmptyTrash(ctx context.Context) (int, error) {
	deleted := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var models []storage.ItemModel
		if err := tx.Where("trashed = ?", true).Find(&models).Error; err != nil {
			return fmt.Errorf("failed to list trash: %w", err)
		}
		for i := range models {
			if err := s.deleteModel(tx, &models[i], storage.AuthorLocal); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func (s *SQLiteStorage) deleteModel(tx *gorm.DB, model *storage.ItemModel, author string) error {
	if err := tx.Where("item_id = ?", model.ID).Delete(&storage.ShareModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete share: %w", err)
	}
	if err := tx.Delete(model).Error; err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	if model.IsExternal {
		if err := s.releaseExternal(tx, model.StoragePath); err != nil {
			return err
		}
	}
	return recordChange(tx, model.ID, storage.ChangeDelete, author, s.now())
}

// List implements storage.Storage interface
func (s *SQLiteStorage) List(ctx context.Context, filter storage.ListFilter) ([]*types.Item, error) {
	query := s.filtered(s.db.WithContext(ctx).Model(&storage.ItemModel{}), filter)

	// Apply pagination
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	if filter.Trashed {
		query = query.Order("trashed_at DESC")
	} else {
		// Pinned items first, then the most recent copies
		query = query.Order("pinned DESC").Order("timestamp DESC")
	}

	var models []storage.ItemModel
	if err := query.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}

	items := make([]*types.Item, len(models))
	for i := range models {
		item, err := s.toItem(&models[i])
		if err != nil {
			return nil, err
		}
		items[i] = item
	}
	return items, nil
}

// Count implements storage.Storage interface
func (s *SQLiteStorage) Count(ctx context.Context, filter storage.ListFilter) (int64, error) {
	var n int64
	query := s.filtered(s.db.WithContext(ctx).Model(&storage.ItemModel{}), filter)
	if err := query.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return n, nil
}

func (s *SQLiteStorage) filtered(query *gorm.DB, filter storage.ListFilter) *gorm.DB {
	query = query.Where("trashed = ?", filter.Trashed)
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Pinned != nil {
		query = query.Where("pinned = ?", *filter.Pinned)
	}
	return withTags(query, filter.Tags)
}

// tagElements expands the JSON tag array into one row per tag
const tagElements = "json_each(COALESCE(NULLIF(clipboard_items.tags, ''), '[]'))"

// withTags requires every tag to equal one of the item's tags, ignoring case
func withTags(query *gorm.DB, tags []string) *gorm.DB {
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		query = query.Where("EXISTS (SELECT 1 FROM "+tagElements+" WHERE value = ? COLLATE NOCASE)", tag)
	}
	return query
}

// likeContains builds a LIKE pattern matching term literally, for use with ESCAPE '\'
func likeContains(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(term) + "%"
}

// setContent stores content inline or spills it to the filesystem,
// keeping hash and size in step.
func (s *SQLiteStorage) setContent(model *storage.ItemModel, content string) error {
	model.ContentHash = calculateHash(content)
	model.Size = int64(len(content))

	if model.Size <= storage.MaxInlineStorageSize {
		model.Content = content
		model.IsExternal = false
		model.StoragePath = ""
		return nil
	}

	filename := model.ContentHash
	path := filepath.Join(s.fsPath, filename)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return fmt.Errorf("failed to write file: %w", err)
		}
	}
	model.Content = ""
	model.IsExternal = true
	model.StoragePath = filename
	return nil
}

// releaseExternal removes a spilled file once no row references it
func (s *SQLiteStorage) releaseExternal(tx *gorm.DB, filename string) error {
	var refs int64
	if err := tx.Model(&storage.ItemModel{}).Where("storage_path = ?", filename).Count(&refs).Error; err != nil {
		return fmt.Errorf("failed to count file references: %w", err)
	}
	if refs > 0 {
		return nil
	}
	path := filepath.Join(s.fsPath, filename)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete external file: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) toItem(model *storage.ItemModel) (*types.Item, error) {
	item := model.ToItem()
	if model.IsExternal {
		content, err := s.readExternalFile(model.StoragePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read external content for item %s: %w", model.ID, err)
		}
		item.Content = string(content)
	}
	return item, nil
}

// readExternalFile reads a file from the external storage directory
func (s *SQLiteStorage) readExternalFile(filename string) ([]byte, error) {
	path := filepath.Join(s.fsPath, filename)
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return content, nil
}
