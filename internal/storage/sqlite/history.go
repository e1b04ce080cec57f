package sqlite

import (
	"clipboard-sync/internal/storage"
	"clipboard-sync/pkg/types"
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

func recordChange(tx *gorm.DB, itemID, kind, author string, at time.Time) error {
	change := storage.ChangeModel{ItemID: itemID, Kind: kind, Author: author, At: at}
	if err := tx.Create(&change).Error; err != nil {
		return fmt.Errorf("failed to record %s of %s: %w", kind, itemID, err)
	}
	return nil
}

// ChangesSince implements storage.Storage interface
func (s *SQLiteStorage) ChangesSince(ctx context.Context, after uint64, limit int) ([]storage.Change, error) {
	query := s.db.WithContext(ctx).Where("seq > ?", after).Order("seq ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var models []storage.ChangeModel
	if err := query.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	changes := make([]storage.Change, len(models))
	for i := range models {
		changes[i] = models[i].ToChange()
	}
	return changes, nil
}

// PurgeHistory implements storage.Storage interface
func (s *SQLiteStorage) PurgeHistory(ctx context.Context, upTo uint64) error {
	if err := s.db.WithContext(ctx).Where("seq <= ?", upTo).Delete(&storage.ChangeModel{}).Error; err != nil {
		return fmt.Errorf("failed to purge history: %w", err)
	}
	return nil
}

// ApplyRemote implements storage.Storage interface. Last writer wins on
// UpdatedAt; a tie keeps the local copy. The returned kind is empty when
// the local copy was kept.
func (s *SQLiteStorage) ApplyRemote(ctx context.Context, item types.Item) (string, error) {
	if item.ID == "" {
		return "", fmt.Errorf("remote item has no id")
	}
	if err := item.Validate(); err != nil {
		return "", fmt.Errorf("remote item %s: %w", item.ID, err)
	}
	item.Tags = types.NormalizeTags(item.Tags)

	kind := ""
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model storage.ItemModel
		err := tx.Where("id = ?", item.ID).First(&model).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			model := storage.FromItem(&item)
			if err := s.setContent(model, item.Content); err != nil {
				return err
			}
			if item.Trashed {
				at := item.UpdatedAt
				model.TrashedAt = &at
			}
			if err := tx.Create(model).Error; err != nil {
				return fmt.Errorf("failed to create remote item: %w", err)
			}
			kind = storage.ChangeInsert
			return recordChange(tx, item.ID, storage.ChangeInsert, storage.AuthorMirror, s.now())
		case err != nil:
			return err
		}

		if !item.UpdatedAt.After(model.UpdatedAt) {
			return nil
		}
		oldPath := model.StoragePath
		wasTrashed := model.Trashed
		model.CopyInto(&item)
		if err := s.setContent(&model, item.Content); err != nil {
			return err
		}
		if item.Trashed && !wasTrashed {
			at := item.UpdatedAt
			model.TrashedAt = &at
		} else if !item.Trashed {
			model.TrashedAt = nil
		}
		if err := tx.Save(&model).Error; err != nil {
			return fmt.Errorf("failed to update remote item: %w", err)
		}
		if oldPath != "" && oldPath != model.StoragePath {
			if err := s.releaseExternal(tx, oldPath); err != nil {
				return err
			}
		}
		kind = storage.ChangeUpdate
		return recordChange(tx, item.ID, storage.ChangeUpdate, storage.AuthorMirror, s.now())
	})
	if err != nil {
		return "", err
	}
	return kind, nil
}

// DeleteRemote implements storage.Storage interface
func (s *SQLiteStorage) DeleteRemote(ctx context.Context, id string, deletedAt time.Time) (bool, error) {
	deleted := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model storage.ItemModel
		if err := tx.Where("id = ?", id).First(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if model.UpdatedAt.After(deletedAt) {
			return nil
		}
		deleted = true
		return s.deleteModel(tx, &model, storage.AuthorMirror)
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}
