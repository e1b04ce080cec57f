package sqlite

import (
	"clipboard-sync/internal/storage"
	"clipboard-sync/pkg/types"
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func newShareToken() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate share token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// CreateShare implements storage.ShareStore interface
func (s *SQLiteStorage) CreateShare(ctx context.Context, itemID, permission string) (*types.Share, error) {
	if permission == "" {
		permission = types.PermissionReadOnly
	}
	if !types.ValidPermission(permission) {
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidPermission, permission)
	}

	var result *types.Share
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item storage.ItemModel
		if err := tx.Where("id = ? AND trashed = ?", itemID, false).First(&item).Error; err != nil {
			return notFound(err)
		}

		var existing storage.ShareModel
		err := tx.Where("item_id = ?", itemID).First(&existing).Error
		if err == nil {
			result = existing.ToShare()
			return nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to look up share: %w", err)
		}

		token, err := newShareToken()
		if err != nil {
			return err
		}
		model := storage.ShareModel{
			ID:         uuid.NewString(),
			ItemID:     itemID,
			Token:      token,
			Permission: permission,
			CreatedAt:  s.now(),
		}
		if err := tx.Create(&model).Error; err != nil {
			return fmt.Errorf("failed to create share: %w", err)
		}
		result = model.ToShare()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// FetchShare implements storage.ShareStore interface
func (s *SQLiteStorage) FetchShare(ctx context.Context, itemID string) (*types.Share, error) {
	var model storage.ShareModel
	if err := s.db.WithContext(ctx).Where("item_id = ?", itemID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrNotShared
		}
		return nil, fmt.Errorf("failed to fetch share: %w", err)
	}
	return model.ToShare(), nil
}

// ShareByToken implements storage.ShareStore interface
func (s *SQLiteStorage) ShareByToken(ctx context.Context, token string) (*types.Share, error) {
	var model storage.ShareModel
	if err := s.db.WithContext(ctx).Where("token = ?", token).First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToShare(), nil
}

// DeleteShare implements storage.ShareStore interface
func (s *SQLiteStorage) DeleteShare(ctx context.Context, itemID string) error {
	result := s.db.WithContext(ctx).Where("item_id = ?", itemID).Delete(&storage.ShareModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete share: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return storage.ErrNotShared
	}
	return nil
}
