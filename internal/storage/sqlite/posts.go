package sqlite

import (
	"clipboard-sync/internal/storage"
	"clipboard-sync/pkg/types"
	"context"
	"fmt"

	"github.com/google/uuid"
)

// CreatePost implements storage.PostStore interface
func (s *SQLiteStorage) CreatePost(ctx context.Context, post types.Post) (*types.Post, error) {
	if err := post.Validate(); err != nil {
		return nil, err
	}
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	now := s.now()
	post.CreatedAt = now
	post.UpdatedAt = now

	model := storage.FromPost(&post)
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	return model.ToPost(), nil
}

// GetPost implements storage.PostStore interface
func (s *SQLiteStorage) GetPost(ctx context.Context, id string) (*types.Post, error) {
	var model storage.PostModel
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToPost(), nil
}

// ListPosts implements storage.PostStore interface
func (s *SQLiteStorage) ListPosts(ctx context.Context, filter storage.PostFilter) ([]*types.Post, error) {
	query := s.db.WithContext(ctx).Model(&storage.PostModel{})
	if filter.CreatorID != "" {
		query = query.Where("creator_id = ?", filter.CreatorID)
	}
	if filter.PublicOnly {
		query = query.Where("is_public = ?", true)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var models []storage.PostModel
	if err := query.Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	posts := make([]*types.Post, len(models))
	for i := range models {
		posts[i] = models[i].ToPost()
	}
	return posts, nil
}

// UpdatePost implements storage.PostStore interface
func (s *SQLiteStorage) UpdatePost(ctx context.Context, id string, patch storage.PostPatch) (*types.Post, error) {
	var model storage.PostModel
	db := s.db.WithContext(ctx)
	if err := db.Where("id = ?", id).First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	if patch.LinkTitle != nil {
		model.LinkTitle = *patch.LinkTitle
	}
	if patch.LinkDescription != nil {
		model.LinkDescription = *patch.LinkDescription
	}
	if patch.ImageURL != nil {
		model.ImageURL = *patch.ImageURL
	}
	if patch.CuratorNote != nil {
		model.CuratorNote = *patch.CuratorNote
	}
	if patch.IsPublic != nil {
		model.IsPublic = *patch.IsPublic
	}
	model.UpdatedAt = s.now()
	if err := db.Save(&model).Error; err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}
	return model.ToPost(), nil
}

// DeletePost implements storage.PostStore interface
func (s *SQLiteStorage) DeletePost(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&storage.PostModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete post: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}
