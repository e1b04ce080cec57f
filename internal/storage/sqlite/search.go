package sqlite

import (
	"clipboard-sync/internal/storage"
	"clipboard-sync/pkg/types"
	"fmt"
	"strings"
)

// Search implements storage.SearchService interface
func (s *SQLiteStorage) Search(opts storage.SearchOptions) ([]storage.SearchResult, error) {
	query := s.db.Model(&storage.ItemModel{})
	if !opts.IncludeTrashed {
		query = query.Where("trashed = ?", false)
	}

	searchTerm := strings.ToLower(strings.TrimSpace(opts.Query))
	if searchTerm != "" {
		like := likeContains(searchTerm)

		// Spilled text is not in the content column; scan it directly
		var externalIDs []string
		var externalItems []storage.ItemModel
		if err := s.db.Where("is_external = ? AND type IN ?", true, []string{types.TypeText, types.TypeLink}).
			Find(&externalItems).Error; err != nil {
			return nil, fmt.Errorf("failed to list external items: %w", err)
		}
		for i := range externalItems {
			content, err := s.loadExternalContent(&externalItems[i])
			if err == nil && strings.Contains(strings.ToLower(string(content)), searchTerm) {
				externalIDs = append(externalIDs, externalItems[i].ID)
			}
		}

		cond := `LOWER(content) LIKE ? ESCAPE '\' OR LOWER(display_name) LIKE ? ESCAPE '\' OR LOWER(filename) LIKE ? ESCAPE '\' OR ` +
			"EXISTS (SELECT 1 FROM " + tagElements + ` WHERE LOWER(value) LIKE ? ESCAPE '\')`
		args := []interface{}{like, like, like, like}
		if len(externalIDs) > 0 {
			cond += " OR id IN ?"
			args = append(args, externalIDs)
		}
		query = query.Where("("+cond+")", args...)
	}

	// Apply filters
	if opts.Type != "" {
		query = query.Where("type = ?", opts.Type)
	}
	query = withTags(query, opts.Tags)

	// Apply time range
	if !opts.From.IsZero() {
		query = query.Where("timestamp >= ?", opts.From)
	}
	if !opts.To.IsZero() {
		query = query.Where("timestamp <= ?", opts.To)
	}

	// Apply sorting
	if opts.SortBy != "" {
		direction := "DESC"
		if strings.ToLower(opts.SortOrder) == "asc" {
			direction = "ASC"
		}

		switch opts.SortBy {
		case "timestamp":
			query = query.Order(fmt.Sprintf("timestamp %s", direction))
		case "updated_at":
			query = query.Order(fmt.Sprintf("updated_at %s", direction))
		}
	} else {
		query = query.Order("pinned DESC").Order("timestamp DESC")
	}

	// Apply pagination
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		query = query.Offset(opts.Offset)
	}

	var models []storage.ItemModel
	if err := query.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to search items: %w", err)
	}

	results := make([]storage.SearchResult, 0, len(models))
	for i := range models {
		item, err := s.toItem(&models[i])
		if err != nil {
			return nil, err
		}
		results = append(results, storage.SearchResult{
			Item:    item,
			Matches: matchedFields(item, searchTerm),
		})
	}
	return results, nil
}

// GetRecent implements storage.SearchService interface
func (s *SQLiteStorage) GetRecent(limit int) ([]storage.SearchResult, error) {
	return s.Search(storage.SearchOptions{
		Limit:     limit,
		SortBy:    "timestamp",
		SortOrder: "desc",
	})
}

// GetByType implements storage.SearchService interface
func (s *SQLiteStorage) GetByType(itemType string, limit int) ([]storage.SearchResult, error) {
	return s.Search(storage.SearchOptions{
		Type:      itemType,
		Limit:     limit,
		SortBy:    "timestamp",
		SortOrder: "desc",
	})
}

func matchedFields(item *types.Item, term string) []string {
	if term == "" {
		return nil
	}
	var matches []string
	if strings.Contains(strings.ToLower(item.Content), term) {
		matches = append(matches, "content")
	}
	if strings.Contains(strings.ToLower(item.DisplayName), term) {
		matches = append(matches, "display_name")
	}
	if strings.Contains(strings.ToLower(item.Filename), term) {
		matches = append(matches, "filename")
	}
	for _, tag := range item.Tags {
		if strings.Contains(strings.ToLower(tag), term) {
			matches = append(matches, "tags")
			break
		}
	}
	return matches
}

// loadExternalContent loads content from filesystem for external storage
func (s *SQLiteStorage) loadExternalContent(model *storage.ItemModel) ([]byte, error) {
	if !model.IsExternal || model.StoragePath == "" {
		return nil, fmt.Errorf("not an external item")
	}

	return s.readExternalFile(model.StoragePath)
}
