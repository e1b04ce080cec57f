package service_test

import (
	"clipboard-sync/internal/service"
	"clipboard-sync/internal/storage"
	"clipboard-sync/internal/storage/sqlite"
	"clipboard-sync/pkg/types"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Example shows the core flow: store a copy, tag and pin it, then search.
func Example() {
	dir, err := os.MkdirTemp("", "clipboard-example-*")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	store, err := sqlite.New(storage.Config{
		DBPath: filepath.Join(dir, "clipboard.db"),
		FSPath: filepath.Join(dir, "files"),
	})
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	// No monitor: items come from Copy calls only
	clipService := service.New(store, nil, zap.NewNop())
	defer clipService.Stop()

	ctx := context.Background()
	item, err := clipService.Copy(ctx, types.Item{Content: "https://go.dev/doc/effective_go"})
	if err != nil {
		log.Fatal(err)
	}
	if _, err := clipService.AddTags(ctx, item.ID, []string{"go", "docs"}); err != nil {
		log.Fatal(err)
	}
	if _, err := clipService.Pin(ctx, item.ID); err != nil {
		log.Fatal(err)
	}

	results, err := clipService.Search(ctx, storage.SearchOptions{Query: "effective", Tags: []string{"docs"}})
	if err != nil {
		log.Fatal(err)
	}
	for _, r := range results {
		fmt.Println(r.Item.Type, r.Item.Pinned, r.Item.Tags)
	}
	// Output:
	// link true [go docs]
}
