package main

import (
	"clipboard-sync/internal/clipboard"
	"clipboard-sync/internal/service"
	"clipboard-sync/internal/storage"
	"clipboard-sync/internal/storage/sqlite"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// stack is the storage plus service shared by the item commands.
type stack struct {
	store     *sqlite.SQLiteStorage
	svc       *service.ClipboardService
	snapshots *service.SnapshotWriter
}

// st is opened lazily and closed by teardown.
var st *stack

// openStack opens storage and a service without a clipboard monitor
// unless one is given. The widget snapshot is refreshed on every change.
func openStack(monitor clipboard.Monitor) (*stack, error) {
	store, err := sqlite.New(storage.Config{
		DBPath: cfg.DBPath,
		FSPath: cfg.FSPath,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	svc := service.New(store, monitor, logger)
	snapshots := service.NewSnapshotWriter(store, cfg.Snapshot.Path, cfg.Snapshot.ThemeColor, logger)
	svc.RegisterHandler(snapshots)

	st = &stack{store: store, svc: svc, snapshots: snapshots}
	return st, nil
}

func (s *stack) close() error {
	if err := s.svc.Stop(); err != nil {
		return err
	}
	return s.store.Close()
}

// readInput returns piped stdin, or nil when stdin is a terminal.
func readInput(r io.Reader) ([]byte, error) {
	if f, ok := r.(*os.File); ok {
		info, err := f.Stat()
		if err != nil || info.Mode()&os.ModeCharDevice != 0 {
			return nil, nil
		}
	}
	data, err := io.ReadAll(io.LimitReader(r, storage.MaxStorageSize+1))
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return data, nil
}

func printJSON(w io.Writer, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Fprintln(w, string(out))
	return nil
}
