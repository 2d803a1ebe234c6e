package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// FileStore is a file-based run store for CLI applications.
// Runs are stored as JSON files in a config directory.
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
}

// NewFileStore creates a new file-based run store.
// If baseDir is empty, defaults to ~/.config/siteplan/runs/
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		baseDir = filepath.Join(home, ".config", "siteplan", "runs")
	}
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (s *FileStore) runPath(id string) string {
	return filepath.Join(s.baseDir, id+".json")
}

func (s *FileStore) Record(ctx context.Context, run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	if err := os.WriteFile(s.runPath(run.ID), data, 0600); err != nil {
		return fmt.Errorf("write run file: %w", err)
	}
	return nil
}

func (s *FileStore) Get(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if filepath.Base(id) != id {
		return nil, ErrNotFound
	}
	data, err := os.ReadFile(s.runPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read run file: %w", err)
	}
	var run Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("parse run: %w", err)
	}
	return &run, nil
}

// List reads every run file. Unreadable files are skipped.
func (s *FileStore) List(ctx context.Context, f Filter) ([]*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read run dir: %w", err)
	}

	var runs []*Run
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name()))
		if err != nil {
			continue
		}
		var run Run
		if err := json.Unmarshal(data, &run); err != nil {
			continue
		}
		if f.match(&run) {
			runs = append(runs, &run)
		}
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	if n := f.limit(); len(runs) > n {
		runs = runs[:n]
	}
	return runs, nil
}

func (s *FileStore) Close() error { return nil }

// Path returns the base directory for run files.
func (s *FileStore) Path() string {
	return s.baseDir
}

var _ Store = (*FileStore)(nil)
