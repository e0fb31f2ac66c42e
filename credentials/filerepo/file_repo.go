package filerepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jrsteele09/sahasik/credentials"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

var _ credentials.RefreshRepo = (*FileRepo)(nil)

// FileRepo persists refresh token entries to a JSON file so they survive
// process restarts. Every write replaces the file atomically.
type FileRepo struct {
	mu   sync.Mutex
	path string
}

type snapshot struct {
	Entries map[string]credentials.Entry `json:"entries"`
}

func New(path string) *FileRepo {
	return &FileRepo{path: path}
}

func (f *FileRepo) Path() string {
	return f.path
}

func (f *FileRepo) Put(_ context.Context, entry credentials.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, err := f.load()
	if err != nil {
		return err
	}
	snap.Entries[entry.Name] = entry
	return f.save(snap)
}

func (f *FileRepo) Get(_ context.Context, name string) (*credentials.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, err := f.load()
	if err != nil {
		return nil, err
	}
	entry, ok := snap.Entries[name]
	if !ok {
		return nil, nil
	}
	if entry.Expired(NowTimeFunc()) {
		delete(snap.Entries, name)
		return nil, f.save(snap)
	}
	return &entry, nil
}

func (f *FileRepo) Delete(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, err := f.load()
	if err != nil {
		return err
	}
	if _, ok := snap.Entries[name]; !ok {
		return nil
	}
	delete(snap.Entries, name)
	return f.save(snap)
}

func (f *FileRepo) load() (*snapshot, error) {
	snap := &snapshot{Entries: map[string]credentials.Entry{}}
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return snap, nil
		}
		return nil, fmt.Errorf("[FileRepo.load] %w", err)
	}
	if len(data) == 0 {
		return snap, nil
	}
	if err = json.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("[FileRepo.load] corrupt credential file %s: %w", f.path, err)
	}
	if snap.Entries == nil {
		snap.Entries = map[string]credentials.Entry{}
	}
	return snap, nil
}

func (f *FileRepo) save(snap *snapshot) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("[FileRepo.save] %w", err)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("[FileRepo.save] %w", err)
	}
	tmp := f.path + ".tmp"
	if err = os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("[FileRepo.save] %w", err)
	}
	if err = os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("[FileRepo.save] %w", err)
	}
	return nil
}
