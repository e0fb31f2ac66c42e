package credentialsrepofake

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/sahasik/credentials"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

var _ credentials.RefreshRepo = (*FakeRefreshRepo)(nil)

// FakeRefreshRepo keeps entries in memory. Nothing survives the process.
type FakeRefreshRepo struct {
	entries map[string]credentials.Entry
	lock    sync.RWMutex
}

func NewFakeRefreshRepo() *FakeRefreshRepo {
	return &FakeRefreshRepo{
		entries: make(map[string]credentials.Entry),
	}
}

func (r *FakeRefreshRepo) Put(_ context.Context, entry credentials.Entry) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.entries[entry.Name] = entry
	return nil
}

func (r *FakeRefreshRepo) Get(_ context.Context, name string) (*credentials.Entry, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	entry, ok := r.entries[name]
	if !ok {
		return nil, nil
	}
	if entry.Expired(NowTimeFunc()) {
		delete(r.entries, name)
		return nil, nil
	}
	return &entry, nil
}

func (r *FakeRefreshRepo) Delete(_ context.Context, name string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	delete(r.entries, name)
	return nil
}

// Len reports how many entries are held, expired or not
func (r *FakeRefreshRepo) Len() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.entries)
}
