package repository

import (
	"context"
	"sync"
	"time"
)

type lockEntry struct {
	owner     string
	expiresAt time.Time
}

// MemoryImportLock is the in-process ImportLocker used without Redis.
type MemoryImportLock struct {
	mu    sync.Mutex
	locks map[string]lockEntry
	now   func() time.Time
}

func NewMemoryImportLock() *MemoryImportLock {
	return &MemoryImportLock{
		locks: make(map[string]lockEntry),
		now:   time.Now,
	}
}

func (r *MemoryImportLock) Acquire(_ context.Context, date, owner string, ttl time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if entry, ok := r.locks[date]; ok && now.Before(entry.expiresAt) {
		return false, nil
	}
	r.locks[date] = lockEntry{owner: owner, expiresAt: now.Add(ttl)}
	return true, nil
}

func (r *MemoryImportLock) Release(_ context.Context, date, owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.locks[date]; ok && entry.owner == owner {
		delete(r.locks, date)
	}
	return nil
}
