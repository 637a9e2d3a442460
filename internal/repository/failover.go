package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"aforo/internal/domain"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverImportLock uses primary (Redis) and switches to fallback (memory)
// while primary is failing, retrying primary once a minute.
type FailoverImportLock struct {
	primary  domain.ImportLocker
	fallback domain.ImportLocker
	logger   *zerolog.Logger
	isDown   atomic.Bool

	mu        sync.Mutex
	lastCheck time.Time
}

func NewFailoverImportLock(primary, fallback domain.ImportLocker, logger *zerolog.Logger) *FailoverImportLock {
	return &FailoverImportLock{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverImportLock) markDown(err error) {
	r.logger.Error().Err(err).Msg("Primary import lock failed, falling back to memory")
	r.isDown.Store(true)
	r.mu.Lock()
	r.lastCheck = time.Now()
	r.mu.Unlock()
}

// shouldProbe reports whether primary is down long enough to retry it.
func (r *FailoverImportLock) shouldProbe() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if time.Since(r.lastCheck) <= recoveryInterval {
		return false
	}
	r.lastCheck = time.Now()
	return true
}

func (r *FailoverImportLock) Acquire(ctx context.Context, date, owner string, ttl time.Duration) (bool, error) {
	if !r.isDown.Load() || r.shouldProbe() {
		ok, err := r.primary.Acquire(ctx, date, owner, ttl)
		if err == nil {
			if r.isDown.Swap(false) {
				r.logger.Info().Msg("Primary import lock recovered")
			}
			return ok, nil
		}
		r.markDown(err)
	}
	return r.fallback.Acquire(ctx, date, owner, ttl)
}

// Release frees the lock in both backends; the lock may have been taken by
// either one.
func (r *FailoverImportLock) Release(ctx context.Context, date, owner string) error {
	if err := r.fallback.Release(ctx, date, owner); err != nil {
		return err
	}
	if r.isDown.Load() {
		return nil
	}
	if err := r.primary.Release(ctx, date, owner); err != nil {
		r.markDown(err)
	}
	return nil
}
