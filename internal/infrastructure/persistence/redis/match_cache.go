package redis

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/careerhub/careerhub/internal/domain/job"
	"github.com/careerhub/careerhub/pkg/circuitbreaker"
)

// keyValue is the part of Cache that MatchCache uses.
type keyValue interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// MatchCache implements job.MatchCache on top of Cache.
//
// When a list can be neither replaced nor deleted (Redis down, breaker
// open) the job is marked stale in process. Reads of a stale job report a
// miss and retry the delete, so the old list never resurfaces after Redis
// comes back.
type MatchCache struct {
	cache   keyValue
	ttl     time.Duration
	breaker *circuitbreaker.CircuitBreaker

	mu    sync.Mutex
	stale map[string]struct{}
}

// NewMatchCache creates a MatchCache. A non-positive ttl falls back to TTLMatchList.
func NewMatchCache(cache *Cache, ttl time.Duration) *MatchCache {
	return newMatchCache(cache, ttl)
}

func newMatchCache(cache keyValue, ttl time.Duration) *MatchCache {
	if ttl <= 0 {
		ttl = TTLMatchList
	}
	return &MatchCache{cache: cache, ttl: ttl, stale: make(map[string]struct{})}
}

// WithBreaker puts cb in front of every Redis call. Misses don't count as
// failures; while the circuit is open reads report a miss and writes fail fast.
func (m *MatchCache) WithBreaker(cb *circuitbreaker.CircuitBreaker) *MatchCache {
	m.breaker = cb
	return m
}

// IsCacheFailure is the breaker classifier for MatchCache.
func IsCacheFailure(err error) bool {
	return !errors.Is(err, ErrCacheMiss) && !errors.Is(err, ErrCacheSerialization)
}

func (m *MatchCache) do(ctx context.Context, fn func(context.Context) error) error {
	if m.breaker == nil {
		return fn(ctx)
	}
	return m.breaker.Execute(ctx, fn)
}

// GetMatches returns the cached ranked list or job.ErrMatchCacheMiss.
func (m *MatchCache) GetMatches(ctx context.Context, jobID string) (job.RankedList, error) {
	if m.isStale(jobID) {
		if err := m.delete(ctx, jobID); err == nil {
			m.setStale(jobID, false)
		}
		return nil, job.ErrMatchCacheMiss
	}

	var ranked job.RankedList
	err := m.do(ctx, func(ctx context.Context) error {
		return m.cache.Get(ctx, MatchesKey(jobID), &ranked)
	})
	if err != nil {
		if errors.Is(err, ErrCacheMiss) || circuitbreaker.IsRejected(err) {
			return nil, job.ErrMatchCacheMiss
		}
		return nil, err
	}
	if ranked == nil {
		ranked = job.RankedList{}
	}
	return ranked, nil
}

// SetMatches replaces the cached list. An empty list is cached too so
// reads don't fall through to the database.
func (m *MatchCache) SetMatches(ctx context.Context, jobID string, ranked job.RankedList) error {
	if ranked == nil {
		ranked = job.RankedList{}
	}
	err := m.do(ctx, func(ctx context.Context) error {
		return m.cache.Set(ctx, MatchesKey(jobID), ranked, m.ttl)
	})
	m.setStale(jobID, err != nil)
	return err
}

// InvalidateMatches drops the cached list.
func (m *MatchCache) InvalidateMatches(ctx context.Context, jobID string) error {
	err := m.delete(ctx, jobID)
	m.setStale(jobID, err != nil)
	return err
}

func (m *MatchCache) delete(ctx context.Context, jobID string) error {
	return m.do(ctx, func(ctx context.Context) error {
		return m.cache.Delete(ctx, MatchesKey(jobID))
	})
}

func (m *MatchCache) isStale(jobID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.stale[jobID]
	return ok
}

func (m *MatchCache) setStale(jobID string, stale bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if stale {
		m.stale[jobID] = struct{}{}
	} else {
		delete(m.stale, jobID)
	}
}
