package store

import (
	"errors"
	"sync"
	"time"

	"github.com/i474232898/weatherpulse/internal/weather"
)

var (
	// ErrNotFound is returned when no data is available for a given query.
	ErrNotFound = errors.New("no weather data for location")
)

// SnapshotHistory holds a time-ordered list of dashboards for one query key.
type SnapshotHistory struct {
	Snapshots []weather.Dashboard
}

// MemoryStore is a concurrency-safe in-memory implementation of weather.Store.
type MemoryStore struct {
	mu sync.RWMutex

	// key: query key, value: history
	data map[string]*SnapshotHistory
	// query keys, most recently saved last
	recent []string

	// retention configuration
	maxHistory int           // max number of snapshots per key
	maxAge     time.Duration // optional max age for snapshots
	now        func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]*SnapshotHistory),
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// SaveSnapshot appends a new dashboard for a query and enforces retention.
func (s *MemoryStore) SaveSnapshot(q weather.Query, d weather.Dashboard) error {
	key := q.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.data[key]
	if !ok {
		history = &SnapshotHistory{}
		s.data[key] = history
	}

	history.Snapshots = append(history.Snapshots, d)
	s.touch(key)

	// Enforce retention by count.
	if s.maxHistory > 0 && len(history.Snapshots) > s.maxHistory {
		over := len(history.Snapshots) - s.maxHistory
		history.Snapshots = history.Snapshots[over:]
	}

	// Enforce retention by age. The newest snapshot always survives.
	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		i := 0
		for ; i < len(history.Snapshots)-1; i++ {
			if !history.Snapshots[i].FetchedAt.Before(cutoff) {
				break
			}
		}
		history.Snapshots = history.Snapshots[i:]
	}

	return nil
}

// touch moves key to the end of the recency list. Callers hold s.mu.
func (s *MemoryStore) touch(key string) {
	for i, k := range s.recent {
		if k == key {
			s.recent = append(s.recent[:i], s.recent[i+1:]...)
			break
		}
	}
	s.recent = append(s.recent, key)
}

// GetLatest returns the most recent dashboard for a query.
func (s *MemoryStore) GetLatest(q weather.Query) (weather.Dashboard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[q.Key()]
	if !ok || len(history.Snapshots) == 0 {
		return weather.Dashboard{}, ErrNotFound
	}
	return history.Snapshots[len(history.Snapshots)-1], nil
}

// GetRange returns all dashboards for a query fetched between from and to (inclusive).
func (s *MemoryStore) GetRange(q weather.Query, from, to time.Time) ([]weather.Dashboard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[q.Key()]
	if !ok || len(history.Snapshots) == 0 {
		return nil, ErrNotFound
	}

	var result []weather.Dashboard
	for _, snap := range history.Snapshots {
		if !snap.FetchedAt.Before(from) && !snap.FetchedAt.After(to) {
			result = append(result, snap)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}

	return result, nil
}

// Recent returns the latest dashboard of the most recently saved keys,
// newest first.
func (s *MemoryStore) Recent(limit int) ([]weather.Dashboard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []weather.Dashboard
	for i := len(s.recent) - 1; i >= 0; i-- {
		if limit > 0 && len(result) >= limit {
			break
		}
		history := s.data[s.recent[i]]
		if history == nil || len(history.Snapshots) == 0 {
			continue
		}
		result = append(result, history.Snapshots[len(history.Snapshots)-1])
	}
	return result, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
