// Package memory provides an in-memory store for tests and local development.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/warp/pool-engine/availability"
	"github.com/warp/pool-engine/generic"
	"github.com/warp/pool-engine/pooling"
	"github.com/warp/pool-engine/settings"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Service is a bookable service linked to a pool.
type Service struct {
	SubscriberID pooling.SubscriberID
	PoolID       pooling.PoolID
	Name         string
	CapacityType bool
	Deleted      bool
}

type Memory struct {
	mu       sync.RWMutex
	now      func() time.Time
	nextPool pooling.PoolID
	nextDR   int64
	pools    map[pooling.PoolID]pooling.Pool
	ranges   map[pooling.PoolID][]pooling.DateRangeRecord
	history  []pooling.HistoryEntry
	services []Service
	orgs     map[int64]settings.Org
	rules    []availability.Rule
}

func New() *Memory {
	return &Memory{
		now:    time.Now,
		pools:  make(map[pooling.PoolID]pooling.Pool),
		ranges: make(map[pooling.PoolID][]pooling.DateRangeRecord),
		orgs:   make(map[int64]settings.Org),
	}
}

// =============================================================================
// SEEDING
// =============================================================================

func (m *Memory) PutOrg(org settings.Org) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orgs[org.SubscriberID] = org
}

func (m *Memory) PutService(s Service) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services = append(m.services, s)
}

func (m *Memory) PutRule(r availability.Rule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, r)
}

// =============================================================================
// POOLS
// =============================================================================

func (m *Memory) CreatePool(_ context.Context, pool pooling.Pool) (pooling.Pool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.nameTakenLocked(pool.SubscriberID, pool.Name, 0) {
		return pooling.Pool{}, generic.ErrDuplicatePoolName
	}
	m.nextPool++
	pool.ID = m.nextPool
	pool.CreatedAt = m.now().UTC()
	pool.UpdatedAt = pool.CreatedAt
	m.pools[pool.ID] = pool
	return pool, nil
}

func (m *Memory) GetPool(_ context.Context, subscriberID pooling.SubscriberID, id pooling.PoolID) (pooling.Pool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pool, ok := m.pools[id]
	if !ok || pool.Deleted || pool.SubscriberID != subscriberID {
		return pooling.Pool{}, generic.ErrPoolNotFound
	}
	return pool, nil
}

func (m *Memory) UpdatePool(_ context.Context, pool pooling.Pool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.pools[pool.ID]
	if !ok || current.Deleted || current.SubscriberID != pool.SubscriberID {
		return generic.ErrPoolNotFound
	}
	if m.nameTakenLocked(pool.SubscriberID, pool.Name, pool.ID) {
		return generic.ErrDuplicatePoolName
	}
	pool.CreatedAt = current.CreatedAt
	pool.UpdatedAt = m.now().UTC()
	m.pools[pool.ID] = pool
	return nil
}

func (m *Memory) nameTakenLocked(subscriberID pooling.SubscriberID, name string, except pooling.PoolID) bool {
	for id, p := range m.pools {
		if id != except && !p.Deleted && p.SubscriberID == subscriberID && strings.EqualFold(p.Name, name) {
			return true
		}
	}
	return false
}

func (m *Memory) ListPools(_ context.Context, filter pooling.PoolFilter) ([]pooling.PoolWithRanges, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var pools []pooling.Pool
	for _, p := range m.pools {
		if p.Deleted || p.SubscriberID != filter.SubscriberID {
			continue
		}
		if filter.PoolID != nil && p.ID != *filter.PoolID {
			continue
		}
		pools = append(pools, p)
	}
	sort.Slice(pools, func(i, j int) bool { return pools[i].ID > pools[j].ID })

	if filter.Limit > 0 {
		if filter.Offset >= len(pools) {
			pools = nil
		} else {
			pools = pools[filter.Offset:min(filter.Offset+filter.Limit, len(pools))]
		}
	}

	out := make([]pooling.PoolWithRanges, 0, len(pools))
	for _, p := range pools {
		ranges := pooling.PartitionOf(m.ranges[p.ID])
		sort.SliceStable(ranges, func(i, j int) bool {
			return ranges[i].Range.Start.Before(ranges[j].Range.Start)
		})
		out = append(out, pooling.PoolWithRanges{Pool: p, DateRanges: ranges})
	}
	return out, nil
}

func (m *Memory) FindPools(_ context.Context, subscriberID pooling.SubscriberID, ids []pooling.PoolID) ([]pooling.Pool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []pooling.Pool
	seen := make(map[pooling.PoolID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if p, ok := m.pools[id]; ok && !p.Deleted && p.SubscriberID == subscriberID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *Memory) DeletePool(_ context.Context, subscriberID pooling.SubscriberID, userID pooling.UserID, id pooling.PoolID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pool, ok := m.pools[id]
	if !ok || pool.Deleted || pool.SubscriberID != subscriberID {
		return generic.ErrPoolNotFound
	}
	m.deleteRangesLocked(id, subscriberID, userID)
	pool.Deleted = true
	pool.UpdatedBy = &userID
	pool.UpdatedAt = m.now().UTC()
	m.pools[id] = pool
	return nil
}

func (m *Memory) LinkedServices(_ context.Context, subscriberID pooling.SubscriberID, poolID pooling.PoolID) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var names []string
	for _, s := range m.services {
		if s.PoolID == poolID && s.SubscriberID == subscriberID && s.CapacityType && !s.Deleted {
			names = append(names, s.Name)
		}
	}
	return names, nil
}

// =============================================================================
// DATE RANGES
// =============================================================================

func (m *Memory) DateRanges(_ context.Context, subscriberID pooling.SubscriberID, poolID pooling.PoolID) ([]pooling.DateRangeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []pooling.DateRangeRecord
	for _, r := range m.ranges[poolID] {
		if r.SubscriberID == subscriberID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) InsertDateRanges(_ context.Context, poolID pooling.PoolID, subscriberID pooling.SubscriberID, userID pooling.UserID, p pooling.Partition) ([]pooling.DateRangeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertRangesLocked(poolID, subscriberID, userID, p), nil
}

// ReplaceDateRanges is atomic under the write lock.
func (m *Memory) ReplaceDateRanges(_ context.Context, poolID pooling.PoolID, subscriberID pooling.SubscriberID, userID pooling.UserID, p pooling.Partition) ([]int64, []pooling.DateRangeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := m.deleteRangesLocked(poolID, subscriberID, userID)
	created := m.insertRangesLocked(poolID, subscriberID, userID, p)
	return deleted, created, nil
}

func (m *Memory) insertRangesLocked(poolID pooling.PoolID, subscriberID pooling.SubscriberID, userID pooling.UserID, p pooling.Partition) []pooling.DateRangeRecord {
	created := make([]pooling.DateRangeRecord, 0, len(p))
	for _, dc := range p {
		m.nextDR++
		rec := pooling.DateRangeRecord{
			ID:           m.nextDR,
			PoolID:       poolID,
			SubscriberID: subscriberID,
			DateCapacity: dc,
			CreatedBy:    userID,
		}
		m.ranges[poolID] = append(m.ranges[poolID], rec)
		m.history = append(m.history, pooling.HistoryEntry{
			PoolID:       poolID,
			DateRangeID:  rec.ID,
			Action:       pooling.HistoryInsert,
			CreatedBy:    userID,
			SubscriberID: subscriberID,
		})
		created = append(created, rec)
	}
	return created
}

func (m *Memory) deleteRangesLocked(poolID pooling.PoolID, subscriberID pooling.SubscriberID, userID pooling.UserID) []int64 {
	var deleted []int64
	var kept []pooling.DateRangeRecord
	for _, r := range m.ranges[poolID] {
		if r.SubscriberID != subscriberID {
			kept = append(kept, r)
			continue
		}
		start := r.Range.Start
		capacity := r.Capacity
		m.history = append(m.history, pooling.HistoryEntry{
			PoolID:       poolID,
			DateRangeID:  r.ID,
			Action:       pooling.HistoryDelete,
			OldStartDate: &start,
			OldEndDate:   r.Range.End,
			OldCapacity:  &capacity,
			CreatedBy:    userID,
			SubscriberID: subscriberID,
		})
		deleted = append(deleted, r.ID)
	}
	m.ranges[poolID] = kept
	return deleted
}

func (m *Memory) History(_ context.Context, poolID pooling.PoolID) ([]pooling.HistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []pooling.HistoryEntry
	for _, h := range m.history {
		if h.PoolID == poolID {
			out = append(out, h)
		}
	}
	return out, nil
}

// =============================================================================
// SETTINGS AND RULES
// =============================================================================

func (m *Memory) OrgSettings(_ context.Context, subscriberID int64) (settings.Org, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if org, ok := m.orgs[subscriberID]; ok {
		return org, nil
	}
	return settings.Org{}, settings.ErrUnknownSubscriber
}

// MatchingRules returns the subscriber's rules for the service. Rules
// without a slot apply to every slot.
func (m *Memory) MatchingRules(_ context.Context, q availability.Query) ([]availability.Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []availability.Rule
	for _, r := range m.rules {
		if r.SubscriberID != q.SubscriberID || r.ServiceID != q.ServiceID {
			continue
		}
		if r.SlotID != nil && (q.SlotID == nil || *r.SlotID != *q.SlotID) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

var (
	_ pooling.Store           = (*Memory)(nil)
	_ settings.Loader         = (*Memory)(nil)
	_ availability.RuleSource = (*Memory)(nil)
)
