package pooling

import "context"

// =============================================================================
// STORE - Persistence contract used by Service
// =============================================================================

// PoolFilter narrows ListPools. Limit 0 means no pagination.
type PoolFilter struct {
	SubscriberID SubscriberID
	PoolID       *PoolID
	Limit        int
	Offset       int
}

// Store persists pools, their partitions and the range history.
//
// Implementations:
//   - store/sqlite: production
//   - store/memory: tests and local development
//
// Reads and writes are independent calls. Nothing guards a pool against a
// concurrent update between DateRanges and ReplaceDateRanges.
type Store interface {
	// CreatePool returns generic.ErrDuplicatePoolName when the name is taken.
	CreatePool(ctx context.Context, pool Pool) (Pool, error)

	// GetPool returns generic.ErrPoolNotFound for missing or deleted pools.
	GetPool(ctx context.Context, subscriberID SubscriberID, id PoolID) (Pool, error)

	UpdatePool(ctx context.Context, pool Pool) error

	// ListPools returns live pools ordered by id descending, each with its
	// ranges ordered by start date.
	ListPools(ctx context.Context, filter PoolFilter) ([]PoolWithRanges, error)

	// FindPools returns the live pools among ids.
	FindPools(ctx context.Context, subscriberID SubscriberID, ids []PoolID) ([]Pool, error)

	// DateRanges returns the current partition in storage order (id asc).
	DateRanges(ctx context.Context, subscriberID SubscriberID, poolID PoolID) ([]DateRangeRecord, error)

	// InsertDateRanges stores a partition and logs an INSERT per range.
	InsertDateRanges(ctx context.Context, poolID PoolID, subscriberID SubscriberID, userID UserID, p Partition) ([]DateRangeRecord, error)

	// ReplaceDateRanges atomically logs DELETE for every current range,
	// removes them, then inserts p with INSERT history.
	ReplaceDateRanges(ctx context.Context, poolID PoolID, subscriberID SubscriberID, userID UserID, p Partition) (deleted []int64, created []DateRangeRecord, err error)

	// DeletePool atomically soft-deletes the pool, logs DELETE for each of
	// its ranges and removes them.
	DeletePool(ctx context.Context, subscriberID SubscriberID, userID UserID, id PoolID) error

	// LinkedServices names the live capacity-type services using the pool.
	LinkedServices(ctx context.Context, subscriberID SubscriberID, poolID PoolID) ([]string, error)

	// History returns the range history of a pool, oldest first.
	History(ctx context.Context, poolID PoolID) ([]HistoryEntry, error)
}
