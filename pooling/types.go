/*
Package pooling manages shared-capacity pools and reconciles changes to
their date-range partitions against existing bookings.

KEY CONCEPTS:
  - Pool:         A named, capacity-bearing resource bucket bookable over time
  - Partition:    Ordered date ranges with a capacity each, tiling a timeline
  - Reconciler:   Decides whether a proposed partition may replace the
                  existing one (accept, hard reject, or confirm-to-proceed)
  - Service:      Validation, reconciliation, persistence and events in one
                  call per request

RECONCILIATION FLOW:
  existing partition (from Store) ─┐
                                   ├─> Reconciler ─> BookingConflictOracle
  proposed partition (from caller)─┘        │
                                            v
                                   generic.Outcome

SEE ALSO:
  - reconcile.go: The pairwise comparison algorithm
  - service.go: Create/update/list/delete orchestration
  - generic/interval.go: Overlap and gap detection
*/
package pooling

import (
	"time"

	"github.com/warp/pool-engine/generic"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type PoolID int64
type SubscriberID int64
type UserID int64

// =============================================================================
// POOL
// =============================================================================

// Pool is the capacity bucket itself; its availability lives in a Partition.
type Pool struct {
	ID           PoolID
	SubscriberID SubscriberID
	Name         string
	Remarks      *string
	CreatedBy    UserID
	UpdatedBy    *UserID
	Deleted      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DateCapacity is one tuple of a partition.
type DateCapacity struct {
	Range    generic.DateRange
	Capacity int
}

// Partition is the ordered set of tuples describing one pool over time.
// Order is significant: reconciliation pairs tuples by position.
type Partition []DateCapacity

// Ranges returns the date ranges in partition order.
func (p Partition) Ranges() []generic.DateRange {
	out := make([]generic.DateRange, len(p))
	for i, dc := range p {
		out[i] = dc.Range
	}
	return out
}

// Validate returns every overlap finding followed by every gap finding.
func (p Partition) Validate() []string {
	checker := generic.NewRangeChecker(p.Ranges())
	return append(checker.OverlapMessages(), checker.GapMessages()...)
}

// DateRangeRecord is a persisted partition tuple.
type DateRangeRecord struct {
	ID           int64
	PoolID       PoolID
	SubscriberID SubscriberID
	DateCapacity
	CreatedBy UserID
	UpdatedBy *UserID
}

// PartitionOf strips persistence fields, keeping record order.
func PartitionOf(records []DateRangeRecord) Partition {
	out := make(Partition, len(records))
	for i, r := range records {
		out[i] = r.DateCapacity
	}
	return out
}

// PoolWithRanges is a pool as listed to callers.
type PoolWithRanges struct {
	Pool
	DateRanges []DateCapacity
}

// =============================================================================
// HISTORY
// =============================================================================

type HistoryAction string

const (
	HistoryInsert HistoryAction = "INSERT"
	HistoryDelete HistoryAction = "DELETE"
)

// HistoryEntry records a range insert or delete. Old* fields are only set
// for deletes.
type HistoryEntry struct {
	PoolID       PoolID
	DateRangeID  int64
	Action       HistoryAction
	OldStartDate *generic.Date
	OldEndDate   *generic.Date
	OldCapacity  *int
	CreatedBy    UserID
	SubscriberID SubscriberID
}
