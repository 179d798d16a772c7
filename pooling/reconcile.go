package pooling

import (
	"context"
	"time"

	"github.com/warp/pool-engine/generic"
)

// =============================================================================
// RECONCILER - Existing partition vs proposed partition
// =============================================================================
//
// Tuples are paired by position: existing[i] with proposed[i]. Pairing is
// NOT by range identity, so reordering ranges without changing them reads as
// a date change. Positions beyond the shorter partition are not compared.
//
// Per position:
//   1. proposed end before today        -> HardReject(PAST_DATE_ERROR)
//      proposed start after proposed end -> HardReject(DATE_VALIDATION)
//      (checked for every position before the oracle is called at all)
//   2. capacityReduced = old capacity > new capacity
//   3. excluded sub-ranges from start/end moves
//   4. bookings at OLD capacity in an excluded sub-range:
//        capacity reduced and NEW capacity exceeded there
//          -> SoftReject(REDUCED_DATE_CAPACITY_MESSAGE)
//        otherwise -> SoftReject(REDUCE_DATE_MESSAGE)
//   5. capacity reduced and bookings exceed NEW capacity over the whole
//      original range -> SoftReject(REDUCE_CAPACITY_MESSAGE)
//   6. Accept
//
// Nothing here locks the pool between reading the existing partition and
// the caller's write-back.

// ReconcileOptions tunes a single Reconcile call.
type ReconcileOptions struct {
	// Confirmed means the caller already accepted every warning for this
	// change; no check is evaluated.
	Confirmed bool
}

// Reconciler decides whether a proposed partition may replace the existing one.
type Reconciler struct {
	oracle BookingConflictOracle
	now    func() time.Time
}

// NewReconciler wires the oracle and the clock used for "today".
func NewReconciler(oracle BookingConflictOracle, now func() time.Time) *Reconciler {
	if now == nil {
		now = time.Now
	}
	return &Reconciler{oracle: oracle, now: now}
}

// Reconcile returns Accept, HardReject or SoftReject. An error is returned
// only when the oracle fails; it is a *generic.UpstreamError.
func (r *Reconciler) Reconcile(
	ctx context.Context,
	existing, proposed Partition,
	poolID PoolID,
	subscriberID SubscriberID,
	opts ReconcileOptions,
) (generic.Outcome, error) {
	if opts.Confirmed {
		return generic.Accept{}, nil
	}

	pairs := min(len(existing), len(proposed))
	today := generic.Today(r.now)

	for i := 0; i < pairs; i++ {
		if outcome := validateProposed(proposed[i].Range, today); outcome != nil {
			return outcome, nil
		}
	}

	for i := 0; i < pairs; i++ {
		outcome, err := r.reconcilePosition(ctx, existing[i], proposed[i], poolID, subscriberID)
		if err != nil {
			return nil, err
		}
		if !outcome.Success() {
			return outcome, nil
		}
	}
	return generic.Accept{}, nil
}

func validateProposed(r generic.DateRange, today generic.Date) generic.Outcome {
	if r.End != nil && r.End.Before(today) {
		return generic.HardReject{Kind: generic.KindPastDate}
	}
	if r.Inverted() {
		return generic.HardReject{Kind: generic.KindDateValidation}
	}
	return nil
}

func (r *Reconciler) reconcilePosition(
	ctx context.Context,
	old, proposed DateCapacity,
	poolID PoolID,
	subscriberID SubscriberID,
) (generic.Outcome, error) {
	capacityReduced := old.Capacity > proposed.Capacity
	excluded, dateChanged := ExcludedSubRanges(old.Range, proposed.Range)

	if dateChanged {
		for _, ex := range excluded {
			answer, err := r.check(ctx, BookingQuery{
				PoolID:       poolID,
				SubscriberID: subscriberID,
				Start:        ex.Start,
				End:          ex.EndOrFarFuture(),
				Capacity:     old.Capacity,
			})
			if err != nil {
				return nil, err
			}
			if !answer.BookingExists {
				continue
			}

			if capacityReduced {
				capacity, err := r.check(ctx, BookingQuery{
					PoolID:        poolID,
					SubscriberID:  subscriberID,
					Start:         ex.Start,
					End:           ex.EndOrFarFuture(),
					Capacity:      proposed.Capacity,
					CapacityCheck: true,
				})
				if err != nil {
					return nil, err
				}
				if capacity.CapacityExceeded {
					return generic.SoftReject{Kind: KindReducedDateCapacity}, nil
				}
			}
			return generic.SoftReject{Kind: KindReduceDate}, nil
		}
	}

	if capacityReduced {
		answer, err := r.check(ctx, BookingQuery{
			PoolID:        poolID,
			SubscriberID:  subscriberID,
			Start:         old.Range.Start,
			End:           old.Range.EndOrFarFuture(),
			Capacity:      proposed.Capacity,
			CapacityCheck: true,
		})
		if err != nil {
			return nil, err
		}
		if answer.BookingExists && answer.CapacityExceeded {
			return generic.SoftReject{Kind: KindReduceCapacity}, nil
		}
	}

	return generic.Accept{}, nil
}

func (r *Reconciler) check(ctx context.Context, q BookingQuery) (BookingAnswer, error) {
	answer, err := r.oracle.CheckBookings(ctx, q)
	if err != nil {
		return BookingAnswer{}, &generic.UpstreamError{Op: "check bookings", Err: err}
	}
	return answer, nil
}

// ExcludedSubRanges returns the spans whose coverage changes when old is
// replaced by proposed, and whether the dates changed at all. A start move
// contributes (earlier, later); an end move contributes (earlier, later)
// only when both ends are bounded.
func ExcludedSubRanges(old, proposed generic.DateRange) ([]generic.DateRange, bool) {
	var excluded []generic.DateRange
	changed := false

	if !proposed.Start.Equal(old.Start) {
		changed = true
		if proposed.Start.Before(old.Start) {
			excluded = append(excluded, generic.Closed(proposed.Start, old.Start))
		} else {
			excluded = append(excluded, generic.Closed(old.Start, proposed.Start))
		}
	}

	if old.End != nil && proposed.End != nil && !proposed.End.Equal(*old.End) {
		changed = true
		if proposed.End.Before(*old.End) {
			excluded = append(excluded, generic.Closed(*proposed.End, *old.End))
		} else {
			excluded = append(excluded, generic.Closed(*old.End, *proposed.End))
		}
	}

	return excluded, changed
}
