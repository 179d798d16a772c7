package pooling_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/pool-engine/generic"
	"github.com/warp/pool-engine/pooling"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func day(s string) generic.Date {
	d, err := generic.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// tuple builds a partition entry; an empty end means open-ended.
func tuple(start, end string, capacity int) pooling.DateCapacity {
	r := generic.OpenEnded(day(start))
	if end != "" {
		r = generic.Closed(day(start), day(end))
	}
	return pooling.DateCapacity{Range: r, Capacity: capacity}
}

func fixedNow() time.Time {
	return time.Date(2025, time.January, 15, 9, 0, 0, 0, time.UTC)
}

// scriptedOracle records every query and answers through answer.
type scriptedOracle struct {
	answer func(q pooling.BookingQuery) (pooling.BookingAnswer, error)
	calls  []pooling.BookingQuery
}

func (o *scriptedOracle) CheckBookings(_ context.Context, q pooling.BookingQuery) (pooling.BookingAnswer, error) {
	o.calls = append(o.calls, q)
	if o.answer == nil {
		return pooling.BookingAnswer{}, nil
	}
	return o.answer(q)
}

func always(answer pooling.BookingAnswer) func(pooling.BookingQuery) (pooling.BookingAnswer, error) {
	return func(pooling.BookingQuery) (pooling.BookingAnswer, error) { return answer, nil }
}

func reconcile(t *testing.T, oracle *scriptedOracle, existing, proposed pooling.Partition, opts pooling.ReconcileOptions) generic.Outcome {
	t.Helper()
	r := pooling.NewReconciler(oracle, fixedNow)
	outcome, err := r.Reconcile(context.Background(), existing, proposed, 7, 3, opts)
	require.NoError(t, err)
	require.NotNil(t, outcome)
	return outcome
}

// =============================================================================
// ACCEPT WITHOUT ORACLE CALLS
// =============================================================================

func TestReconcile_UnchangedPartitionAcceptsWithoutOracle(t *testing.T) {
	// GIVEN: a partition resubmitted as is
	existing := pooling.Partition{
		tuple("2025-02-01", "2025-06-30", 10),
		tuple("2025-07-01", "", 8),
	}
	oracle := &scriptedOracle{answer: always(pooling.BookingAnswer{BookingExists: true, CapacityExceeded: true})}

	// WHEN: reconciled
	outcome := reconcile(t, oracle, existing, existing, pooling.ReconcileOptions{})

	// THEN: accepted, oracle never asked
	assert.Equal(t, generic.Accept{}, outcome)
	assert.Empty(t, oracle.calls)
}

func TestReconcile_CapacityIncreaseAcceptsWithoutOracle(t *testing.T) {
	existing := pooling.Partition{tuple("2025-02-01", "2025-06-30", 10)}
	proposed := pooling.Partition{tuple("2025-02-01", "2025-06-30", 25)}
	oracle := &scriptedOracle{answer: always(pooling.BookingAnswer{BookingExists: true, CapacityExceeded: true})}

	outcome := reconcile(t, oracle, existing, proposed, pooling.ReconcileOptions{})

	assert.True(t, outcome.Success())
	assert.Empty(t, oracle.calls)
}

func TestReconcile_ExtraProposedTuplesAreNotCompared(t *testing.T) {
	// GIVEN: a new trailing tuple with no existing counterpart
	existing := pooling.Partition{tuple("2025-02-01", "2025-06-30", 10)}
	proposed := pooling.Partition{
		tuple("2025-02-01", "2025-06-30", 10),
		tuple("2025-07-01", "2025-12-31", 1),
	}
	oracle := &scriptedOracle{}

	outcome := reconcile(t, oracle, existing, proposed, pooling.ReconcileOptions{})

	assert.True(t, outcome.Success())
	assert.Empty(t, oracle.calls)
}

func TestReconcile_ConfirmedSkipsEveryCheck(t *testing.T) {
	// GIVEN: a change that would otherwise hard-reject
	existing := pooling.Partition{tuple("2025-02-01", "2025-06-30", 10)}
	proposed := pooling.Partition{tuple("2024-12-01", "2024-12-31", 1)}
	oracle := &scriptedOracle{}

	// WHEN: the caller confirmed
	outcome := reconcile(t, oracle, existing, proposed, pooling.ReconcileOptions{Confirmed: true})

	// THEN: accepted without looking
	assert.Equal(t, generic.Accept{}, outcome)
	assert.Empty(t, oracle.calls)
}

// =============================================================================
// DATE CHANGES
// =============================================================================

func TestReconcile_ShrinkWithoutBookingsAccepts(t *testing.T) {
	// GIVEN: the end moves earlier and nothing is booked in the cut-off span
	existing := pooling.Partition{tuple("2025-02-01", "2025-12-31", 10)}
	proposed := pooling.Partition{tuple("2025-02-01", "2025-10-31", 10)}
	oracle := &scriptedOracle{}

	outcome := reconcile(t, oracle, existing, proposed, pooling.ReconcileOptions{})

	// THEN: accepted after exactly one query over the excluded span at the old capacity
	assert.True(t, outcome.Success())
	require.Len(t, oracle.calls, 1)
	q := oracle.calls[0]
	assert.Equal(t, pooling.PoolID(7), q.PoolID)
	assert.Equal(t, pooling.SubscriberID(3), q.SubscriberID)
	assert.True(t, q.Start.Equal(day("2025-10-31")))
	assert.True(t, q.End.Equal(day("2025-12-31")))
	assert.Equal(t, 10, q.Capacity)
	assert.False(t, q.CapacityCheck)
}

func TestReconcile_ShrinkWithBookingsAsksForConfirmation(t *testing.T) {
	existing := pooling.Partition{tuple("2025-02-01", "2025-12-31", 10)}
	proposed := pooling.Partition{tuple("2025-02-01", "2025-10-31", 10)}
	oracle := &scriptedOracle{answer: always(pooling.BookingAnswer{BookingExists: true})}

	outcome := reconcile(t, oracle, existing, proposed, pooling.ReconcileOptions{})

	assert.Equal(t, generic.SoftReject{Kind: pooling.KindReduceDate}, outcome)
	assert.True(t, outcome.RequiresConfirmation())
	assert.Equal(t, "REDUCE_DATE_MESSAGE", outcome.TranslationKey())
}

func TestReconcile_StartMovedEarlierQueriesNewSpan(t *testing.T) {
	// GIVEN: coverage extended backwards
	existing := pooling.Partition{tuple("2025-03-01", "2025-06-30", 4)}
	proposed := pooling.Partition{tuple("2025-02-01", "2025-06-30", 4)}
	oracle := &scriptedOracle{}

	outcome := reconcile(t, oracle, existing, proposed, pooling.ReconcileOptions{})

	// THEN: the span between the two starts is checked, boundaries unchanged
	assert.True(t, outcome.Success())
	require.Len(t, oracle.calls, 1)
	assert.True(t, oracle.calls[0].Start.Equal(day("2025-02-01")))
	assert.True(t, oracle.calls[0].End.Equal(day("2025-03-01")))
}

func TestReconcile_StartAndEndMovesAreBothChecked(t *testing.T) {
	existing := pooling.Partition{tuple("2025-02-01", "2025-12-31", 10)}
	proposed := pooling.Partition{tuple("2025-03-01", "2025-11-30", 10)}
	oracle := &scriptedOracle{}

	outcome := reconcile(t, oracle, existing, proposed, pooling.ReconcileOptions{})

	assert.True(t, outcome.Success())
	require.Len(t, oracle.calls, 2)
	assert.True(t, oracle.calls[0].Start.Equal(day("2025-02-01")))
	assert.True(t, oracle.calls[1].End.Equal(day("2025-12-31")))
}

func TestReconcile_ReducedDatesAndCapacity(t *testing.T) {
	// GIVEN: dates shrink and capacity drops from 10 to 5
	existing := pooling.Partition{tuple("2025-02-01", "2025-12-31", 10)}
	proposed := pooling.Partition{tuple("2025-02-01", "2025-10-31", 5)}

	t.Run("new capacity exceeded in excluded span", func(t *testing.T) {
		oracle := &scriptedOracle{answer: always(pooling.BookingAnswer{BookingExists: true, CapacityExceeded: true})}

		outcome := reconcile(t, oracle, existing, proposed, pooling.ReconcileOptions{})

		assert.Equal(t, generic.SoftReject{Kind: pooling.KindReducedDateCapacity}, outcome)
		require.Len(t, oracle.calls, 2)
		assert.Equal(t, 10, oracle.calls[0].Capacity)
		assert.False(t, oracle.calls[0].CapacityCheck)
		assert.Equal(t, 5, oracle.calls[1].Capacity)
		assert.True(t, oracle.calls[1].CapacityCheck)
	})

	t.Run("bookings present but within new capacity", func(t *testing.T) {
		oracle := &scriptedOracle{answer: always(pooling.BookingAnswer{BookingExists: true})}

		outcome := reconcile(t, oracle, existing, proposed, pooling.ReconcileOptions{})

		assert.Equal(t, generic.SoftReject{Kind: pooling.KindReduceDate}, outcome)
	})
}

// =============================================================================
// CAPACITY-ONLY CHANGES
// =============================================================================

func TestReconcile_CapacityReductionChecksWholeOriginalRange(t *testing.T) {
	// GIVEN: an open-ended tuple whose capacity drops
	existing := pooling.Partition{tuple("2025-02-01", "", 10)}
	proposed := pooling.Partition{tuple("2025-02-01", "", 3)}
	oracle := &scriptedOracle{answer: always(pooling.BookingAnswer{BookingExists: true, CapacityExceeded: true})}

	outcome := reconcile(t, oracle, existing, proposed, pooling.ReconcileOptions{})

	// THEN: one capacity query spanning the original range to the far future
	assert.Equal(t, generic.SoftReject{Kind: pooling.KindReduceCapacity}, outcome)
	require.Len(t, oracle.calls, 1)
	q := oracle.calls[0]
	assert.True(t, q.Start.Equal(day("2025-02-01")))
	assert.True(t, q.End.Equal(generic.FarFuture))
	assert.Equal(t, 3, q.Capacity)
	assert.True(t, q.CapacityCheck)
}

func TestReconcile_CapacityReductionNeedsBookingsAndExcess(t *testing.T) {
	existing := pooling.Partition{tuple("2025-02-01", "2025-06-30", 10)}
	proposed := pooling.Partition{tuple("2025-02-01", "2025-06-30", 3)}

	for name, answer := range map[string]pooling.BookingAnswer{
		"no bookings":         {},
		"bookings within cap": {BookingExists: true},
		"excess flag only":    {CapacityExceeded: true},
	} {
		t.Run(name, func(t *testing.T) {
			oracle := &scriptedOracle{answer: always(answer)}
			outcome := reconcile(t, oracle, existing, proposed, pooling.ReconcileOptions{})
			assert.True(t, outcome.Success())
		})
	}
}

// =============================================================================
// HARD REJECTS
// =============================================================================

func TestReconcile_PastEndDateRejected(t *testing.T) {
	existing := pooling.Partition{tuple("2024-11-01", "2025-06-30", 10)}
	proposed := pooling.Partition{tuple("2024-11-01", "2025-01-14", 10)}
	oracle := &scriptedOracle{}

	outcome := reconcile(t, oracle, existing, proposed, pooling.ReconcileOptions{})

	assert.Equal(t, generic.HardReject{Kind: generic.KindPastDate}, outcome)
	assert.False(t, outcome.RequiresConfirmation())
	assert.Empty(t, oracle.calls)
}

func TestReconcile_EndingTodayIsNotPast(t *testing.T) {
	existing := pooling.Partition{tuple("2024-11-01", "2025-06-30", 10)}
	proposed := pooling.Partition{tuple("2024-11-01", "2025-01-15", 10)}
	oracle := &scriptedOracle{}

	outcome := reconcile(t, oracle, existing, proposed, pooling.ReconcileOptions{})

	assert.True(t, outcome.Success())
}

func TestReconcile_InvertedRangeRejected(t *testing.T) {
	existing := pooling.Partition{tuple("2025-02-01", "2025-06-30", 10)}
	proposed := pooling.Partition{{
		Range:    generic.DateRange{Start: day("2025-08-01"), End: ptrDate(day("2025-07-01"))},
		Capacity: 10,
	}}
	oracle := &scriptedOracle{}

	outcome := reconcile(t, oracle, existing, proposed, pooling.ReconcileOptions{})

	assert.Equal(t, generic.HardReject{Kind: generic.KindDateValidation}, outcome)
	assert.Empty(t, oracle.calls)
}

func TestReconcile_LaterInvalidPositionPreemptsOracle(t *testing.T) {
	// GIVEN: position 0 needs an oracle check, position 1 is in the past
	existing := pooling.Partition{
		tuple("2025-02-01", "2025-12-31", 10),
		tuple("2024-01-01", "2025-01-31", 10),
	}
	proposed := pooling.Partition{
		tuple("2025-02-01", "2025-10-31", 10),
		tuple("2024-01-01", "2024-12-31", 10),
	}
	oracle := &scriptedOracle{answer: always(pooling.BookingAnswer{BookingExists: true})}

	outcome := reconcile(t, oracle, existing, proposed, pooling.ReconcileOptions{})

	// THEN: the hard reject wins and no query is made
	assert.Equal(t, generic.HardReject{Kind: generic.KindPastDate}, outcome)
	assert.Empty(t, oracle.calls)
}

func ptrDate(d generic.Date) *generic.Date { return &d }

// =============================================================================
// PAIRING AND DETERMINISM
// =============================================================================

func TestReconcile_ReorderingReadsAsDateChange(t *testing.T) {
	// GIVEN: the same two tuples in swapped order
	a := tuple("2025-02-01", "2025-06-30", 10)
	b := tuple("2025-07-01", "2025-12-31", 10)
	oracle := &scriptedOracle{answer: always(pooling.BookingAnswer{BookingExists: true})}

	outcome := reconcile(t, oracle, pooling.Partition{a, b}, pooling.Partition{b, a}, pooling.ReconcileOptions{})

	// THEN: positional pairing sees moved dates
	assert.Equal(t, generic.SoftReject{Kind: pooling.KindReduceDate}, outcome)
	assert.NotEmpty(t, oracle.calls)
}

func TestReconcile_StopsAtFirstRejectingPosition(t *testing.T) {
	existing := pooling.Partition{
		tuple("2025-02-01", "2025-06-30", 10),
		tuple("2025-07-01", "2025-12-31", 10),
	}
	proposed := pooling.Partition{
		tuple("2025-02-01", "2025-05-31", 10),
		tuple("2025-07-01", "2025-12-31", 2),
	}
	oracle := &scriptedOracle{answer: always(pooling.BookingAnswer{BookingExists: true, CapacityExceeded: true})}

	outcome := reconcile(t, oracle, existing, proposed, pooling.ReconcileOptions{})

	assert.Equal(t, generic.SoftReject{Kind: pooling.KindReduceDate}, outcome)
	assert.Len(t, oracle.calls, 1)
}

func TestReconcile_Idempotent(t *testing.T) {
	existing := pooling.Partition{tuple("2025-02-01", "2025-12-31", 10)}
	proposed := pooling.Partition{tuple("2025-02-01", "2025-10-31", 5)}
	oracle := &scriptedOracle{answer: always(pooling.BookingAnswer{BookingExists: true, CapacityExceeded: true})}

	first := reconcile(t, oracle, existing, proposed, pooling.ReconcileOptions{})
	second := reconcile(t, oracle, existing, proposed, pooling.ReconcileOptions{})

	assert.Equal(t, first, second)
}

// =============================================================================
// ORACLE FAILURES
// =============================================================================

func TestReconcile_OracleFailureIsUpstreamError(t *testing.T) {
	existing := pooling.Partition{tuple("2025-02-01", "2025-12-31", 10)}
	proposed := pooling.Partition{tuple("2025-02-01", "2025-10-31", 10)}
	boom := errors.New("connection refused")
	oracle := pooling.OracleFunc(func(context.Context, pooling.BookingQuery) (pooling.BookingAnswer, error) {
		return pooling.BookingAnswer{}, boom
	})

	r := pooling.NewReconciler(oracle, fixedNow)
	outcome, err := r.Reconcile(context.Background(), existing, proposed, 7, 3, pooling.ReconcileOptions{})

	require.Error(t, err)
	assert.Nil(t, outcome)
	assert.ErrorIs(t, err, generic.ErrUpstream)
	assert.ErrorIs(t, err, boom)

	var upstream *generic.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, "check bookings", upstream.Op)
}

// =============================================================================
// EXCLUDED SUB-RANGES
// =============================================================================

func TestExcludedSubRanges(t *testing.T) {
	tests := []struct {
		name     string
		old      pooling.DateCapacity
		proposed pooling.DateCapacity
		changed  bool
		want     []generic.DateRange
	}{
		{
			name:     "identical",
			old:      tuple("2025-02-01", "2025-06-30", 1),
			proposed: tuple("2025-02-01", "2025-06-30", 1),
		},
		{
			name:     "start later",
			old:      tuple("2025-02-01", "2025-06-30", 1),
			proposed: tuple("2025-03-01", "2025-06-30", 1),
			changed:  true,
			want:     []generic.DateRange{generic.Closed(day("2025-02-01"), day("2025-03-01"))},
		},
		{
			name:     "end earlier",
			old:      tuple("2025-02-01", "2025-06-30", 1),
			proposed: tuple("2025-02-01", "2025-05-31", 1),
			changed:  true,
			want:     []generic.DateRange{generic.Closed(day("2025-05-31"), day("2025-06-30"))},
		},
		{
			name:     "end later",
			old:      tuple("2025-02-01", "2025-06-30", 1),
			proposed: tuple("2025-02-01", "2025-08-31", 1),
			changed:  true,
			want:     []generic.DateRange{generic.Closed(day("2025-06-30"), day("2025-08-31"))},
		},
		{
			name:     "closed end opened",
			old:      tuple("2025-02-01", "2025-06-30", 1),
			proposed: tuple("2025-02-01", "", 1),
		},
		{
			name:     "open end closed",
			old:      tuple("2025-02-01", "", 1),
			proposed: tuple("2025-02-01", "2025-06-30", 1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := pooling.ExcludedSubRanges(tt.old.Range, tt.proposed.Range)
			assert.Equal(t, tt.changed, changed)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.True(t, tt.want[i].Equal(got[i]), "want %s got %s", tt.want[i], got[i])
			}
		})
	}
}
