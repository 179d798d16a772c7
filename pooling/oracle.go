package pooling

import (
	"context"

	"github.com/warp/pool-engine/generic"
)

// BookingQuery asks whether bookings exist for a pool in [Start, End].
// With CapacityCheck set, the oracle also reports whether existing bookings
// exceed Capacity.
type BookingQuery struct {
	PoolID        PoolID
	SubscriberID  SubscriberID
	Start         generic.Date
	End           generic.Date
	Capacity      int
	CapacityCheck bool
}

// BookingAnswer is the oracle's reply.
type BookingAnswer struct {
	BookingExists    bool
	CapacityExceeded bool
}

// BookingConflictOracle is the external booking-existence service. Calls
// are synchronous; a returned error is a hard failure for the caller.
type BookingConflictOracle interface {
	CheckBookings(ctx context.Context, q BookingQuery) (BookingAnswer, error)
}

// OracleFunc adapts a function to BookingConflictOracle.
type OracleFunc func(ctx context.Context, q BookingQuery) (BookingAnswer, error)

func (f OracleFunc) CheckBookings(ctx context.Context, q BookingQuery) (BookingAnswer, error) {
	return f(ctx, q)
}
