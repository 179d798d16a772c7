package generic

// =============================================================================
// DATE RANGE - The unit a pool partition is built from
// =============================================================================

// DateRange is an inclusive span of days. A nil End means the range is open
// towards the future.
type DateRange struct {
	Start Date
	End   *Date
}

// NewDateRange builds a range and enforces start <= end when end is present.
func NewDateRange(start Date, end *Date) (DateRange, error) {
	if end != nil && start.After(*end) {
		return DateRange{}, ErrInvalidRange
	}
	return DateRange{Start: start, End: cloneDate(end)}, nil
}

// Closed is a convenience for a bounded range; it does not validate order.
func Closed(start, end Date) DateRange {
	return DateRange{Start: start, End: &end}
}

// OpenEnded is a convenience for a range without an end date.
func OpenEnded(start Date) DateRange {
	return DateRange{Start: start}
}

// Bounded reports whether the range has an end date.
func (r DateRange) Bounded() bool { return r.End != nil }

// EndOrFarFuture returns the end date, or FarFuture for open ranges.
func (r DateRange) EndOrFarFuture() Date {
	if r.End == nil {
		return FarFuture
	}
	return *r.End
}

// Inverted reports start > end. Open ranges are never inverted.
func (r DateRange) Inverted() bool {
	return r.End != nil && r.Start.After(*r.End)
}

// Contains returns true if d is within [Start, End].
func (r DateRange) Contains(d Date) bool {
	return d.AfterOrEqual(r.Start) && d.BeforeOrEqual(r.EndOrFarFuture())
}

// Overlaps uses the inclusive test start_A <= end_B && start_B <= end_A.
func (r DateRange) Overlaps(other DateRange) bool {
	return r.Start.BeforeOrEqual(other.EndOrFarFuture()) && other.Start.BeforeOrEqual(r.EndOrFarFuture())
}

// Equal compares start and end, treating two open ends as equal.
func (r DateRange) Equal(other DateRange) bool {
	if !r.Start.Equal(other.Start) {
		return false
	}
	if r.End == nil || other.End == nil {
		return r.End == nil && other.End == nil
	}
	return r.End.Equal(*other.End)
}

// Days returns every day of a bounded range. Open ranges return nil.
func (r DateRange) Days() []Date {
	if r.End == nil {
		return nil
	}
	var days []Date
	for current := r.Start; current.BeforeOrEqual(*r.End); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

func (r DateRange) String() string {
	if r.End == nil {
		return r.Start.String() + " onwards"
	}
	return r.Start.String() + " to " + r.End.String()
}

func cloneDate(d *Date) *Date {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}

// =============================================================================
// CLIPPING - Rule interval intersected with a request window
// =============================================================================

// ClippedWindow is the intersection of a rule interval and a request
// interval. It may be empty (Start after End).
type ClippedWindow struct {
	Start Date
	End   Date
}

// Empty reports whether the rule and request did not intersect.
func (w ClippedWindow) Empty() bool { return w.Start.After(w.End) }

// Range converts the window to a bounded DateRange.
func (w ClippedWindow) Range() DateRange { return Closed(w.Start, w.End) }

// Clip normalizes the four inputs and intersects the rule with the request.
// Only the request bounds are checked for inversion; an empty intersection
// is returned as-is and left to the caller.
func Clip(ruleStart, ruleEnd, requestStart, requestEnd any) (ClippedWindow, error) {
	rs, err := Normalize(ruleStart)
	if err != nil {
		return ClippedWindow{}, err
	}
	re, err := Normalize(ruleEnd)
	if err != nil {
		return ClippedWindow{}, err
	}
	qs, err := Normalize(requestStart)
	if err != nil {
		return ClippedWindow{}, err
	}
	qe, err := Normalize(requestEnd)
	if err != nil {
		return ClippedWindow{}, err
	}

	if qs.After(qe) {
		return ClippedWindow{}, ErrInvalidRange
	}

	return ClippedWindow{
		Start: MaxDate(qs, rs),
		End:   MinDate(qe, re),
	}, nil
}
