package generic

import (
	"fmt"
	"sort"
)

// =============================================================================
// RANGE CHECKER - Overlap and gap detection for a proposed partition
// =============================================================================

// RangeChecker validates that a set of ranges tiles a continuous timeline.
// Ranges are not assumed to be sorted.
type RangeChecker struct {
	ranges []DateRange
}

// Overlap is a pair of ranges sharing at least one day.
type Overlap struct {
	A DateRange
	B DateRange
}

func (o Overlap) String() string {
	return fmt.Sprintf("Date range %s overlaps with %s", describe(o.A), describe(o.B))
}

// Gap is a run of uncovered days between two consecutive ranges.
type Gap struct {
	After  DateRange
	Before DateRange
	From   Date
	To     Date
}

func (g Gap) String() string {
	if g.From.Equal(g.To) {
		return fmt.Sprintf("Date gap found: %s is not covered between %s and %s",
			g.From, describe(g.After), describe(g.Before))
	}
	return fmt.Sprintf("Date gap found: %s to %s is not covered between %s and %s",
		g.From, g.To, describe(g.After), describe(g.Before))
}

// NewRangeChecker copies ranges so later mutation by the caller has no effect.
func NewRangeChecker(ranges []DateRange) *RangeChecker {
	cp := make([]DateRange, len(ranges))
	copy(cp, ranges)
	return &RangeChecker{ranges: cp}
}

// FindOverlaps checks every unordered pair, not just neighbours.
func (c *RangeChecker) FindOverlaps() []Overlap {
	var overlaps []Overlap
	for i := 0; i < len(c.ranges); i++ {
		for j := i + 1; j < len(c.ranges); j++ {
			if c.ranges[i].Overlaps(c.ranges[j]) {
				overlaps = append(overlaps, Overlap{A: c.ranges[i], B: c.ranges[j]})
			}
		}
	}
	return overlaps
}

// FindGaps sorts by start and flags any next start more than one day after
// the previous end.
func (c *RangeChecker) FindGaps() []Gap {
	sorted := make([]DateRange, len(c.ranges))
	copy(sorted, c.ranges)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	var gaps []Gap
	for i := 1; i < len(sorted); i++ {
		prevEnd := sorted[i-1].EndOrFarFuture()
		next := sorted[i].Start
		if next.After(prevEnd.AddDays(1)) {
			gaps = append(gaps, Gap{
				After:  sorted[i-1],
				Before: sorted[i],
				From:   prevEnd.AddDays(1),
				To:     next.AddDays(-1),
			})
		}
	}
	return gaps
}

// OverlapMessages returns one human-readable description per overlap.
func (c *RangeChecker) OverlapMessages() []string {
	overlaps := c.FindOverlaps()
	if len(overlaps) == 0 {
		return nil
	}
	out := make([]string, len(overlaps))
	for i, o := range overlaps {
		out[i] = o.String()
	}
	return out
}

// GapMessages returns one human-readable description per gap.
func (c *RangeChecker) GapMessages() []string {
	gaps := c.FindGaps()
	if len(gaps) == 0 {
		return nil
	}
	out := make([]string, len(gaps))
	for i, g := range gaps {
		out[i] = g.String()
	}
	return out
}

// describe prints open ends as the far-future sentinel, which is how the
// ranges were compared.
func describe(r DateRange) string {
	return r.Start.String() + " to " + r.EndOrFarFuture().String()
}
