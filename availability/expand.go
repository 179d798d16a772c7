/*
Package availability computes the dates on which a service is not bookable.

FLOW:

	RuleSource.MatchingRules ─> not-available rules ─> Clip(rule, request)
	                                                        │
	                                 RecurrenceExpander <───┘
	                                        │
	                                        v
	                                 DateSet (union)

Which rules match a customer (tags, beneficiaries) is decided by the
RuleSource. How a recurrence is unrolled is decided by the
RecurrenceExpander; BasicRecurrence is a small default.

SEE ALSO:
  - generic/period.go: Clip
  - recurrence.go: BasicRecurrence
*/
package availability

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/warp/pool-engine/generic"
)

// PricingNotAvailable marks a rule that blocks dates instead of pricing them.
const PricingNotAvailable = "not_available"

// =============================================================================
// TYPES
// =============================================================================

// Rule is a calendar rule as stored by the calendar subsystem.
type Rule struct {
	ID            int64
	SubscriberID  int64
	ServiceID     int64
	SlotID        *int64
	PricingType   string
	RepeatType    RepeatType
	RepeatDetails json.RawMessage
	Range         generic.DateRange
}

// RuleWindow is what the recurrence expander sees: the rule's recurrence
// over an already clipped, non-empty window.
type RuleWindow struct {
	RepeatType    RepeatType
	RepeatDetails json.RawMessage
	StartDate     generic.Date
	EndDate       generic.Date
}

// RecurrenceExpander unrolls one rule window into concrete YYYY-MM-DD dates.
type RecurrenceExpander interface {
	Expand(ctx context.Context, w RuleWindow) ([]string, error)
}

// Window is the caller's requested period. Start after End is rejected when
// the first rule is clipped.
type Window struct {
	Start generic.Date
	End   generic.Date
}

// Query selects candidate rules.
type Query struct {
	SubscriberID int64
	ServiceID    int64
	SlotID       *int64
	CustomerID   *int64
	Window       Window
}

// RuleSource returns the rules that apply to a query, of any pricing type.
type RuleSource interface {
	MatchingRules(ctx context.Context, q Query) ([]Rule, error)
}

// =============================================================================
// DATE SET
// =============================================================================

// DateSet is a set of YYYY-MM-DD strings.
type DateSet map[string]struct{}

func (s DateSet) Add(dates ...string) {
	for _, d := range dates {
		s[d] = struct{}{}
	}
}

func (s DateSet) Contains(date string) bool {
	_, ok := s[date]
	return ok
}

// Sorted returns the dates in calendar order.
func (s DateSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for d := range s {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

func (s DateSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// =============================================================================
// EXPANSION
// =============================================================================

// ExpandRules unions the not-available dates of every matching rule inside
// window. A single rule failing to clip aborts the whole batch. Rules that
// do not intersect the window contribute nothing. ErrNoRulesFound is
// returned when no rule is a not-available rule.
func ExpandRules(ctx context.Context, rules []Rule, window Window, recurrence RecurrenceExpander) (DateSet, error) {
	dates := DateSet{}
	found := false

	for _, rule := range rules {
		if rule.PricingType != PricingNotAvailable {
			continue
		}
		found = true

		clipped, err := generic.Clip(rule.Range.Start, rule.Range.EndOrFarFuture(), window.Start, window.End)
		if err != nil {
			return nil, err
		}
		if clipped.Empty() {
			continue
		}

		expanded, err := recurrence.Expand(ctx, RuleWindow{
			RepeatType:    rule.RepeatType,
			RepeatDetails: rule.RepeatDetails,
			StartDate:     clipped.Start,
			EndDate:       clipped.End,
		})
		if err != nil {
			return nil, fmt.Errorf("expand rule %d: %w", rule.ID, err)
		}
		dates.Add(expanded...)
	}

	if !found {
		return nil, generic.ErrNoRulesFound
	}
	return dates, nil
}

// Expander loads candidate rules and expands them.
type Expander struct {
	rules      RuleSource
	recurrence RecurrenceExpander
	logger     *slog.Logger
}

func NewExpander(rules RuleSource, recurrence RecurrenceExpander, logger *slog.Logger) *Expander {
	if logger == nil {
		logger = slog.Default()
	}
	return &Expander{rules: rules, recurrence: recurrence, logger: logger}
}

// Expand returns the not-available dates for q.
func (e *Expander) Expand(ctx context.Context, q Query) (DateSet, error) {
	rules, err := e.rules.MatchingRules(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	return ExpandRules(ctx, rules, q.Window, e.recurrence)
}

// NotAvailableDates is Expand at the public boundary: errors become outcomes.
func (e *Expander) NotAvailableDates(ctx context.Context, q Query) (DateSet, generic.Outcome) {
	dates, err := e.Expand(ctx, q)
	if err != nil {
		outcome := generic.OutcomeFromError(err)
		if generic.IsInternal(outcome) {
			e.logger.ErrorContext(ctx, "not-available dates failed",
				"service_id", q.ServiceID,
				"subscriber_id", q.SubscriberID,
				"error", err,
			)
		}
		return nil, outcome
	}
	return dates, generic.Accept{}
}
