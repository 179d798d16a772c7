package availability_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/pool-engine/availability"
	"github.com/warp/pool-engine/generic"
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

func window(start, end string) availability.Window {
	return availability.Window{Start: day(start), End: day(end)}
}

func blocked(id int64, start, end string) availability.Rule {
	r := generic.OpenEnded(day(start))
	if end != "" {
		r = generic.Closed(day(start), day(end))
	}
	return availability.Rule{ID: id, PricingType: availability.PricingNotAvailable, RepeatType: availability.RepeatDaily, Range: r}
}

// recordingRecurrence returns every day of the window and records windows.
type recordingRecurrence struct {
	windows []availability.RuleWindow
	err     error
}

func (r *recordingRecurrence) Expand(ctx context.Context, w availability.RuleWindow) ([]string, error) {
	r.windows = append(r.windows, w)
	if r.err != nil {
		return nil, r.err
	}
	return availability.BasicRecurrence{}.Expand(ctx, w)
}

type staticRules []availability.Rule

func (s staticRules) MatchingRules(context.Context, availability.Query) ([]availability.Rule, error) {
	return s, nil
}

// =============================================================================
// EXPAND RULES
// =============================================================================

func TestExpandRules_ClipsRuleToRequest(t *testing.T) {
	// GIVEN: a rule covering the 5th to the 8th, request covers January
	rec := &recordingRecurrence{}
	rules := []availability.Rule{blocked(1, "2024-01-05", "2024-01-08")}

	// WHEN: expanded
	dates, err := availability.ExpandRules(context.Background(), rules, window("2024-01-01", "2024-01-31"), rec)

	// THEN: only the rule's own days, passed as the clipped window
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-05", "2024-01-06", "2024-01-07", "2024-01-08"}, dates.Sorted())
	require.Len(t, rec.windows, 1)
	assert.True(t, rec.windows[0].StartDate.Equal(day("2024-01-05")))
	assert.True(t, rec.windows[0].EndDate.Equal(day("2024-01-08")))
}

func TestExpandRules_OpenEndedRuleClipsToRequestEnd(t *testing.T) {
	rec := &recordingRecurrence{}
	rules := []availability.Rule{blocked(1, "2024-01-30", "")}

	dates, err := availability.ExpandRules(context.Background(), rules, window("2024-01-01", "2024-02-02"), rec)

	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-30", "2024-01-31", "2024-02-01", "2024-02-02"}, dates.Sorted())
}

func TestExpandRules_UnionsAcrossRules(t *testing.T) {
	rec := &recordingRecurrence{}
	rules := []availability.Rule{
		blocked(1, "2024-01-01", "2024-01-03"),
		blocked(2, "2024-01-02", "2024-01-04"),
	}

	dates, err := availability.ExpandRules(context.Background(), rules, window("2024-01-01", "2024-01-31"), rec)

	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04"}, dates.Sorted())
}

func TestExpandRules_SkipsOtherPricingTypes(t *testing.T) {
	rec := &recordingRecurrence{}
	priced := blocked(2, "2024-01-10", "2024-01-12")
	priced.PricingType = "fixed"
	rules := []availability.Rule{blocked(1, "2024-01-01", "2024-01-01"), priced}

	dates, err := availability.ExpandRules(context.Background(), rules, window("2024-01-01", "2024-01-31"), rec)

	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-01"}, dates.Sorted())
	assert.Len(t, rec.windows, 1)
}

func TestExpandRules_NoNotAvailableRules(t *testing.T) {
	priced := blocked(1, "2024-01-01", "2024-01-31")
	priced.PricingType = "fixed"

	for name, rules := range map[string][]availability.Rule{
		"no rules":     nil,
		"only pricing": {priced},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := availability.ExpandRules(context.Background(), rules, window("2024-01-01", "2024-01-31"), &recordingRecurrence{})
			assert.ErrorIs(t, err, generic.ErrNoRulesFound)
		})
	}
}

func TestExpandRules_NonIntersectingRuleNotExpanded(t *testing.T) {
	// GIVEN: a rule entirely after the request
	rec := &recordingRecurrence{}
	rules := []availability.Rule{blocked(1, "2024-03-01", "2024-03-31")}

	dates, err := availability.ExpandRules(context.Background(), rules, window("2024-01-01", "2024-01-31"), rec)

	// THEN: no dates and the expander is never asked
	require.NoError(t, err)
	assert.Empty(t, dates)
	assert.Empty(t, rec.windows)
}

func TestExpandRules_InvertedRequestAbortsBatch(t *testing.T) {
	rec := &recordingRecurrence{}
	rules := []availability.Rule{blocked(1, "2024-01-01", "2024-01-31")}

	_, err := availability.ExpandRules(context.Background(), rules, window("2024-01-10", "2024-01-05"), rec)

	assert.ErrorIs(t, err, generic.ErrInvalidRange)
	assert.Empty(t, rec.windows)
}

func TestExpandRules_RecurrenceFailureWrapped(t *testing.T) {
	boom := errors.New("bad details")
	rec := &recordingRecurrence{err: boom}
	rules := []availability.Rule{blocked(9, "2024-01-01", "2024-01-31")}

	_, err := availability.ExpandRules(context.Background(), rules, window("2024-01-01", "2024-01-31"), rec)

	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "rule 9")
}

// =============================================================================
// EXPANDER OUTCOMES
// =============================================================================

func TestExpander_NotAvailableDatesOutcomes(t *testing.T) {
	rules := staticRules{blocked(1, "2024-01-01", "2024-01-02")}

	t.Run("accept", func(t *testing.T) {
		e := availability.NewExpander(rules, availability.BasicRecurrence{}, nil)
		dates, outcome := e.NotAvailableDates(context.Background(), availability.Query{Window: window("2024-01-01", "2024-01-31")})
		assert.True(t, outcome.Success())
		assert.Equal(t, []string{"2024-01-01", "2024-01-02"}, dates.Sorted())
	})

	t.Run("no rules", func(t *testing.T) {
		e := availability.NewExpander(staticRules{}, availability.BasicRecurrence{}, nil)
		_, outcome := e.NotAvailableDates(context.Background(), availability.Query{Window: window("2024-01-01", "2024-01-31")})
		assert.Equal(t, generic.NotFound{Kind: generic.KindNoRulesFound}, outcome)
	})

	t.Run("inverted request", func(t *testing.T) {
		e := availability.NewExpander(rules, availability.BasicRecurrence{}, nil)
		_, outcome := e.NotAvailableDates(context.Background(), availability.Query{Window: window("2024-01-31", "2024-01-01")})
		assert.Equal(t, "START_DATE_GREATER_THAN_END_DATE", outcome.TranslationKey())
		assert.False(t, outcome.Success())
	})
}

func TestDateSet_MarshalsSorted(t *testing.T) {
	set := availability.DateSet{}
	set.Add("2024-01-03", "2024-01-01", "2024-01-03")

	data, err := json.Marshal(set)

	require.NoError(t, err)
	assert.JSONEq(t, `["2024-01-01","2024-01-03"]`, string(data))
	assert.True(t, set.Contains("2024-01-01"))
}
