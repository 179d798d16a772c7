package availability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/warp/pool-engine/generic"
)

// RepeatType names a recurrence pattern.
type RepeatType string

const (
	RepeatNone    RepeatType = "none"
	RepeatDaily   RepeatType = "daily"
	RepeatWeekly  RepeatType = "weekly"
	RepeatMonthly RepeatType = "monthly"
)

// ErrUnsupportedRecurrence is returned for repeat types BasicRecurrence
// does not know.
var ErrUnsupportedRecurrence = errors.New("unsupported recurrence")

// RepeatDetails is the JSON shape BasicRecurrence reads.
//
//	weekly:  {"weekdays": ["monday", "fri"]}
//	monthly: {"days": [1, 15]}
type RepeatDetails struct {
	Weekdays []string `json:"weekdays,omitempty"`
	Days     []int    `json:"days,omitempty"`
}

// BasicRecurrence blocks every day for none/daily rules, listed weekdays for
// weekly rules and listed days of month for monthly rules.
type BasicRecurrence struct{}

func (BasicRecurrence) Expand(ctx context.Context, w RuleWindow) ([]string, error) {
	var details RepeatDetails
	if len(w.RepeatDetails) > 0 && string(w.RepeatDetails) != "null" {
		if err := json.Unmarshal(w.RepeatDetails, &details); err != nil {
			return nil, fmt.Errorf("repeat details: %w", err)
		}
	}

	var match func(generic.Date) bool
	switch w.RepeatType {
	case "", RepeatNone, RepeatDaily:
		match = func(generic.Date) bool { return true }
	case RepeatWeekly:
		days, err := parseWeekdays(details.Weekdays)
		if err != nil {
			return nil, err
		}
		match = func(d generic.Date) bool { return days[d.Weekday()] }
	case RepeatMonthly:
		days := make(map[int]bool, len(details.Days))
		for _, d := range details.Days {
			days[d] = true
		}
		match = func(d generic.Date) bool { return days[d.Day()] }
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedRecurrence, w.RepeatType)
	}

	var out []string
	for d := w.StartDate; !d.After(w.EndDate); d = d.AddDays(1) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if match(d) {
			out = append(out, d.String())
		}
	}
	return out, nil
}

func parseWeekdays(names []string) (map[time.Weekday]bool, error) {
	out := make(map[time.Weekday]bool, len(names))
	for _, name := range names {
		n := strings.ToLower(strings.TrimSpace(name))
		found := false
		for wd := time.Sunday; wd <= time.Saturday; wd++ {
			full := strings.ToLower(wd.String())
			if n == full || n == full[:3] {
				out[wd] = true
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: unknown weekday %q", ErrUnsupportedRecurrence, name)
		}
	}
	return out, nil
}
