package generic

import (
	"encoding/json"
	"fmt"
	"time"
)

// =============================================================================
// DATE - Calendar day abstraction (pools are partitioned by whole days)
// =============================================================================

// DateLayout is the only accepted textual date format.
const DateLayout = "2006-01-02"

// Date is a calendar day normalized to UTC midnight.
type Date struct {
	Time time.Time
}

// FarFuture stands in for a missing end date when ranges are compared.
// It is never persisted.
var FarFuture = NewDate(9999, time.December, 31)

// Constructors
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day, keeping t's own location for the
// day boundary.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// Today returns the calendar day of now().
func Today(now func() time.Time) Date {
	if now == nil {
		now = time.Now
	}
	return DateOf(now())
}

// Comparison
func (d Date) Before(other Date) bool        { return d.Time.Before(other.Time) }
func (d Date) After(other Date) bool         { return d.Time.After(other.Time) }
func (d Date) Equal(other Date) bool         { return d.Time.Equal(other.Time) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{Time: d.Time.AddDate(0, 0, n)} }

// Properties
func (d Date) Weekday() time.Weekday { return d.Time.Weekday() }
func (d Date) Day() int              { return d.Time.Day() }
func (d Date) IsZero() bool          { return d.Time.IsZero() }

func (d Date) String() string {
	return d.Time.Format(DateLayout)
}

// MaxDate returns the later of a and b.
func MaxDate(a, b Date) Date {
	if a.After(b) {
		return a
	}
	return b
}

// MinDate returns the earlier of a and b.
func MinDate(a, b Date) Date {
	if a.Before(b) {
		return a
	}
	return b
}

// =============================================================================
// NORMALIZATION - Heterogeneous date inputs to Date
// =============================================================================

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(value string) (Date, error) {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return Date{}, &DateFormatError{Value: value, Err: err}
	}
	return DateOf(t), nil
}

// Normalize converts a string or native date value into a Date.
func Normalize(value any) (Date, error) {
	switch v := value.(type) {
	case Date:
		return v, nil
	case *Date:
		if v == nil {
			return Date{}, &DateFormatError{Value: "<nil>", Err: fmt.Errorf("missing date")}
		}
		return *v, nil
	case time.Time:
		return DateOf(v), nil
	case *time.Time:
		if v == nil {
			return Date{}, &DateFormatError{Value: "<nil>", Err: fmt.Errorf("missing date")}
		}
		return DateOf(*v), nil
	case string:
		return ParseDate(v)
	default:
		return Date{}, &DateFormatError{Value: fmt.Sprintf("%v", value), Err: fmt.Errorf("unsupported date type %T", value)}
	}
}

// =============================================================================
// JSON
// =============================================================================

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return &DateFormatError{Value: string(data), Err: err}
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
