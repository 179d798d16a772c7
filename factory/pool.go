/*
Package factory converts request payloads into service parameters.

PURPOSE:
  Pool and availability requests arrive as JSON (HTTP) or YAML (poolctl).
  The factory validates their structure with struct tags and turns them into
  the typed parameters pooling.Service and availability.Expander accept, so
  the services never see raw strings.

JSON SCHEMA (create):
  {
    "name": "Gym",
    "remarks": "ground floor",
    "date_ranges": [
      {"start_date": "2025-02-01", "end_date": "2025-06-30", "capacity": 10},
      {"start_date": "2025-07-01", "capacity": 8}
    ]
  }

  Update adds "id" and "check_date_ranges" (true resubmits a change the
  caller already confirmed). Delete is {"ids": [1, 2]}. Not-available dates
  is {"service_id", "slot_id", "customer_id", "start_date", "end_date"}.

KEY FEATURES:
  - Structural rules via go-playground/validator struct tags
  - Dates parsed with generic.ParseDate (YYYY-MM-DD only)
  - A range ending before it starts fails with generic.ErrDateValidation
  - Every failure wraps a generic sentinel, so generic.OutcomeFromError
    maps it to the right translation key

USAGE:
  f := NewPoolFactory()
  params, err := f.ParseCreate(body, subscriberID, userID)
  if err != nil {
      return generic.OutcomeFromError(err)
  }
  outcome := service.CreatePool(ctx, params)

SEE ALSO:
  - pooling/service.go: Consumer of the params
  - api/handlers.go: HTTP entry point
*/
package factory

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/warp/pool-engine/availability"
	"github.com/warp/pool-engine/generic"
	"github.com/warp/pool-engine/pooling"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// DateRangeJSON is one partition tuple. A missing end_date is open-ended.
type DateRangeJSON struct {
	StartDate string  `json:"start_date" yaml:"start_date" validate:"required"`
	EndDate   *string `json:"end_date,omitempty" yaml:"end_date,omitempty"`
	Capacity  *int    `json:"capacity" yaml:"capacity" validate:"required,gte=0"`
}

// PoolJSON creates a pool.
type PoolJSON struct {
	Name       string          `json:"name" validate:"required,max=255"`
	Remarks    *string         `json:"remarks,omitempty"`
	DateRanges []DateRangeJSON `json:"date_ranges" validate:"required,min=1,dive"`
}

// PoolUpdateJSON updates a pool. Omitted fields are left unchanged.
type PoolUpdateJSON struct {
	ID              int64           `json:"id" validate:"required,gt=0"`
	CheckDateRanges bool            `json:"check_date_ranges"`
	Name            *string         `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Remarks         *string         `json:"remarks,omitempty"`
	DateRanges      []DateRangeJSON `json:"date_ranges,omitempty" validate:"omitempty,dive"`
}

// DeletePoolsJSON deletes pools by id.
type DeletePoolsJSON struct {
	IDs []int64 `json:"ids" validate:"required,min=1,dive,gt=0"`
}

// NotAvailableJSON requests the not-available dates of a service.
type NotAvailableJSON struct {
	ServiceID  int64  `json:"service_id" validate:"required,gt=0"`
	SlotID     *int64 `json:"slot_id,omitempty"`
	CustomerID *int64 `json:"customer_id,omitempty"`
	StartDate  string `json:"start_date" validate:"required"`
	EndDate    string `json:"end_date" validate:"required"`
}

// =============================================================================
// POOL FACTORY
// =============================================================================

// PoolFactory is safe for concurrent use.
type PoolFactory struct {
	validate *validator.Validate
}

func NewPoolFactory() *PoolFactory {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return &PoolFactory{validate: v}
}

func (f *PoolFactory) ParseCreate(data []byte, subscriberID pooling.SubscriberID, userID pooling.UserID) (pooling.CreatePoolParams, error) {
	var pj PoolJSON
	if err := decode(data, &pj); err != nil {
		return pooling.CreatePoolParams{}, err
	}
	return f.CreateParams(pj, subscriberID, userID)
}

func (f *PoolFactory) CreateParams(pj PoolJSON, subscriberID pooling.SubscriberID, userID pooling.UserID) (pooling.CreatePoolParams, error) {
	if err := f.check(pj); err != nil {
		return pooling.CreatePoolParams{}, err
	}
	partition, err := f.Partition(pj.DateRanges)
	if err != nil {
		return pooling.CreatePoolParams{}, err
	}
	return pooling.CreatePoolParams{
		SubscriberID: subscriberID,
		UserID:       userID,
		Name:         strings.TrimSpace(pj.Name),
		Remarks:      pj.Remarks,
		DateRanges:   partition,
	}, nil
}

func (f *PoolFactory) ParseUpdate(data []byte, subscriberID pooling.SubscriberID, userID pooling.UserID) (pooling.UpdatePoolParams, error) {
	var uj PoolUpdateJSON
	if err := decode(data, &uj); err != nil {
		return pooling.UpdatePoolParams{}, err
	}
	return f.UpdateParams(uj, subscriberID, userID)
}

func (f *PoolFactory) UpdateParams(uj PoolUpdateJSON, subscriberID pooling.SubscriberID, userID pooling.UserID) (pooling.UpdatePoolParams, error) {
	if err := f.check(uj); err != nil {
		return pooling.UpdatePoolParams{}, err
	}
	partition, err := f.Partition(uj.DateRanges)
	if err != nil {
		return pooling.UpdatePoolParams{}, err
	}
	params := pooling.UpdatePoolParams{
		ID:           pooling.PoolID(uj.ID),
		SubscriberID: subscriberID,
		UserID:       userID,
		Confirmed:    uj.CheckDateRanges,
		Remarks:      uj.Remarks,
		DateRanges:   partition,
	}
	if uj.Name != nil {
		name := strings.TrimSpace(*uj.Name)
		params.Name = &name
	}
	return params, nil
}

func (f *PoolFactory) ParseDelete(data []byte, subscriberID pooling.SubscriberID, userID pooling.UserID) (pooling.DeletePoolsParams, error) {
	var dj DeletePoolsJSON
	if err := decode(data, &dj); err != nil {
		return pooling.DeletePoolsParams{}, err
	}
	if err := f.check(dj); err != nil {
		return pooling.DeletePoolsParams{}, err
	}
	ids := make([]pooling.PoolID, len(dj.IDs))
	for i, id := range dj.IDs {
		ids[i] = pooling.PoolID(id)
	}
	return pooling.DeletePoolsParams{SubscriberID: subscriberID, UserID: userID, IDs: ids}, nil
}

// ParseNotAvailable checks date formats only. An inverted window is
// reported by the expander, and only when matching rules exist.
func (f *PoolFactory) ParseNotAvailable(data []byte, subscriberID int64) (availability.Query, error) {
	var nj NotAvailableJSON
	if err := decode(data, &nj); err != nil {
		return availability.Query{}, err
	}
	if err := f.check(nj); err != nil {
		return availability.Query{}, err
	}
	start, err := generic.ParseDate(nj.StartDate)
	if err != nil {
		return availability.Query{}, err
	}
	end, err := generic.ParseDate(nj.EndDate)
	if err != nil {
		return availability.Query{}, err
	}
	return availability.Query{
		SubscriberID: subscriberID,
		ServiceID:    nj.ServiceID,
		SlotID:       nj.SlotID,
		CustomerID:   nj.CustomerID,
		Window:       availability.Window{Start: start, End: end},
	}, nil
}

// Partition converts tuples in order.
func (f *PoolFactory) Partition(ranges []DateRangeJSON) (pooling.Partition, error) {
	out := make(pooling.Partition, 0, len(ranges))
	for i, rj := range ranges {
		if err := f.check(rj); err != nil {
			return nil, fmt.Errorf("date_ranges[%d]: %w", i, err)
		}
		start, err := generic.ParseDate(rj.StartDate)
		if err != nil {
			return nil, fmt.Errorf("date_ranges[%d]: %w", i, err)
		}
		r := generic.OpenEnded(start)
		if rj.EndDate != nil && *rj.EndDate != "" {
			end, err := generic.ParseDate(*rj.EndDate)
			if err != nil {
				return nil, fmt.Errorf("date_ranges[%d]: %w", i, err)
			}
			if end.Before(start) {
				return nil, fmt.Errorf("date_ranges[%d]: %w", i, generic.ErrDateValidation)
			}
			r = generic.Closed(start, end)
		}
		out = append(out, pooling.DateCapacity{Range: r, Capacity: *rj.Capacity})
	}
	return out, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", generic.ErrInvalidRequest, err)
	}
	return nil
}

// check runs struct validation and flattens the failures into one error.
func (f *PoolFactory) check(v any) error {
	err := f.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", generic.ErrInvalidRequest, err)
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = describe(fe)
	}
	return fmt.Errorf("%w: %s", generic.ErrInvalidRequest, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "gte":
		return field + " must be at least " + fe.Param()
	case "gt":
		return field + " must be greater than " + fe.Param()
	case "min":
		return field + " must have at least " + fe.Param() + " item(s)"
	case "max":
		return field + " must be at most " + fe.Param() + " characters"
	default:
		return field + " failed " + fe.Tag()
	}
}
