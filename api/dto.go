/*
dto.go - Data Transfer Objects for API responses

PURPOSE:
  Defines the JSON structures returned to clients. Request bodies are the
  factory's schema types (factory.PoolJSON and friends) so the HTTP and CLI
  entry points validate the same way.

RESPONSE SHAPE:
  Every body embeds generic.Envelope:
    {"success", "dialogue", "message", "translation_key", "api_error"}
  plus one payload field where the endpoint returns data:
    list:                 "data", "recordsTotal"
    not-available dates:  "not_available_dates"

SEE ALSO:
  - handlers.go: Uses these types
  - generic/outcome.go: Envelope
*/
package api

import (
	"time"

	"github.com/warp/pool-engine/generic"
	"github.com/warp/pool-engine/pooling"
)

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// Response is the body of every endpoint without a payload.
type Response struct {
	generic.Envelope
}

// DateRangeDTO is one partition tuple in API responses.
type DateRangeDTO struct {
	StartDate string  `json:"start_date"`
	EndDate   *string `json:"end_date"`
	Capacity  int     `json:"capacity"`
}

// PoolDTO is a pool with its ranges.
type PoolDTO struct {
	ID         int64          `json:"id"`
	Name       string         `json:"name"`
	Remarks    *string        `json:"remarks"`
	CreatedBy  int64          `json:"created_by"`
	UpdatedBy  *int64         `json:"updated_by"`
	CreatedAt  string         `json:"created_at"`
	UpdatedAt  string         `json:"updated_at"`
	DateRanges []DateRangeDTO `json:"date_ranges"`
}

// ListPoolsResponse is the body of the list endpoint.
type ListPoolsResponse struct {
	generic.Envelope
	Data         []PoolDTO `json:"data"`
	RecordsTotal int       `json:"recordsTotal"`
}

// NotAvailableResponse is the body of the not-available-dates endpoint.
type NotAvailableResponse struct {
	generic.Envelope
	NotAvailableDates []string `json:"not_available_dates"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toDateRangeDTO(dc pooling.DateCapacity) DateRangeDTO {
	dto := DateRangeDTO{StartDate: dc.Range.Start.String(), Capacity: dc.Capacity}
	if dc.Range.End != nil {
		end := dc.Range.End.String()
		dto.EndDate = &end
	}
	return dto
}

func toPoolDTO(p pooling.PoolWithRanges) PoolDTO {
	dto := PoolDTO{
		ID:         int64(p.ID),
		Name:       p.Name,
		Remarks:    p.Remarks,
		CreatedBy:  int64(p.CreatedBy),
		CreatedAt:  p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  p.UpdatedAt.Format(time.RFC3339),
		DateRanges: make([]DateRangeDTO, len(p.DateRanges)),
	}
	if p.UpdatedBy != nil {
		u := int64(*p.UpdatedBy)
		dto.UpdatedBy = &u
	}
	for i, dc := range p.DateRanges {
		dto.DateRanges[i] = toDateRangeDTO(dc)
	}
	return dto
}

func toPoolDTOs(pools []pooling.PoolWithRanges) []PoolDTO {
	dtos := make([]PoolDTO, len(pools))
	for i, p := range pools {
		dtos[i] = toPoolDTO(p)
	}
	return dtos
}
