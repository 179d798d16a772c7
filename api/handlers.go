/*
handlers.go - HTTP API handlers for the pool engine

PURPOSE:
  Exposes pool management and not-available-date expansion via REST API.
  Handles HTTP request/response and delegates to pooling.Service and
  availability.Expander.

ENDPOINTS:
  Pools:
    POST   /api/pools                   Create pool with its date ranges
    PUT    /api/pools                   Update pool (reconciled against bookings)
    GET    /api/service-pools/list      List pools (?page=&page_size=&id=)
    DELETE /api/service-pools/delete    Delete pools by id

  Availability:
    POST   /api/not-available-dates     Expand calendar rules into dates

  Health:
    GET    /healthz                     Store connectivity

IDENTITY:
  Every /api route needs X-Subscriber-ID and X-User-ID. Authentication is
  handled upstream; the headers are trusted.

REQUEST FLOW:
  1. Read identity from context
  2. Parse and validate body (factory.PoolFactory)
  3. Call the service
  4. Map the outcome to an HTTP status and write the envelope

ERROR HANDLING:
  Outcomes map to status codes:
  - 200: Accept
  - 400: HardReject (validation, dates, duplicates, pool in use)
  - 404: NotFound
  - 409: SoftReject (dialogue: resubmit with check_date_ranges=true)
  - 500: Internal errors and booking service failures

SEE ALSO:
  - dto.go: Response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/warp/pool-engine/availability"
	"github.com/warp/pool-engine/factory"
	"github.com/warp/pool-engine/generic"
	"github.com/warp/pool-engine/pooling"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Pinger reports storage health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Pools        *pooling.Service
	Availability *availability.Expander
	Factory      *factory.PoolFactory
	Health       Pinger
	logger       *slog.Logger
}

// NewHandler creates a handler. health may be nil.
func NewHandler(pools *pooling.Service, expander *availability.Expander, health Pinger, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Pools:        pools,
		Availability: expander,
		Factory:      factory.NewPoolFactory(),
		Health:       health,
		logger:       logger,
	}
}

// =============================================================================
// POOL HANDLERS
// =============================================================================

// CreatePool creates a pool and its partition.
func (h *Handler) CreatePool(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}

	params, err := h.Factory.ParseCreate(body, id.Subscriber, id.User)
	if err != nil {
		writeOutcome(w, generic.OutcomeFromError(err))
		return
	}

	writeOutcome(w, h.Pools.CreatePool(r.Context(), params))
}

// UpdatePool updates a pool. A change that affects bookings answers 409 with
// dialogue=true until it is resubmitted with check_date_ranges=true.
func (h *Handler) UpdatePool(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}

	params, err := h.Factory.ParseUpdate(body, id.Subscriber, id.User)
	if err != nil {
		writeOutcome(w, generic.OutcomeFromError(err))
		return
	}

	writeOutcome(w, h.Pools.UpdatePool(r.Context(), params))
}

// ListPools returns one page of pools, newest first.
func (h *Handler) ListPools(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	q := r.URL.Query()

	params := pooling.ListPoolsParams{SubscriberID: id.Subscriber}
	var err error
	if params.Page, err = intParam(q.Get("page"), "page"); err != nil {
		writeOutcome(w, generic.OutcomeFromError(err))
		return
	}
	if params.PageSize, err = intParam(q.Get("page_size"), "page_size"); err != nil {
		writeOutcome(w, generic.OutcomeFromError(err))
		return
	}
	if raw := q.Get("id"); raw != "" {
		poolID, err := intParam(raw, "id")
		if err != nil || poolID == 0 {
			writeOutcome(w, generic.OutcomeFromError(fmt.Errorf("%w: id must be a positive integer", generic.ErrInvalidRequest)))
			return
		}
		pid := pooling.PoolID(poolID)
		params.PoolID = &pid
	}

	result := h.Pools.ListPools(r.Context(), params)
	if !result.Outcome.Success() {
		writeOutcome(w, result.Outcome)
		return
	}

	writeJSON(w, http.StatusOK, ListPoolsResponse{
		Envelope:     result.Outcome.Envelope(),
		Data:         toPoolDTOs(result.Pools),
		RecordsTotal: result.Total,
	})
}

// DeletePools deletes pools by id. Nothing is deleted if any pool is still
// used by a service.
func (h *Handler) DeletePools(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}

	params, err := h.Factory.ParseDelete(body, id.Subscriber, id.User)
	if err != nil {
		writeOutcome(w, generic.OutcomeFromError(err))
		return
	}

	writeOutcome(w, h.Pools.DeletePools(r.Context(), params))
}

// =============================================================================
// AVAILABILITY HANDLERS
// =============================================================================

// NotAvailableDates expands the service's not-available rules in a window.
func (h *Handler) NotAvailableDates(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}

	query, err := h.Factory.ParseNotAvailable(body, int64(id.Subscriber))
	if err != nil {
		writeOutcome(w, generic.OutcomeFromError(err))
		return
	}

	dates, outcome := h.Availability.NotAvailableDates(r.Context(), query)
	if !outcome.Success() {
		writeOutcome(w, outcome)
		return
	}

	writeJSON(w, http.StatusOK, NotAvailableResponse{
		Envelope:          outcome.Envelope(),
		NotAvailableDates: dates.Sorted(),
	})
}

// =============================================================================
// HEALTH
// =============================================================================

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.Health != nil {
		if err := h.Health.Ping(r.Context()); err != nil {
			h.logger.ErrorContext(r.Context(), "health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, Response{generic.Envelope{Message: "unhealthy"}})
			return
		}
	}
	writeJSON(w, http.StatusOK, Response{generic.Envelope{Success: true, Message: "ok"}})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.logger.WarnContext(r.Context(), "read body failed", "error", err)
		writeOutcome(w, generic.OutcomeFromError(fmt.Errorf("%w: unreadable body", generic.ErrInvalidRequest)))
		return nil, false
	}
	return body, true
}

// intParam parses an optional non-negative integer query parameter.
func intParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", generic.ErrInvalidRequest, name)
	}
	return n, nil
}

// statusFor maps an outcome to its HTTP status.
func statusFor(o generic.Outcome) int {
	switch o.(type) {
	case generic.Accept:
		return http.StatusOK
	case generic.SoftReject:
		return http.StatusConflict
	case generic.NotFound:
		return http.StatusNotFound
	}
	if generic.IsInternal(o) {
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}

func writeOutcome(w http.ResponseWriter, o generic.Outcome) {
	writeJSON(w, statusFor(o), Response{o.Envelope()})
}
