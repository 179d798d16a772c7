/*
Package bookings talks to the booking service that answers "are there
bookings for this pool in this period, and do they exceed this capacity".

WIRE FORMAT:

	request:  {"data":   "<JSON of {pool_id, start_date, end_date, capacity, subscriber_id, capacity_check}>"}
	response: {"result": "<JSON of {is_booking_exists, is_capacity_check}>"}

The inner payloads are JSON documents carried as strings. Client sends
requests; Handler serves them from any pooling.BookingConflictOracle and is
used by fakes and tests.
*/
package bookings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/warp/pool-engine/generic"
	"github.com/warp/pool-engine/pooling"
)

// ErrUnexpectedStatus is returned for non-2xx replies.
var ErrUnexpectedStatus = errors.New("unexpected status from booking service")

// DefaultTimeout bounds one CheckBookings round trip.
const DefaultTimeout = 10 * time.Second

type wireQuery struct {
	PoolID        int64  `json:"pool_id"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	Capacity      int    `json:"capacity"`
	SubscriberID  int64  `json:"subscriber_id"`
	CapacityCheck bool   `json:"capacity_check"`
}

type wireAnswer struct {
	IsBookingExists bool `json:"is_booking_exists"`
	IsCapacityCheck bool `json:"is_capacity_check"`
}

type requestEnvelope struct {
	Data string `json:"data"`
}

type responseEnvelope struct {
	Result string `json:"result"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client implements pooling.BookingConflictOracle over HTTP. Calls are not
// retried.
type Client struct {
	url    string
	http   *http.Client
	logger *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func NewClient(url string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		url:    url,
		http:   &http.Client{Timeout: timeout},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) CheckBookings(ctx context.Context, q pooling.BookingQuery) (pooling.BookingAnswer, error) {
	inner, err := json.Marshal(wireQuery{
		PoolID:        int64(q.PoolID),
		StartDate:     q.Start.String(),
		EndDate:       q.End.String(),
		Capacity:      q.Capacity,
		SubscriberID:  int64(q.SubscriberID),
		CapacityCheck: q.CapacityCheck,
	})
	if err != nil {
		return pooling.BookingAnswer{}, fmt.Errorf("encode query: %w", err)
	}
	body, err := json.Marshal(requestEnvelope{Data: string(inner)})
	if err != nil {
		return pooling.BookingAnswer{}, fmt.Errorf("encode envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return pooling.BookingAnswer{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return pooling.BookingAnswer{}, fmt.Errorf("post %s: %w", c.url, err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "booking check",
		"pool_id", int64(q.PoolID),
		"start_date", q.Start.String(),
		"end_date", q.End.String(),
		"capacity_check", q.CapacityCheck,
		"status", resp.StatusCode,
		"elapsed", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return pooling.BookingAnswer{}, fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var env responseEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return pooling.BookingAnswer{}, fmt.Errorf("decode envelope: %w", err)
	}
	var answer wireAnswer
	if err := json.Unmarshal([]byte(env.Result), &answer); err != nil {
		return pooling.BookingAnswer{}, fmt.Errorf("decode result: %w", err)
	}
	return pooling.BookingAnswer{
		BookingExists:    answer.IsBookingExists,
		CapacityExceeded: answer.IsCapacityCheck,
	}, nil
}

var _ pooling.BookingConflictOracle = (*Client)(nil)

// =============================================================================
// HANDLER
// =============================================================================

// Handler serves the wire format from an oracle.
func Handler(oracle pooling.BookingConflictOracle) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var env requestEnvelope
		if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
			http.Error(w, "invalid envelope", http.StatusBadRequest)
			return
		}
		var wq wireQuery
		if err := json.Unmarshal([]byte(env.Data), &wq); err != nil {
			http.Error(w, "invalid data", http.StatusBadRequest)
			return
		}
		start, err := generic.ParseDate(wq.StartDate)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		end, err := generic.ParseDate(wq.EndDate)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		answer, err := oracle.CheckBookings(r.Context(), pooling.BookingQuery{
			PoolID:        pooling.PoolID(wq.PoolID),
			SubscriberID:  pooling.SubscriberID(wq.SubscriberID),
			Start:         start,
			End:           end,
			Capacity:      wq.Capacity,
			CapacityCheck: wq.CapacityCheck,
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		result, _ := json.Marshal(wireAnswer{
			IsBookingExists: answer.BookingExists,
			IsCapacityCheck: answer.CapacityExceeded,
		})
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(responseEnvelope{Result: string(result)})
	})
}
