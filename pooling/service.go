package pooling

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/warp/pool-engine/events"
	"github.com/warp/pool-engine/generic"
	"github.com/warp/pool-engine/settings"
)

// =============================================================================
// SERVICE - Pool workflows
// =============================================================================
//
// Every public method returns a generic.Outcome. Store and oracle failures
// are logged and normalized; nothing escapes as a raw error.
//
// Event publication happens after the data is written. A failed publish is
// logged and does not change the outcome.

// OrgDirectory resolves per-subscriber settings. *settings.Cache satisfies it.
type OrgDirectory interface {
	Get(ctx context.Context, subscriberID int64) (settings.Org, error)
}

// Service runs pool create/update/list/delete.
type Service struct {
	store      Store
	reconciler *Reconciler
	orgs       OrgDirectory
	publisher  events.Publisher
	now        func() time.Time
	logger     *slog.Logger
}

func NewService(store Store, reconciler *Reconciler, orgs OrgDirectory, publisher events.Publisher) *Service {
	return NewServiceWithLogger(store, reconciler, orgs, publisher, slog.Default())
}

func NewServiceWithLogger(store Store, reconciler *Reconciler, orgs OrgDirectory, publisher events.Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:      store,
		reconciler: reconciler,
		orgs:       orgs,
		publisher:  publisher,
		now:        time.Now,
		logger:     logger,
	}
}

// WithClock overrides the clock used to stamp events.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// =============================================================================
// PARAMS
// =============================================================================

type CreatePoolParams struct {
	SubscriberID SubscriberID
	UserID       UserID
	Name         string
	Remarks      *string
	DateRanges   Partition
}

type UpdatePoolParams struct {
	ID           PoolID
	SubscriberID SubscriberID
	UserID       UserID
	// Confirmed resubmits a change the caller was already warned about.
	Confirmed  bool
	Name       *string
	Remarks    *string
	DateRanges Partition
}

type ListPoolsParams struct {
	SubscriberID SubscriberID
	PoolID       *PoolID
	Page         int
	// PageSize 0 falls back to the subscriber's API limit.
	PageSize int
}

type ListPoolsResult struct {
	Outcome generic.Outcome
	Pools   []PoolWithRanges
	Total   int
}

type DeletePoolsParams struct {
	SubscriberID SubscriberID
	UserID       UserID
	IDs          []PoolID
}

// =============================================================================
// OPERATIONS
// =============================================================================

// CreatePool validates the partition, stores the pool and its ranges, and
// publishes create events.
func (s *Service) CreatePool(ctx context.Context, p CreatePoolParams) generic.Outcome {
	if outcome := checkPartition(p.DateRanges); outcome != nil {
		return outcome
	}

	org, err := s.orgs.Get(ctx, int64(p.SubscriberID))
	if err != nil {
		return s.fault(ctx, "create pool", err)
	}

	pool, err := s.store.CreatePool(ctx, Pool{
		SubscriberID: p.SubscriberID,
		Name:         p.Name,
		Remarks:      p.Remarks,
		CreatedBy:    p.UserID,
	})
	if err != nil {
		return s.fault(ctx, "create pool", err)
	}

	records, err := s.store.InsertDateRanges(ctx, pool.ID, p.SubscriberID, p.UserID, p.DateRanges)
	if err != nil {
		return s.fault(ctx, "insert date ranges", err)
	}

	s.publish(ctx, org, events.TopicPool, events.ActionCreate, pool)
	if len(records) > 0 {
		s.publish(ctx, org, events.TopicPoolDateRange, events.ActionCreate, RangeEvent{Data: records})
	}

	s.logger.InfoContext(ctx, "pool created",
		"pool_id", int64(pool.ID),
		"subscriber_id", int64(p.SubscriberID),
		"ranges", len(records),
	)
	return generic.Accept{Kind: KindDataInserted}
}

// UpdatePool reconciles the new partition against the stored one before
// writing anything. A rejected or unconfirmed change leaves the pool as is.
func (s *Service) UpdatePool(ctx context.Context, p UpdatePoolParams) generic.Outcome {
	if outcome := checkPartition(p.DateRanges); outcome != nil {
		return outcome
	}

	pool, err := s.store.GetPool(ctx, p.SubscriberID, p.ID)
	if err != nil {
		return s.fault(ctx, "get pool", err)
	}

	org, err := s.orgs.Get(ctx, int64(p.SubscriberID))
	if err != nil {
		return s.fault(ctx, "update pool", err)
	}

	if len(p.DateRanges) > 0 {
		records, err := s.store.DateRanges(ctx, p.SubscriberID, pool.ID)
		if err != nil {
			return s.fault(ctx, "load date ranges", err)
		}
		outcome, err := s.reconciler.Reconcile(ctx, PartitionOf(records), p.DateRanges, pool.ID, p.SubscriberID,
			ReconcileOptions{Confirmed: p.Confirmed})
		if err != nil {
			return s.fault(ctx, "reconcile pool", err)
		}
		if !outcome.Success() {
			s.logger.InfoContext(ctx, "pool update not accepted",
				"pool_id", int64(pool.ID),
				"translation_key", outcome.TranslationKey(),
				"dialogue", outcome.RequiresConfirmation(),
			)
			return outcome
		}
	}

	if p.Name != nil {
		pool.Name = *p.Name
	}
	if p.Remarks != nil {
		pool.Remarks = p.Remarks
	}
	updatedBy := p.UserID
	pool.UpdatedBy = &updatedBy

	if err := s.store.UpdatePool(ctx, pool); err != nil {
		return s.fault(ctx, "update pool", err)
	}
	s.publish(ctx, org, events.TopicPool, events.ActionUpdate, pool)

	if len(p.DateRanges) > 0 {
		deleted, created, err := s.store.ReplaceDateRanges(ctx, pool.ID, p.SubscriberID, p.UserID, p.DateRanges)
		if err != nil {
			return s.fault(ctx, "replace date ranges", err)
		}
		s.publish(ctx, org, events.TopicPoolDateRange, events.ActionDelete, RangeEvent{IDs: deleted})
		s.publish(ctx, org, events.TopicPoolDateRange, events.ActionCreate, RangeEvent{Data: created})
	}

	s.logger.InfoContext(ctx, "pool updated",
		"pool_id", int64(pool.ID),
		"subscriber_id", int64(p.SubscriberID),
		"confirmed", p.Confirmed,
	)
	return generic.Accept{Kind: KindDataUpdated}
}

// ListPools pages through live pools, newest first.
func (s *Service) ListPools(ctx context.Context, p ListPoolsParams) ListPoolsResult {
	limit := p.PageSize
	if limit <= 0 {
		org, err := s.orgs.Get(ctx, int64(p.SubscriberID))
		if err != nil {
			return ListPoolsResult{Outcome: s.fault(ctx, "list pools", err)}
		}
		limit = org.APILimit
	}

	filter := PoolFilter{SubscriberID: p.SubscriberID, PoolID: p.PoolID}
	if limit > 0 {
		page := max(p.Page, 1)
		filter.Limit = limit
		filter.Offset = (page - 1) * limit
	}

	pools, err := s.store.ListPools(ctx, filter)
	if err != nil {
		return ListPoolsResult{Outcome: s.fault(ctx, "list pools", err)}
	}
	if len(pools) == 0 {
		return ListPoolsResult{Outcome: generic.Accept{Kind: KindNoRecords}, Pools: []PoolWithRanges{}}
	}
	return ListPoolsResult{Outcome: generic.Accept{}, Pools: pools, Total: len(pools)}
}

// DeletePools soft-deletes every listed pool. If any of them is still linked
// to a service nothing is deleted.
func (s *Service) DeletePools(ctx context.Context, p DeletePoolsParams) generic.Outcome {
	pools, err := s.store.FindPools(ctx, p.SubscriberID, p.IDs)
	if err != nil {
		return s.fault(ctx, "find pools", err)
	}
	if len(pools) == 0 {
		return generic.NotFound{Kind: KindNothingDeleted}
	}
	if len(pools) < len(p.IDs) {
		s.logger.InfoContext(ctx, "some pools not found", "requested", len(p.IDs), "found", len(pools))
	}

	org, err := s.orgs.Get(ctx, int64(p.SubscriberID))
	if err != nil {
		return s.fault(ctx, "delete pools", err)
	}

	for _, pool := range pools {
		services, err := s.store.LinkedServices(ctx, p.SubscriberID, pool.ID)
		if err != nil {
			return s.fault(ctx, "linked services", err)
		}
		if len(services) > 0 {
			return generic.HardReject{Kind: KindPoolInUse, Detail: poolInUseMessage(pool.Name, services)}
		}
	}

	for _, pool := range pools {
		if err := s.store.DeletePool(ctx, p.SubscriberID, p.UserID, pool.ID); err != nil {
			return s.fault(ctx, "delete pool", err)
		}
		pool.Deleted = true
		s.publish(ctx, org, events.TopicPool, events.ActionDelete, pool)
		s.logger.InfoContext(ctx, "pool deleted", "pool_id", int64(pool.ID), "subscriber_id", int64(p.SubscriberID))
	}
	return generic.Accept{Kind: KindDeleted}
}

// =============================================================================
// HELPERS
// =============================================================================

// RangeEvent is the payload of pooling_date_range events.
type RangeEvent struct {
	IDs  []int64           `json:"ids,omitempty"`
	Data []DateRangeRecord `json:"data,omitempty"`
}

// checkPartition rejects malformed tuples, then overlaps, then gaps. All
// findings of the failing kind are reported together.
func checkPartition(p Partition) generic.Outcome {
	for _, dc := range p {
		if dc.Range.Inverted() {
			return generic.HardReject{Kind: generic.KindDateValidation}
		}
		if dc.Capacity < 0 {
			return generic.HardReject{Kind: KindBadCapacity}
		}
	}

	checker := generic.NewRangeChecker(p.Ranges())
	if msgs := checker.OverlapMessages(); len(msgs) > 0 {
		return generic.HardReject{Kind: KindDatesOverlap, Detail: strings.Join(msgs, "; ")}
	}
	if msgs := checker.GapMessages(); len(msgs) > 0 {
		return generic.HardReject{Kind: KindDateGaps, Detail: strings.Join(msgs, "; ")}
	}
	return nil
}

func (s *Service) fault(ctx context.Context, op string, err error) generic.Outcome {
	outcome := generic.OutcomeFromError(err)
	if generic.IsInternal(outcome) {
		s.logger.ErrorContext(ctx, op+" failed", "error", err)
	} else {
		s.logger.DebugContext(ctx, op+" rejected", "error", err)
	}
	return outcome
}

func (s *Service) publish(ctx context.Context, org settings.Org, topic events.Topic, action events.Action, payload any) {
	event := events.New(topic, action, events.Subscriber{ID: org.SubscriberID, Name: org.Name}, payload, s.now())
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "event publish failed",
			"topic", string(topic),
			"action", string(action),
			"error", err,
		)
	}
}
