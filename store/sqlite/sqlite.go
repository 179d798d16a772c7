/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Persists pools, their date-range partitions and the range history, and
  serves the read-only data other components need: organisation settings
  and calendar rules.

INTERFACES IMPLEMENTED:
  pooling.Store:           Pools, partitions, history, linked services
  settings.Loader:         Organisation settings per subscriber
  availability.RuleSource: Calendar rules for a service/slot

KEY TABLES:
  pools:                   Soft-deleted pool records
  pool_date_ranges:        Current partition tuples (end_date NULL = open)
  pool_date_range_history: INSERT/DELETE audit of partition tuples
  subscribers:             Organisation name and API page limit
  services:                Services linked to pools
  availability_rules:      Calendar rules (pricing type, recurrence)

ATOMICITY:
  ReplaceDateRanges and DeletePool run inside one transaction each: the
  history rows, the delete and the re-insert commit together or not at all.
  Nothing locks a pool between reading its partition and replacing it.

DATES:
  Stored as TEXT in YYYY-MM-DD so string comparison is date comparison.

USAGE:
  store, err := sqlite.New("./data/pools.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - pooling/store.go: Store contract
  - store/memory: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/warp/pool-engine/availability"
	"github.com/warp/pool-engine/generic"
	"github.com/warp/pool-engine/pooling"
	"github.com/warp/pool-engine/settings"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: a ":memory:" database exists per connection, and
	// SQLite serializes writers anyway.
	db.SetMaxOpenConns(1)

	store := &Store{db: db, now: time.Now}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection; used by the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS subscribers (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		api_limit INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS pools (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		subscriber_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		remarks TEXT,
		created_by INTEGER NOT NULL,
		updated_by INTEGER,
		deleted INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Pool names are unique per subscriber among live pools
	CREATE UNIQUE INDEX IF NOT EXISTS idx_pools_subscriber_name
		ON pools(subscriber_id, name COLLATE NOCASE) WHERE deleted = 0;

	CREATE TABLE IF NOT EXISTS pool_date_ranges (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		pool_id INTEGER NOT NULL REFERENCES pools(id),
		subscriber_id INTEGER NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT,
		capacity INTEGER NOT NULL CHECK (capacity >= 0),
		created_by INTEGER NOT NULL,
		updated_by INTEGER,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_pool_date_ranges_pool
		ON pool_date_ranges(pool_id, subscriber_id);

	CREATE TABLE IF NOT EXISTS pool_date_range_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		pool_id INTEGER NOT NULL,
		pool_date_range_id INTEGER NOT NULL,
		action_type TEXT NOT NULL CHECK (action_type IN ('INSERT', 'DELETE')),
		old_start_date TEXT,
		old_end_date TEXT,
		old_capacity INTEGER,
		created_by INTEGER,
		subscriber_id INTEGER,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_pool_date_range_history_pool
		ON pool_date_range_history(pool_id);

	CREATE TABLE IF NOT EXISTS services (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		subscriber_id INTEGER NOT NULL,
		pool_id INTEGER,
		name TEXT NOT NULL,
		capacity_type INTEGER NOT NULL DEFAULT 0,
		deleted INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_services_pool
		ON services(pool_id) WHERE deleted = 0;

	CREATE TABLE IF NOT EXISTS availability_rules (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		subscriber_id INTEGER NOT NULL,
		service_id INTEGER NOT NULL,
		slot_id INTEGER,
		pricing_type TEXT NOT NULL,
		repeat_type TEXT NOT NULL DEFAULT 'none',
		repeat_details TEXT,
		start_date TEXT NOT NULL,
		end_date TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_availability_rules_service
		ON availability_rules(subscriber_id, service_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// withTx runs fn in a transaction, rolling back on error.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(sqlTx); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// =============================================================================
// POOLS (pooling.Store)
// =============================================================================

func (s *Store) CreatePool(ctx context.Context, pool pooling.Pool) (pooling.Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO pools (subscriber_id, name, remarks, created_by, deleted, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, ?, ?)
	`, pool.SubscriberID, pool.Name, nullString(pool.Remarks), pool.CreatedBy,
		now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		if isUniqueConstraintError(err) {
			return pooling.Pool{}, generic.ErrDuplicatePoolName
		}
		return pooling.Pool{}, fmt.Errorf("failed to insert pool: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return pooling.Pool{}, fmt.Errorf("failed to read pool id: %w", err)
	}

	pool.ID = pooling.PoolID(id)
	pool.CreatedAt = now
	pool.UpdatedAt = now
	return pool, nil
}

const poolColumns = `id, subscriber_id, name, remarks, created_by, updated_by, deleted, created_at, updated_at`

func (s *Store) GetPool(ctx context.Context, subscriberID pooling.SubscriberID, id pooling.PoolID) (pooling.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+poolColumns+`
		FROM pools WHERE id = ? AND subscriber_id = ? AND deleted = 0`, id, subscriberID)
	pool, err := scanPool(row)
	if errors.Is(err, sql.ErrNoRows) {
		return pooling.Pool{}, generic.ErrPoolNotFound
	}
	return pool, err
}

func (s *Store) UpdatePool(ctx context.Context, pool pooling.Pool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE pools SET name = ?, remarks = ?, updated_by = ?, updated_at = ?
		WHERE id = ? AND subscriber_id = ? AND deleted = 0
	`, pool.Name, nullString(pool.Remarks), nullUser(pool.UpdatedBy), s.now().UTC().Format(time.RFC3339),
		pool.ID, pool.SubscriberID)
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrDuplicatePoolName
		}
		return fmt.Errorf("failed to update pool: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return generic.ErrPoolNotFound
	}
	return nil
}

func (s *Store) ListPools(ctx context.Context, filter pooling.PoolFilter) ([]pooling.PoolWithRanges, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + poolColumns + ` FROM pools WHERE subscriber_id = ? AND deleted = 0`
	args := []any{filter.SubscriberID}
	if filter.PoolID != nil {
		query += ` AND id = ?`
		args = append(args, *filter.PoolID)
	}
	query += ` ORDER BY id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	pools, err := s.queryPools(ctx, s.db, query, args...)
	if err != nil {
		return nil, err
	}

	out := make([]pooling.PoolWithRanges, 0, len(pools))
	for _, p := range pools {
		records, err := s.queryRanges(ctx, s.db, `
			SELECT `+rangeColumns+` FROM pool_date_ranges
			WHERE pool_id = ? AND subscriber_id = ?
			ORDER BY start_date ASC, id ASC
		`, p.ID, p.SubscriberID)
		if err != nil {
			return nil, err
		}
		out = append(out, pooling.PoolWithRanges{Pool: p, DateRanges: pooling.PartitionOf(records)})
	}
	return out, nil
}

func (s *Store) FindPools(ctx context.Context, subscriberID pooling.SubscriberID, ids []pooling.PoolID) ([]pooling.Pool, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := []any{subscriberID}
	for _, id := range ids {
		args = append(args, id)
	}
	return s.queryPools(ctx, s.db, `SELECT `+poolColumns+` FROM pools
		WHERE subscriber_id = ? AND deleted = 0 AND id IN (`+placeholders+`)
		ORDER BY id ASC`, args...)
}

// DeletePool soft-deletes the pool and removes its ranges with history.
func (s *Store) DeletePool(ctx context.Context, subscriberID pooling.SubscriberID, userID pooling.UserID, id pooling.PoolID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE pools SET deleted = 1, updated_by = ?, updated_at = ?
			WHERE id = ? AND subscriber_id = ? AND deleted = 0
		`, userID, s.now().UTC().Format(time.RFC3339), id, subscriberID)
		if err != nil {
			return fmt.Errorf("failed to delete pool: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return generic.ErrPoolNotFound
		}
		_, err = s.deleteRanges(ctx, tx, id, subscriberID, userID)
		return err
	})
}

func (s *Store) LinkedServices(ctx context.Context, subscriberID pooling.SubscriberID, poolID pooling.PoolID) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM services
		WHERE pool_id = ? AND subscriber_id = ? AND capacity_type = 1 AND deleted = 0
		ORDER BY id ASC
	`, poolID, subscriberID)
	if err != nil {
		return nil, fmt.Errorf("failed to query services: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan service: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *Store) queryPools(ctx context.Context, q querier, query string, args ...any) ([]pooling.Pool, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pools: %w", err)
	}
	defer rows.Close()

	var pools []pooling.Pool
	for rows.Next() {
		p, err := scanPool(rows)
		if err != nil {
			return nil, err
		}
		pools = append(pools, p)
	}
	return pools, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPool(row scanner) (pooling.Pool, error) {
	var (
		p         pooling.Pool
		remarks   sql.NullString
		updatedBy sql.NullInt64
		createdAt string
		updatedAt string
	)
	err := row.Scan(&p.ID, &p.SubscriberID, &p.Name, &remarks, &p.CreatedBy, &updatedBy,
		&p.Deleted, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, err
		}
		return p, fmt.Errorf("failed to scan pool: %w", err)
	}
	if remarks.Valid {
		p.Remarks = &remarks.String
	}
	if updatedBy.Valid {
		u := pooling.UserID(updatedBy.Int64)
		p.UpdatedBy = &u
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return p, nil
}

// =============================================================================
// DATE RANGES
// =============================================================================

const rangeColumns = `id, pool_id, subscriber_id, start_date, end_date, capacity, created_by, updated_by`

func (s *Store) DateRanges(ctx context.Context, subscriberID pooling.SubscriberID, poolID pooling.PoolID) ([]pooling.DateRangeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryRanges(ctx, s.db, `
		SELECT `+rangeColumns+` FROM pool_date_ranges
		WHERE pool_id = ? AND subscriber_id = ?
		ORDER BY id ASC
	`, poolID, subscriberID)
}

func (s *Store) InsertDateRanges(ctx context.Context, poolID pooling.PoolID, subscriberID pooling.SubscriberID, userID pooling.UserID, p pooling.Partition) ([]pooling.DateRangeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var created []pooling.DateRangeRecord
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		created, err = s.insertRanges(ctx, tx, poolID, subscriberID, userID, p)
		return err
	})
	return created, err
}

func (s *Store) ReplaceDateRanges(ctx context.Context, poolID pooling.PoolID, subscriberID pooling.SubscriberID, userID pooling.UserID, p pooling.Partition) ([]int64, []pooling.DateRangeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		deleted []int64
		created []pooling.DateRangeRecord
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		if deleted, err = s.deleteRanges(ctx, tx, poolID, subscriberID, userID); err != nil {
			return err
		}
		created, err = s.insertRanges(ctx, tx, poolID, subscriberID, userID, p)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return deleted, created, nil
}

func (s *Store) insertRanges(ctx context.Context, tx *sql.Tx, poolID pooling.PoolID, subscriberID pooling.SubscriberID, userID pooling.UserID, p pooling.Partition) ([]pooling.DateRangeRecord, error) {
	now := s.now().UTC().Format(time.RFC3339)
	created := make([]pooling.DateRangeRecord, 0, len(p))
	for _, dc := range p {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO pool_date_ranges (pool_id, subscriber_id, start_date, end_date, capacity, created_by, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, poolID, subscriberID, dc.Range.Start.String(), nullDate(dc.Range.End), dc.Capacity, userID, now)
		if err != nil {
			return nil, fmt.Errorf("failed to insert date range: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("failed to read date range id: %w", err)
		}
		if err := s.logHistory(ctx, tx, pooling.HistoryEntry{
			PoolID:       poolID,
			DateRangeID:  id,
			Action:       pooling.HistoryInsert,
			CreatedBy:    userID,
			SubscriberID: subscriberID,
		}); err != nil {
			return nil, err
		}
		created = append(created, pooling.DateRangeRecord{
			ID:           id,
			PoolID:       poolID,
			SubscriberID: subscriberID,
			DateCapacity: dc,
			CreatedBy:    userID,
		})
	}
	return created, nil
}

func (s *Store) deleteRanges(ctx context.Context, tx *sql.Tx, poolID pooling.PoolID, subscriberID pooling.SubscriberID, userID pooling.UserID) ([]int64, error) {
	current, err := s.queryRanges(ctx, tx, `
		SELECT `+rangeColumns+` FROM pool_date_ranges
		WHERE pool_id = ? AND subscriber_id = ?
		ORDER BY id ASC
	`, poolID, subscriberID)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(current))
	for _, r := range current {
		start := r.Range.Start
		capacity := r.Capacity
		if err := s.logHistory(ctx, tx, pooling.HistoryEntry{
			PoolID:       poolID,
			DateRangeID:  r.ID,
			Action:       pooling.HistoryDelete,
			OldStartDate: &start,
			OldEndDate:   r.Range.End,
			OldCapacity:  &capacity,
			CreatedBy:    userID,
			SubscriberID: subscriberID,
		}); err != nil {
			return nil, err
		}
		ids = append(ids, r.ID)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM pool_date_ranges WHERE pool_id = ? AND subscriber_id = ?`,
		poolID, subscriberID,
	); err != nil {
		return nil, fmt.Errorf("failed to delete date ranges: %w", err)
	}
	return ids, nil
}

func (s *Store) queryRanges(ctx context.Context, q querier, query string, args ...any) ([]pooling.DateRangeRecord, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query date ranges: %w", err)
	}
	defer rows.Close()

	var records []pooling.DateRangeRecord
	for rows.Next() {
		var (
			r         pooling.DateRangeRecord
			start     string
			end       sql.NullString
			updatedBy sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &r.PoolID, &r.SubscriberID, &start, &end, &r.Capacity,
			&r.CreatedBy, &updatedBy); err != nil {
			return nil, fmt.Errorf("failed to scan date range: %w", err)
		}
		if r.Range, err = parseRange(start, end); err != nil {
			return nil, fmt.Errorf("date range %d: %w", r.ID, err)
		}
		if updatedBy.Valid {
			u := pooling.UserID(updatedBy.Int64)
			r.UpdatedBy = &u
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// =============================================================================
// HISTORY
// =============================================================================

func (s *Store) logHistory(ctx context.Context, tx *sql.Tx, h pooling.HistoryEntry) error {
	var oldCapacity sql.NullInt64
	if h.OldCapacity != nil {
		oldCapacity = sql.NullInt64{Int64: int64(*h.OldCapacity), Valid: true}
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO pool_date_range_history
		(pool_id, pool_date_range_id, action_type, old_start_date, old_end_date, old_capacity,
		 created_by, subscriber_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, h.PoolID, h.DateRangeID, string(h.Action), nullDate(h.OldStartDate), nullDate(h.OldEndDate),
		oldCapacity, h.CreatedBy, h.SubscriberID, s.now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to log date range history: %w", err)
	}
	return nil
}

func (s *Store) History(ctx context.Context, poolID pooling.PoolID) ([]pooling.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT pool_id, pool_date_range_id, action_type, old_start_date, old_end_date, old_capacity,
		       created_by, subscriber_id
		FROM pool_date_range_history
		WHERE pool_id = ?
		ORDER BY id ASC
	`, poolID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var out []pooling.HistoryEntry
	for rows.Next() {
		var (
			h           pooling.HistoryEntry
			action      string
			oldStart    sql.NullString
			oldEnd      sql.NullString
			oldCapacity sql.NullInt64
			createdBy   sql.NullInt64
			subscriber  sql.NullInt64
		)
		if err := rows.Scan(&h.PoolID, &h.DateRangeID, &action, &oldStart, &oldEnd, &oldCapacity,
			&createdBy, &subscriber); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		h.Action = pooling.HistoryAction(action)
		if h.OldStartDate, err = parseNullDate(oldStart); err != nil {
			return nil, err
		}
		if h.OldEndDate, err = parseNullDate(oldEnd); err != nil {
			return nil, err
		}
		if oldCapacity.Valid {
			c := int(oldCapacity.Int64)
			h.OldCapacity = &c
		}
		h.CreatedBy = pooling.UserID(createdBy.Int64)
		h.SubscriberID = pooling.SubscriberID(subscriber.Int64)
		out = append(out, h)
	}
	return out, rows.Err()
}

// =============================================================================
// SUBSCRIBERS (settings.Loader)
// =============================================================================

func (s *Store) SaveSubscriber(ctx context.Context, org settings.Org) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subscribers (id, name, api_limit) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, api_limit = excluded.api_limit
	`, org.SubscriberID, org.Name, org.APILimit)
	if err != nil {
		return fmt.Errorf("failed to save subscriber: %w", err)
	}
	return nil
}

func (s *Store) OrgSettings(ctx context.Context, subscriberID int64) (settings.Org, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	org := settings.Org{SubscriberID: subscriberID}
	err := s.db.QueryRowContext(ctx,
		`SELECT name, api_limit FROM subscribers WHERE id = ?`, subscriberID,
	).Scan(&org.Name, &org.APILimit)
	if errors.Is(err, sql.ErrNoRows) {
		return settings.Org{}, settings.ErrUnknownSubscriber
	}
	if err != nil {
		return settings.Org{}, fmt.Errorf("failed to query subscriber: %w", err)
	}
	return org, nil
}

// =============================================================================
// SERVICES
// =============================================================================

// ServiceRecord links a bookable service to a pool.
type ServiceRecord struct {
	ID           int64
	SubscriberID pooling.SubscriberID
	PoolID       *pooling.PoolID
	Name         string
	CapacityType bool
	Deleted      bool
}

func (s *Store) SaveService(ctx context.Context, svc ServiceRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var poolID sql.NullInt64
	if svc.PoolID != nil {
		poolID = sql.NullInt64{Int64: int64(*svc.PoolID), Valid: true}
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO services (subscriber_id, pool_id, name, capacity_type, deleted)
		VALUES (?, ?, ?, ?, ?)
	`, svc.SubscriberID, poolID, svc.Name, svc.CapacityType, svc.Deleted)
	if err != nil {
		return 0, fmt.Errorf("failed to save service: %w", err)
	}
	return res.LastInsertId()
}

// =============================================================================
// AVAILABILITY RULES (availability.RuleSource)
// =============================================================================

func (s *Store) SaveRule(ctx context.Context, r availability.Rule) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var slotID sql.NullInt64
	if r.SlotID != nil {
		slotID = sql.NullInt64{Int64: *r.SlotID, Valid: true}
	}
	var details sql.NullString
	if len(r.RepeatDetails) > 0 {
		details = sql.NullString{String: string(r.RepeatDetails), Valid: true}
	}
	repeat := string(r.RepeatType)
	if repeat == "" {
		repeat = string(availability.RepeatNone)
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO availability_rules
		(subscriber_id, service_id, slot_id, pricing_type, repeat_type, repeat_details, start_date, end_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.SubscriberID, r.ServiceID, slotID, r.PricingType, repeat, details,
		r.Range.Start.String(), nullDate(r.Range.End))
	if err != nil {
		return 0, fmt.Errorf("failed to save rule: %w", err)
	}
	return res.LastInsertId()
}

// MatchingRules returns the subscriber's rules for the service. Rules
// without a slot apply to every slot.
func (s *Store) MatchingRules(ctx context.Context, q availability.Query) ([]availability.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, subscriber_id, service_id, slot_id, pricing_type, repeat_type, repeat_details, start_date, end_date
		FROM availability_rules
		WHERE subscriber_id = ? AND service_id = ?`
	args := []any{q.SubscriberID, q.ServiceID}
	if q.SlotID != nil {
		query += ` AND (slot_id IS NULL OR slot_id = ?)`
		args = append(args, *q.SlotID)
	} else {
		query += ` AND slot_id IS NULL`
	}
	query += ` ORDER BY id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	var rules []availability.Rule
	for rows.Next() {
		var (
			r       availability.Rule
			slotID  sql.NullInt64
			repeat  string
			details sql.NullString
			start   string
			end     sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.SubscriberID, &r.ServiceID, &slotID, &r.PricingType,
			&repeat, &details, &start, &end); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		if slotID.Valid {
			r.SlotID = &slotID.Int64
		}
		r.RepeatType = availability.RepeatType(repeat)
		if details.Valid {
			r.RepeatDetails = json.RawMessage(details.String)
		}
		if r.Range, err = parseRange(start, end); err != nil {
			return nil, fmt.Errorf("rule %d: %w", r.ID, err)
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullUser(u *pooling.UserID) sql.NullInt64 {
	if u == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*u), Valid: true}
}

func nullDate(d *generic.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseNullDate(v sql.NullString) (*generic.Date, error) {
	if !v.Valid {
		return nil, nil
	}
	d, err := generic.ParseDate(v.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func parseRange(start string, end sql.NullString) (generic.DateRange, error) {
	s, err := generic.ParseDate(start)
	if err != nil {
		return generic.DateRange{}, err
	}
	e, err := parseNullDate(end)
	if err != nil {
		return generic.DateRange{}, err
	}
	return generic.DateRange{Start: s, End: e}, nil
}

func isUniqueConstraintError(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}

var (
	_ pooling.Store           = (*Store)(nil)
	_ settings.Loader         = (*Store)(nil)
	_ availability.RuleSource = (*Store)(nil)
)
