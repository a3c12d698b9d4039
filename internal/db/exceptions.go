package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/franpass87/FP-Restaurant-Reservations-sub003/internal/model"
)

// Filter narrows exception lookups. Zero values mean "no constraint".
type Filter struct {
	Scope      model.Scope
	RoomID     int64
	TableID    int64
	ActiveOnly bool
	// WindowStart/WindowEnd keep only records whose own interval overlaps
	// the window. Recurring records always qualify, since their
	// occurrences are not derivable in SQL.
	WindowStart time.Time
	WindowEnd   time.Time
}

const exceptionColumns = `id, scope, type, start_at, end_at, room_id, table_id,
	note, active, priority, recurrence, capacity_override, created_at, updated_at`

// CreateException inserts a record and returns it with its assigned id.
func (db *DB) CreateException(ctx context.Context, rec *model.ExceptionRecord) (*model.ExceptionRecord, error) {
	recurrence, override, err := encodeJSONColumns(rec)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	res, err := db.ExecContext(ctx, `
		INSERT INTO exceptions (scope, type, start_at, end_at, room_id, table_id,
			note, active, priority, recurrence, capacity_override, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Scope, rec.Type,
		rec.StartAt.UTC().Format(time.RFC3339), rec.EndAt.UTC().Format(time.RFC3339),
		rec.RoomID, rec.TableID, rec.Note, rec.Active, rec.Priority,
		recurrence, override,
		now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("insert exception: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert exception id: %w", err)
	}
	return db.GetException(ctx, id)
}

// UpdateException replaces the stored record with rec (matched by rec.ID).
func (db *DB) UpdateException(ctx context.Context, rec *model.ExceptionRecord) (*model.ExceptionRecord, error) {
	recurrence, override, err := encodeJSONColumns(rec)
	if err != nil {
		return nil, err
	}

	res, err := db.ExecContext(ctx, `
		UPDATE exceptions SET scope = ?, type = ?, start_at = ?, end_at = ?,
			room_id = ?, table_id = ?, note = ?, active = ?, priority = ?,
			recurrence = ?, capacity_override = ?, updated_at = ?
		WHERE id = ?`,
		rec.Scope, rec.Type,
		rec.StartAt.UTC().Format(time.RFC3339), rec.EndAt.UTC().Format(time.RFC3339),
		rec.RoomID, rec.TableID, rec.Note, rec.Active, rec.Priority,
		recurrence, override,
		time.Now().UTC().Format(time.RFC3339), rec.ID)
	if err != nil {
		return nil, fmt.Errorf("update exception %d: %w", rec.ID, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, ErrNotFound
	}
	return db.GetException(ctx, rec.ID)
}

// DeleteException removes a record by id.
func (db *DB) DeleteException(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx, `DELETE FROM exceptions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete exception %d: %w", id, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetException loads one record by id.
func (db *DB) GetException(ctx context.Context, id int64) (*model.ExceptionRecord, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+exceptionColumns+` FROM exceptions WHERE id = ?`, id)
	rec, err := scanException(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get exception %d: %w", id, err)
	}
	return rec, nil
}

// ListExceptions returns records matching the filter, ordered by id so
// repeated preview runs over the same data stay deterministic.
func (db *DB) ListExceptions(ctx context.Context, filter Filter) ([]*model.ExceptionRecord, error) {
	query := `SELECT ` + exceptionColumns + ` FROM exceptions WHERE 1=1`
	var args []any

	if filter.Scope != "" {
		query += ` AND scope = ?`
		args = append(args, filter.Scope)
	}
	if filter.RoomID > 0 {
		query += ` AND room_id = ?`
		args = append(args, filter.RoomID)
	}
	if filter.TableID > 0 {
		query += ` AND table_id = ?`
		args = append(args, filter.TableID)
	}
	if filter.ActiveOnly {
		query += ` AND active = 1`
	}
	if !filter.WindowStart.IsZero() && !filter.WindowEnd.IsZero() {
		// Timestamps are stored UTC-normalized, so RFC3339 text order
		// matches instant order and the comparison can run in SQL.
		query += ` AND (recurrence IS NOT NULL OR (start_at <= ? AND end_at >= ?))`
		args = append(args, filter.WindowEnd.UTC().Format(time.RFC3339), filter.WindowStart.UTC().Format(time.RFC3339))
	}
	query += ` ORDER BY id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list exceptions: %w", err)
	}
	defer rows.Close()

	var records []*model.ExceptionRecord
	for rows.Next() {
		rec, err := scanException(rows)
		if err != nil {
			return nil, fmt.Errorf("scan exception: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanException(row rowScanner) (*model.ExceptionRecord, error) {
	var (
		rec                  model.ExceptionRecord
		startAt, endAt       string
		createdAt, updatedAt string
		recurrence, override sql.NullString
	)
	err := row.Scan(&rec.ID, &rec.Scope, &rec.Type, &startAt, &endAt,
		&rec.RoomID, &rec.TableID, &rec.Note, &rec.Active, &rec.Priority,
		&recurrence, &override, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if rec.StartAt, err = time.Parse(time.RFC3339, startAt); err != nil {
		return nil, fmt.Errorf("parse start_at: %w", err)
	}
	if rec.EndAt, err = time.Parse(time.RFC3339, endAt); err != nil {
		return nil, fmt.Errorf("parse end_at: %w", err)
	}
	if rec.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if rec.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	if recurrence.Valid && recurrence.String != "" {
		var r model.Recurrence
		if err := json.Unmarshal([]byte(recurrence.String), &r); err != nil {
			return nil, fmt.Errorf("decode recurrence: %w", err)
		}
		rec.Recurrence = &r
	}
	if override.Valid && override.String != "" {
		o, err := model.UnmarshalOverride([]byte(override.String))
		if err != nil {
			return nil, fmt.Errorf("decode capacity override: %w", err)
		}
		rec.CapacityOverride = o
	}
	return &rec, nil
}

func encodeJSONColumns(rec *model.ExceptionRecord) (recurrence, override sql.NullString, err error) {
	if rec.Recurrence != nil {
		data, err := json.Marshal(rec.Recurrence)
		if err != nil {
			return recurrence, override, fmt.Errorf("encode recurrence: %w", err)
		}
		recurrence = sql.NullString{String: string(data), Valid: true}
	}
	if rec.CapacityOverride != nil {
		data, err := json.Marshal(rec.CapacityOverride)
		if err != nil {
			return recurrence, override, fmt.Errorf("encode capacity override: %w", err)
		}
		override = sql.NullString{String: string(data), Valid: true}
	}
	return recurrence, override, nil
}
