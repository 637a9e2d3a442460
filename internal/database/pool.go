package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"aforo/internal/models"

	"github.com/google/uuid"
)

const poolColumns = `id, batch_id, date, time, client, room, quantity, technique, duration_minutes,
	category, phone, adults, children, amount, payment_status, details, active, created_at`

func scanPoolReservation(s rowScanner) (models.PoolReservation, error) {
	var r models.PoolReservation
	var category string
	err := s.Scan(
		&r.ID, &r.BatchID, &r.Date, &r.Time, &r.Client, &r.Room, &r.Quantity, &r.Technique, &r.DurationMinutes,
		&category, &r.Phone, &r.Adults, &r.Children, &r.Amount, &r.PaymentStatus, &r.Details, &r.Active, &r.CreatedAt,
	)
	r.Category = models.Category(category)
	return r, err
}

// GetPoolReservationsByDate returns the active batch of a date ordered by time.
func (db *DB) GetPoolReservationsByDate(ctx context.Context, date string) ([]models.PoolReservation, error) {
	if err := validDate(date); err != nil {
		return nil, err
	}
	query := `SELECT ` + poolColumns + ` FROM pool_reservations
              WHERE date = ? AND active = 1 ORDER BY time ASC, id ASC`
	rows, err := db.QueryContext(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("failed to get pool reservations: %w", err)
	}
	defer rows.Close()

	reservations := []models.PoolReservation{}
	for rows.Next() {
		r, err := scanPoolReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pool reservation: %w", err)
		}
		reservations = append(reservations, r)
	}
	return reservations, rows.Err()
}

// BulkReplacePool supersedes the batch of date with records in one
// transaction and returns the stored rows. An empty slice clears the date.
func (db *DB) BulkReplacePool(ctx context.Context, date string, records []models.PoolReservation, info models.UploadInfo) ([]models.PoolReservation, error) {
	if err := validDate(date); err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	info = info.WithDefaults()
	inserted, err := replaceDate(ctx, tx, date, records, info)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit pool import: %w", err)
	}

	db.logImport(date, len(inserted), info)
	return inserted, nil
}

// BulkReplacePoolMultiple replaces every date of byDate in a single
// transaction: either all dates are replaced or none.
func (db *DB) BulkReplacePoolMultiple(ctx context.Context, byDate map[string][]models.PoolReservation, info models.UploadInfo) (map[string][]models.PoolReservation, error) {
	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		if err := validDate(date); err != nil {
			return nil, err
		}
		dates = append(dates, date)
	}
	sort.Strings(dates)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	info = info.WithDefaults()
	out := make(map[string][]models.PoolReservation, len(dates))
	for _, date := range dates {
		inserted, err := replaceDate(ctx, tx, date, byDate[date], info)
		if err != nil {
			return nil, err
		}
		out[date] = inserted
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit pool import: %w", err)
	}

	for _, date := range dates {
		db.logImport(date, len(out[date]), info)
	}
	return out, nil
}

func (db *DB) logImport(date string, count int, info models.UploadInfo) {
	if db.logger == nil {
		return
	}
	db.logger.Info().
		Str("date", date).
		Int("count", count).
		Str("actor", info.Actor).
		Msg("Pool batch replaced")
}

func replaceDate(ctx context.Context, tx *sql.Tx, date string, records []models.PoolReservation, info models.UploadInfo) ([]models.PoolReservation, error) {
	if _, err := tx.ExecContext(ctx,
		`UPDATE pool_reservations SET active = 0 WHERE date = ? AND active = 1`, date); err != nil {
		return nil, fmt.Errorf("failed to deactivate batch for %s: %w", date, err)
	}

	batchID := uuid.NewString()
	now := time.Now()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO pool_reservations (
				batch_id, date, time, client, room, quantity, technique, duration_minutes, category,
				phone, adults, children, amount, payment_status, details, active, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?)`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := make([]models.PoolReservation, 0, len(records))
	for _, r := range records {
		result, err := stmt.ExecContext(ctx,
			batchID, date, r.Time, r.Client, r.Room, r.Quantity, r.Technique, r.DurationMinutes, string(r.Category),
			r.Phone, r.Adults, r.Children, r.Amount, r.PaymentStatus, r.Details, now,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert reservation for %s at %s: %w", r.Client, r.Time, err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("failed to get last insert id: %w", err)
		}
		r.ID = id
		r.BatchID = batchID
		r.Date = date
		r.Active = true
		r.CreatedAt = now
		inserted = append(inserted, r)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO pool_upload_log (date, batch_id, record_count, actor, source, uploaded_at) VALUES (?, ?, ?, ?, ?, ?)`,
		date, batchID, len(inserted), info.Actor, info.Source, now,
	); err != nil {
		return nil, fmt.Errorf("failed to write upload log: %w", err)
	}
	return inserted, nil
}

// GetLastUploadTime returns when date was last imported, or nil.
func (db *DB) GetLastUploadTime(ctx context.Context, date string) (*time.Time, error) {
	if err := validDate(date); err != nil {
		return nil, err
	}
	var uploadedAt time.Time
	err := db.QueryRowContext(ctx,
		`SELECT uploaded_at FROM pool_upload_log WHERE date = ? ORDER BY uploaded_at DESC, id DESC LIMIT 1`, date,
	).Scan(&uploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last upload time: %w", err)
	}
	return &uploadedAt, nil
}

// GetUploadLog lists the imports of a date, newest first.
func (db *DB) GetUploadLog(ctx context.Context, date string, limit int) ([]models.UploadLogEntry, error) {
	if err := validDate(date); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.QueryContext(ctx,
		`SELECT id, date, batch_id, record_count, actor, source, uploaded_at
         FROM pool_upload_log WHERE date = ? ORDER BY uploaded_at DESC, id DESC LIMIT ?`, date, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get upload log: %w", err)
	}
	defer rows.Close()

	entries := []models.UploadLogEntry{}
	for rows.Next() {
		var e models.UploadLogEntry
		if err := rows.Scan(&e.ID, &e.Date, &e.BatchID, &e.RecordCount, &e.Actor, &e.Source, &e.UploadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan upload log: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetPoolStats summarizes the active batch of a date.
func (db *DB) GetPoolStats(ctx context.Context, date string) (*models.PoolStats, error) {
	if err := validDate(date); err != nil {
		return nil, err
	}
	var stats models.PoolStats
	err := db.QueryRowContext(ctx, `SELECT
            COUNT(*),
            COALESCE(SUM(quantity), 0),
            COALESCE(SUM(CASE WHEN duration_minutes = 30 THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN duration_minutes = 60 THEN 1 ELSE 0 END), 0)
         FROM pool_reservations WHERE date = ? AND active = 1`, date,
	).Scan(&stats.Reservations, &stats.People, &stats.ShortSessions, &stats.LongSessions)
	if err != nil {
		return nil, fmt.Errorf("failed to get pool stats: %w", err)
	}
	return &stats, nil
}
