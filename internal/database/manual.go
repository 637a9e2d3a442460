package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"aforo/internal/models"
)

const manualColumns = `id, date, time, client_name, phone, adults, children, lunch, lunch_covers, dinner,
	dinner_covers, amount, payment_status, details, restaurant_comments, active, created_by, updated_by,
	created_at, updated_at`

func scanManualReservation(s rowScanner) (*models.ManualReservation, error) {
	var r models.ManualReservation
	err := s.Scan(
		&r.ID, &r.Date, &r.Time, &r.ClientName, &r.Phone, &r.Adults, &r.Children, &r.Lunch, &r.LunchCovers, &r.Dinner,
		&r.DinnerCovers, &r.Amount, &r.PaymentStatus, &r.Details, &r.RestaurantComments, &r.Active, &r.CreatedBy,
		&r.UpdatedBy, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// auditChange is the JSON stored in audit_log.details.
type auditChange struct {
	From *models.ManualReservation `json:"from,omitempty"`
	To   *models.ManualReservation `json:"to,omitempty"`
}

func writeAudit(ctx context.Context, tx *sql.Tx, reservationID int64, action, actor string, change auditChange, at time.Time) error {
	details, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to encode audit details: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO audit_log (reservation_id, action, actor, details, created_at) VALUES (?, ?, ?, ?, ?)`,
		reservationID, action, actor, string(details), at,
	)
	if err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

func actorOrSystem(actor string) string {
	if actor == "" {
		return models.SystemActor
	}
	return actor
}

// CreateManualReservation stores r and its CREATE audit entry atomically.
func (db *DB) CreateManualReservation(ctx context.Context, r *models.ManualReservation, actor string) error {
	if err := validDate(r.Date); err != nil {
		return err
	}
	actor = actorOrSystem(actor)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()
	result, err := tx.ExecContext(ctx, `INSERT INTO manual_reservations (
				date, time, client_name, phone, adults, children, lunch, lunch_covers, dinner, dinner_covers,
				amount, payment_status, details, restaurant_comments, active, created_by, updated_by,
				created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, '', ?, ?)`,
		r.Date, r.Time, r.ClientName, r.Phone, r.Adults, r.Children, r.Lunch, r.LunchCovers, r.Dinner, r.DinnerCovers,
		r.Amount, r.PaymentStatus, r.Details, r.RestaurantComments, actor, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create manual reservation: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	r.ID = id
	r.Active = true
	r.CreatedBy = actor
	r.UpdatedBy = ""
	r.CreatedAt = now
	r.UpdatedAt = now

	if err := writeAudit(ctx, tx, id, models.ActionCreate, actor, auditChange{To: r}, now); err != nil {
		return err
	}
	return tx.Commit()
}

func (db *DB) GetManualReservation(ctx context.Context, id int64) (*models.ManualReservation, error) {
	r, err := scanManualReservation(db.QueryRowContext(ctx,
		`SELECT `+manualColumns+` FROM manual_reservations WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "manual reservation", id)
	}
	return r, nil
}

func getActiveManualTx(ctx context.Context, tx *sql.Tx, id int64) (*models.ManualReservation, error) {
	r, err := scanManualReservation(tx.QueryRowContext(ctx,
		`SELECT `+manualColumns+` FROM manual_reservations WHERE id = ? AND active = 1`, id))
	if err != nil {
		return nil, notFound(err, "manual reservation", id)
	}
	return r, nil
}

// UpdateManualReservation overwrites the editable fields of r.ID and records
// the before and after state.
func (db *DB) UpdateManualReservation(ctx context.Context, r *models.ManualReservation, actor string) error {
	if err := validDate(r.Date); err != nil {
		return err
	}
	actor = actorOrSystem(actor)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	before, err := getActiveManualTx(ctx, tx, r.ID)
	if err != nil {
		return err
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx, `UPDATE manual_reservations SET
				date = ?, time = ?, client_name = ?, phone = ?, adults = ?, children = ?, lunch = ?,
				lunch_covers = ?, dinner = ?, dinner_covers = ?, amount = ?, payment_status = ?, details = ?,
				restaurant_comments = ?, updated_by = ?, updated_at = ?
			WHERE id = ?`,
		r.Date, r.Time, r.ClientName, r.Phone, r.Adults, r.Children, r.Lunch,
		r.LunchCovers, r.Dinner, r.DinnerCovers, r.Amount, r.PaymentStatus, r.Details,
		r.RestaurantComments, actor, now, r.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update manual reservation: %w", err)
	}

	r.Active = true
	r.CreatedBy = before.CreatedBy
	r.CreatedAt = before.CreatedAt
	r.UpdatedBy = actor
	r.UpdatedAt = now

	if err := writeAudit(ctx, tx, r.ID, models.ActionUpdate, actor, auditChange{From: before, To: r}, now); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteManualReservation soft-deletes id and returns the deleted state.
func (db *DB) DeleteManualReservation(ctx context.Context, id int64, actor string) (*models.ManualReservation, error) {
	actor = actorOrSystem(actor)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	before, err := getActiveManualTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if _, err := tx.ExecContext(ctx,
		`UPDATE manual_reservations SET active = 0, updated_by = ?, updated_at = ? WHERE id = ?`,
		actor, now, id); err != nil {
		return nil, fmt.Errorf("failed to delete manual reservation: %w", err)
	}
	if err := writeAudit(ctx, tx, id, models.ActionDelete, actor, auditChange{From: before}, now); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit delete: %w", err)
	}
	return before, nil
}

// GetManualReservationsByDate returns the active, not cancelled reservations
// of a date ordered by time.
func (db *DB) GetManualReservationsByDate(ctx context.Context, date string) ([]models.ManualReservation, error) {
	if err := validDate(date); err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `SELECT `+manualColumns+` FROM manual_reservations
              WHERE date = ? AND active = 1 AND payment_status != ?
              ORDER BY time ASC, id ASC`, date, models.PaymentCancelled)
	if err != nil {
		return nil, fmt.Errorf("failed to get manual reservations: %w", err)
	}
	defer rows.Close()

	reservations := []models.ManualReservation{}
	for rows.Next() {
		r, err := scanManualReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan manual reservation: %w", err)
		}
		reservations = append(reservations, *r)
	}
	return reservations, rows.Err()
}

// GetAuditLog lists the changes of one reservation, oldest first.
func (db *DB) GetAuditLog(ctx context.Context, reservationID int64) ([]models.AuditEntry, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, reservation_id, action, actor, details, created_at
         FROM audit_log WHERE reservation_id = ? ORDER BY id ASC`, reservationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log: %w", err)
	}
	defer rows.Close()

	entries := []models.AuditEntry{}
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(&e.ID, &e.ReservationID, &e.Action, &e.Actor, &e.Details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
