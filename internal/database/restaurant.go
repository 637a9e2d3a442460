package database

import (
	"context"
	"fmt"
	"time"

	"aforo/internal/models"
)

const restaurantColumns = `id, date, client_name, service, covers, comments, active, created_at, updated_at`

func scanRestaurant(s rowScanner) (*models.RestaurantReservation, error) {
	var r models.RestaurantReservation
	if err := s.Scan(&r.ID, &r.Date, &r.ClientName, &r.Service, &r.Covers, &r.Comments, &r.Active,
		&r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func (db *DB) CreateRestaurantReservation(ctx context.Context, r *models.RestaurantReservation) error {
	if err := validDate(r.Date); err != nil {
		return err
	}
	now := time.Now()
	result, err := db.ExecContext(ctx, `INSERT INTO restaurant_reservations
				(date, client_name, service, covers, comments, active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, 1, ?, ?)`,
		r.Date, r.ClientName, r.Service, r.Covers, r.Comments, now, now)
	if err != nil {
		return fmt.Errorf("failed to create restaurant reservation: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	r.ID = id
	r.Active = true
	r.CreatedAt = now
	r.UpdatedAt = now
	return nil
}

func (db *DB) GetRestaurantReservation(ctx context.Context, id int64) (*models.RestaurantReservation, error) {
	r, err := scanRestaurant(db.QueryRowContext(ctx,
		`SELECT `+restaurantColumns+` FROM restaurant_reservations WHERE id = ? AND active = 1`, id))
	if err != nil {
		return nil, notFound(err, "restaurant reservation", id)
	}
	return r, nil
}

func (db *DB) UpdateRestaurantReservation(ctx context.Context, r *models.RestaurantReservation) error {
	if err := validDate(r.Date); err != nil {
		return err
	}
	now := time.Now()
	result, err := db.ExecContext(ctx, `UPDATE restaurant_reservations
            SET date = ?, client_name = ?, service = ?, covers = ?, comments = ?, updated_at = ?
            WHERE id = ? AND active = 1`,
		r.Date, r.ClientName, r.Service, r.Covers, r.Comments, now, r.ID)
	if err != nil {
		return fmt.Errorf("failed to update restaurant reservation: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("restaurant reservation %d: %w", r.ID, ErrNotFound)
	}
	r.Active = true
	r.UpdatedAt = now
	return nil
}

func (db *DB) DeleteRestaurantReservation(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx,
		`UPDATE restaurant_reservations SET active = 0, updated_at = ? WHERE id = ? AND active = 1`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete restaurant reservation: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("restaurant reservation %d: %w", id, ErrNotFound)
	}
	return nil
}

// GetRestaurantReservationsByDate returns active reservations, lunch first.
func (db *DB) GetRestaurantReservationsByDate(ctx context.Context, date string) ([]models.RestaurantReservation, error) {
	if err := validDate(date); err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `SELECT `+restaurantColumns+` FROM restaurant_reservations
              WHERE date = ? AND active = 1
              ORDER BY CASE service WHEN 'COMIDA' THEN 0 ELSE 1 END, id ASC`, date)
	if err != nil {
		return nil, fmt.Errorf("failed to get restaurant reservations: %w", err)
	}
	defer rows.Close()

	reservations := []models.RestaurantReservation{}
	for rows.Next() {
		r, err := scanRestaurant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan restaurant reservation: %w", err)
		}
		reservations = append(reservations, *r)
	}
	return reservations, rows.Err()
}
