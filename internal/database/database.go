package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"aforo/internal/models"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrInvalidDate = errors.New("invalid date")
)

type DB struct {
	*sql.DB
	logger *zerolog.Logger
	path   string
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps ":memory:" shared.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if logger != nil {
		logger.Info().Str("path", path).Msg("Database initialized")
	}
	return &DB{DB: sqlDB, logger: logger, path: path}, nil
}

// Path is the file the database was opened from.
func (db *DB) Path() string {
	return db.path
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS pool_reservations (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            batch_id TEXT NOT NULL,
            date TEXT NOT NULL,
            time TEXT NOT NULL,
            client TEXT NOT NULL,
            room TEXT,
            quantity INTEGER NOT NULL DEFAULT 1 CHECK (quantity >= 1),
            technique TEXT NOT NULL,
            duration_minutes INTEGER NOT NULL CHECK (duration_minutes IN (30, 60)),
            category TEXT NOT NULL,
            phone TEXT NOT NULL DEFAULT '',
            adults INTEGER NOT NULL DEFAULT 0,
            children INTEGER NOT NULL DEFAULT 0,
            amount TEXT NOT NULL DEFAULT '0',
            payment_status TEXT NOT NULL DEFAULT '',
            details TEXT NOT NULL DEFAULT '',
            active BOOLEAN NOT NULL DEFAULT 1,
            created_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS pool_upload_log (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            date TEXT NOT NULL,
            batch_id TEXT NOT NULL,
            record_count INTEGER NOT NULL,
            actor TEXT NOT NULL,
            source TEXT NOT NULL,
            uploaded_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS manual_reservations (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            date TEXT NOT NULL,
            time TEXT NOT NULL,
            client_name TEXT NOT NULL,
            phone TEXT NOT NULL,
            adults INTEGER NOT NULL DEFAULT 0,
            children INTEGER NOT NULL DEFAULT 0,
            lunch BOOLEAN NOT NULL DEFAULT 0,
            lunch_covers INTEGER,
            dinner BOOLEAN NOT NULL DEFAULT 0,
            dinner_covers INTEGER,
            amount TEXT NOT NULL DEFAULT '0',
            payment_status TEXT NOT NULL,
            details TEXT NOT NULL DEFAULT '',
            restaurant_comments TEXT NOT NULL DEFAULT '',
            active BOOLEAN NOT NULL DEFAULT 1,
            created_by TEXT NOT NULL,
            updated_by TEXT NOT NULL DEFAULT '',
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS audit_log (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            reservation_id INTEGER NOT NULL,
            action TEXT NOT NULL,
            actor TEXT NOT NULL,
            details TEXT NOT NULL,
            created_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS restaurant_reservations (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            date TEXT NOT NULL,
            client_name TEXT NOT NULL,
            service TEXT NOT NULL CHECK (service IN ('COMIDA', 'CENA')),
            covers INTEGER NOT NULL CHECK (covers >= 1),
            comments TEXT NOT NULL DEFAULT '',
            active BOOLEAN NOT NULL DEFAULT 1,
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS sync_queue (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            task_type TEXT NOT NULL,
            date TEXT NOT NULL,
            payload TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL DEFAULT 'pending',
            retry_count INTEGER NOT NULL DEFAULT 0,
            last_error TEXT,
            created_at DATETIME NOT NULL,
            processed_at DATETIME,
            next_retry_at DATETIME
        )`,

		`CREATE INDEX IF NOT EXISTS idx_pool_reservations_date ON pool_reservations(date, active)`,
		`CREATE INDEX IF NOT EXISTS idx_pool_upload_log_date ON pool_upload_log(date)`,
		`CREATE INDEX IF NOT EXISTS idx_manual_reservations_date ON manual_reservations(date, active)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_log_reservation ON audit_log(reservation_id)`,
		`CREATE INDEX IF NOT EXISTS idx_restaurant_reservations_date ON restaurant_reservations(date, active)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_queue_status ON sync_queue(status, next_retry_at)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// validDate rejects anything that is not a calendar date in YYYY-MM-DD form.
func validDate(date string) error {
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func notFound(err error, what string, id int64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("failed to get %s %d: %w", what, id, err)
}
