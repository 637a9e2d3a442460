package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PoolReservation is one imported pool booking. Imported rows are never edited
// individually; a new import for the date deactivates the previous batch.
type PoolReservation struct {
	ID              int64           `json:"id"`
	BatchID         string          `json:"batch_id,omitempty"`
	Date            string          `json:"date"`
	Time            string          `json:"time"`
	Client          string          `json:"client"`
	Room            *string         `json:"room,omitempty"`
	Quantity        int             `json:"quantity"`
	Technique       string          `json:"technique"`
	DurationMinutes int             `json:"duration_minutes"`
	Category        Category        `json:"category"`
	Phone           string          `json:"phone,omitempty"`
	Adults          int             `json:"adults,omitempty"`
	Children        int             `json:"children,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentStatus   string          `json:"payment_status,omitempty"`
	Details         string          `json:"details,omitempty"`
	Active          bool            `json:"active"`
	CreatedAt       time.Time       `json:"created_at"`
}

// UploadLogEntry records one bulk replace of a date.
type UploadLogEntry struct {
	ID          int64     `json:"id"`
	Date        string    `json:"date"`
	BatchID     string    `json:"batch_id"`
	RecordCount int       `json:"record_count"`
	Actor       string    `json:"actor"`
	Source      string    `json:"source"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// PoolStats summarizes the active batch of a date.
type PoolStats struct {
	Reservations  int `json:"reservations"`
	People        int `json:"people"`
	ShortSessions int `json:"short_sessions"`
	LongSessions  int `json:"long_sessions"`
}

// UploadInfo labels the upload log entry written by an import.
type UploadInfo struct {
	Actor  string
	Source string
}

func (u UploadInfo) WithDefaults() UploadInfo {
	if u.Actor == "" {
		u.Actor = SystemActor
	}
	if u.Source == "" {
		u.Source = DefaultUploadSource
	}
	return u
}
