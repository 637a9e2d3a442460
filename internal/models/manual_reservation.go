package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ManualReservation is a pool booking entered by staff.
type ManualReservation struct {
	ID                 int64           `json:"id"`
	Date               string          `json:"date"`
	Time               string          `json:"time"`
	ClientName         string          `json:"client_name"`
	Phone              string          `json:"phone"`
	Adults             int             `json:"adults"`
	Children           int             `json:"children"`
	Lunch              bool            `json:"lunch"`
	LunchCovers        *int            `json:"lunch_covers,omitempty"`
	Dinner             bool            `json:"dinner"`
	DinnerCovers       *int            `json:"dinner_covers,omitempty"`
	Amount             decimal.Decimal `json:"amount"`
	PaymentStatus      string          `json:"payment_status"`
	Details            string          `json:"details,omitempty"`
	RestaurantComments string          `json:"restaurant_comments,omitempty"`
	Active             bool            `json:"active"`
	CreatedBy          string          `json:"created_by"`
	UpdatedBy          string          `json:"updated_by,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// Headcount is the number of people the reservation brings to the pool.
func (r *ManualReservation) Headcount() int {
	return r.Adults + r.Children
}

// AuditEntry is one change to a manual reservation.
type AuditEntry struct {
	ID            int64     `json:"id"`
	ReservationID int64     `json:"reservation_id"`
	Action        string    `json:"action"`
	Actor         string    `json:"actor"`
	Details       string    `json:"details"`
	CreatedAt     time.Time `json:"created_at"`
}
