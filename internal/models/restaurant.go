package models

import "time"

type RestaurantReservation struct {
	ID         int64     `json:"id"`
	Date       string    `json:"date"`
	ClientName string    `json:"client_name"`
	Service    string    `json:"service"`
	Covers     int       `json:"covers"`
	Comments   string    `json:"comments,omitempty"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Restaurant reservation origins.
const (
	OriginRestaurant = "RESTAURANTE"
	OriginCircuit    = "CIRCUITO"
)

// RestaurantEntry is a row of the restaurant day sheet: either a direct
// restaurant booking or a pool reservation that added a meal.
type RestaurantEntry struct {
	ID         int64  `json:"id"`
	Origin     string `json:"origin"`
	ClientName string `json:"client_name"`
	Covers     int    `json:"covers"`
	Comments   string `json:"comments,omitempty"`
}

type RestaurantDay struct {
	Date         string            `json:"date"`
	Lunch        []RestaurantEntry `json:"lunch"`
	Dinner       []RestaurantEntry `json:"dinner"`
	LunchCovers  int               `json:"lunch_covers"`
	DinnerCovers int               `json:"dinner_covers"`
}
