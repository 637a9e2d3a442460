package occupancy

import (
	"time"

	"aforo/internal/models"
)

// SlotView is a slot with its capacity status.
type SlotView struct {
	SlotOccupancy
	Status Status `json:"status"`
}

// Day is the occupancy picture of one date.
type Day struct {
	Date        string     `json:"date"`
	MaxCapacity int        `json:"max_capacity"`
	Slots       []SlotView `json:"slots"`
	Stats       DayStats   `json:"stats"`
	LastUpload  *time.Time `json:"last_upload,omitempty"`
}

// BuildDay runs the aggregator and the classifier over one date.
func BuildDay(date string, grid []TimeSlot, pool []models.PoolReservation, manual []models.ManualReservation, maxCapacity int) *Day {
	bookings := Bookings(pool, manual)
	slots := Aggregate(grid, bookings)

	views := make([]SlotView, len(slots))
	for i, s := range slots {
		views[i] = SlotView{SlotOccupancy: s, Status: Classify(s.Total, maxCapacity)}
	}
	return &Day{
		Date:        date,
		MaxCapacity: maxCapacity,
		Slots:       views,
		Stats:       Summarize(slots, bookings, maxCapacity),
	}
}
