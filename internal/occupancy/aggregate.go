package occupancy

import (
	"aforo/internal/models"
	"aforo/internal/poolimport"
)

// Source tells where a booking came from.
type Source string

const (
	SourceExcel  Source = "EXCEL"
	SourceManual Source = "MANUAL"
)

// Booking is the common shape of imported and manual reservations as seen by
// the grid.
type Booking struct {
	Source          Source
	ReservationID   int64
	Client          string
	Time            string
	DurationMinutes int
	Category        models.Category
	Headcount       int
}

// FromPool adapts an imported reservation. It contributes its quantity.
func FromPool(r *models.PoolReservation) Booking {
	return Booking{
		Source:          SourceExcel,
		ReservationID:   r.ID,
		Client:          r.Client,
		Time:            r.Time,
		DurationMinutes: r.DurationMinutes,
		Category:        r.Category,
		Headcount:       r.Quantity,
	}
}

// FromManual adapts a staff-entered reservation: external visitors staying for
// one hour, counted by adults plus children.
func FromManual(r *models.ManualReservation) Booking {
	return Booking{
		Source:          SourceManual,
		ReservationID:   r.ID,
		Client:          r.ClientName,
		Time:            r.Time,
		DurationMinutes: models.ManualDurationMinutes,
		Category:        models.CategoryExternal,
		Headcount:       r.Headcount(),
	}
}

// Bookings merges both reservation sets, imported first. Cancelled manual
// reservations are left out.
func Bookings(pool []models.PoolReservation, manual []models.ManualReservation) []Booking {
	out := make([]Booking, 0, len(pool)+len(manual))
	for i := range pool {
		out = append(out, FromPool(&pool[i]))
	}
	for i := range manual {
		if manual[i].PaymentStatus == models.PaymentCancelled {
			continue
		}
		out = append(out, FromManual(&manual[i]))
	}
	return out
}

// Occupies reports whether the booking is in the pool at minute m of the day:
// m in [start, start+duration).
func (b Booking) Occupies(m int) bool {
	start, ok := poolimport.ClockMinutes(b.Time)
	if !ok {
		return false
	}
	return m >= start && m < start+b.DurationMinutes
}

// CategoryCounts holds a headcount per category.
type CategoryCounts struct {
	Guests     int `json:"guests"`
	External   int `json:"external"`
	Subsidized int `json:"subsidized"`
	Other      int `json:"other"`
}

func (c *CategoryCounts) Add(cat models.Category, n int) {
	switch cat {
	case models.CategoryGuests:
		c.Guests += n
	case models.CategoryExternal:
		c.External += n
	case models.CategorySubsidized:
		c.Subsidized += n
	default:
		c.Other += n
	}
}

func (c CategoryCounts) Get(cat models.Category) int {
	switch cat {
	case models.CategoryGuests:
		return c.Guests
	case models.CategoryExternal:
		return c.External
	case models.CategorySubsidized:
		return c.Subsidized
	default:
		return c.Other
	}
}

func (c CategoryCounts) Total() int {
	return c.Guests + c.External + c.Subsidized + c.Other
}

// Contribution is one booking present in a slot. CarryOver marks bookings that
// started in an earlier slot; they still count in full.
type Contribution struct {
	Source        Source          `json:"source"`
	ReservationID int64           `json:"reservation_id"`
	Client        string          `json:"client"`
	Time          string          `json:"time"`
	Category      models.Category `json:"category"`
	Headcount     int             `json:"headcount"`
	CarryOver     bool            `json:"carry_over"`
}

type SlotOccupancy struct {
	Time    string         `json:"time"`
	Counts  CategoryCounts `json:"counts"`
	Total   int            `json:"total"`
	Active  bool           `json:"active"`
	Entries []Contribution `json:"entries"`
}

// Aggregate returns one SlotOccupancy per slot, in slot order, including empty
// slots. Bookings whose time cannot be read occupy nothing.
func Aggregate(slots []TimeSlot, bookings []Booking) []SlotOccupancy {
	out := make([]SlotOccupancy, len(slots))
	for i, slot := range slots {
		occ := SlotOccupancy{Time: slot.Time, Entries: []Contribution{}}
		for _, b := range bookings {
			if !b.Occupies(slot.Minutes) {
				continue
			}
			occ.Counts.Add(b.Category, b.Headcount)
			occ.Entries = append(occ.Entries, Contribution{
				Source:        b.Source,
				ReservationID: b.ReservationID,
				Client:        b.Client,
				Time:          b.Time,
				Category:      b.Category,
				Headcount:     b.Headcount,
				CarryOver:     b.Time != slot.Time,
			})
		}
		occ.Total = occ.Counts.Total()
		occ.Active = occ.Total > 0
		out[i] = occ
	}
	return out
}
