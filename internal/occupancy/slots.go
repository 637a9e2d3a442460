// Package occupancy folds a day's reservations into the fixed half-hour grid
// of the pool and grades every slot against the pool capacity.
package occupancy

import (
	"fmt"

	"aforo/internal/poolimport"
)

// Reference grid: 24 slots of 30 minutes from 09:00.
const (
	DefaultSlotStart   = "09:00"
	DefaultSlotCount   = 24
	DefaultSlotMinutes = 30
)

// TimeSlot is one point of the daily grid.
type TimeSlot struct {
	Time    string `json:"time"`
	Minutes int    `json:"-"`
}

// NewSlots builds count slots starting at start, step minutes apart.
func NewSlots(start string, count, step int) ([]TimeSlot, error) {
	first, ok := poolimport.ClockMinutes(start)
	if !ok {
		return nil, fmt.Errorf("invalid slot start %q", start)
	}
	if count <= 0 || step <= 0 {
		return nil, fmt.Errorf("invalid slot grid: count=%d step=%d", count, step)
	}
	if last := first + (count-1)*step; last >= 24*60 {
		return nil, fmt.Errorf("slot grid runs past midnight: last slot at minute %d", last)
	}

	slots := make([]TimeSlot, count)
	for i := range slots {
		m := first + i*step
		slots[i] = TimeSlot{Time: fmt.Sprintf("%02d:%02d", m/60, m%60), Minutes: m}
	}
	return slots, nil
}

func DefaultSlots() []TimeSlot {
	slots, err := NewSlots(DefaultSlotStart, DefaultSlotCount, DefaultSlotMinutes)
	if err != nil {
		panic(err)
	}
	return slots
}
