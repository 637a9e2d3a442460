package occupancy

import (
	"testing"

	"aforo/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slotTimes(occ []SlotOccupancy) []string {
	var out []string
	for _, s := range occ {
		if s.Active {
			out = append(out, s.Time)
		}
	}
	return out
}

func TestNewSlots(t *testing.T) {
	slots := DefaultSlots()
	require.Len(t, slots, 24)
	assert.Equal(t, TimeSlot{Time: "09:00", Minutes: 540}, slots[0])
	assert.Equal(t, "09:30", slots[1].Time)
	assert.Equal(t, "20:30", slots[23].Time)

	_, err := NewSlots("9h", 24, 30)
	assert.Error(t, err)
	_, err = NewSlots("09:00", 0, 30)
	assert.Error(t, err)
	_, err = NewSlots("23:00", 4, 30)
	assert.Error(t, err)
}

func TestAggregate_LongSessionSpansTwoSlots(t *testing.T) {
	pool := []models.PoolReservation{
		{ID: 1, Time: "10:00", Client: "García", Quantity: 2, DurationMinutes: 60, Category: models.CategoryGuests},
	}
	occ := Aggregate(DefaultSlots(), Bookings(pool, nil))

	require.Len(t, occ, 24)
	assert.Equal(t, []string{"10:00", "10:30"}, slotTimes(occ))

	at10, at1030 := occ[2], occ[3]
	assert.Equal(t, 2, at10.Counts.Guests)
	assert.Equal(t, 2, at1030.Total)
	assert.False(t, at10.Entries[0].CarryOver)
	assert.True(t, at1030.Entries[0].CarryOver)
}

func TestAggregate_ShortSessionOnlyStartSlot(t *testing.T) {
	pool := []models.PoolReservation{
		{ID: 1, Time: "10:00", Quantity: 3, DurationMinutes: 30, Category: models.CategorySubsidized},
	}
	occ := Aggregate(DefaultSlots(), Bookings(pool, nil))
	assert.Equal(t, []string{"10:00"}, slotTimes(occ))
	assert.Equal(t, 3, occ[2].Counts.Subsidized)
}

func TestAggregate_OffGridStart(t *testing.T) {
	// 10:15 for an hour covers the 10:30 and 11:00 slots.
	pool := []models.PoolReservation{
		{ID: 1, Time: "10:15", Quantity: 1, DurationMinutes: 60, Category: models.CategoryOther},
	}
	occ := Aggregate(DefaultSlots(), Bookings(pool, nil))
	assert.Equal(t, []string{"10:30", "11:00"}, slotTimes(occ))
	assert.True(t, occ[3].Entries[0].CarryOver)
}

func TestAggregate_ManualReservations(t *testing.T) {
	manual := []models.ManualReservation{
		{ID: 7, Time: "12:00", ClientName: "Ruiz", Adults: 2, Children: 1, PaymentStatus: models.PaymentPaid},
		{ID: 8, Time: "12:00", ClientName: "Gil", Adults: 4, PaymentStatus: models.PaymentCancelled},
	}
	occ := Aggregate(DefaultSlots(), Bookings(nil, manual))

	assert.Equal(t, []string{"12:00", "12:30"}, slotTimes(occ))
	noon := occ[6]
	assert.Equal(t, 3, noon.Counts.External)
	require.Len(t, noon.Entries, 1)
	assert.Equal(t, SourceManual, noon.Entries[0].Source)
}

func TestAggregate_MixedCategories(t *testing.T) {
	pool := []models.PoolReservation{
		{ID: 1, Time: "09:00", Quantity: 2, DurationMinutes: 60, Category: models.CategoryGuests},
		{ID: 2, Time: "09:30", Quantity: 5, DurationMinutes: 30, Category: models.CategorySubsidized},
		{ID: 3, Time: "nope", Quantity: 9, DurationMinutes: 60, Category: models.CategoryOther},
	}
	manual := []models.ManualReservation{{ID: 4, Time: "09:00", Adults: 1}}

	occ := Aggregate(DefaultSlots(), Bookings(pool, manual))
	assert.Equal(t, CategoryCounts{Guests: 2, External: 1}, occ[0].Counts)
	assert.Equal(t, CategoryCounts{Guests: 2, External: 1, Subsidized: 5}, occ[1].Counts)
	assert.Equal(t, 8, occ[1].Total)
	assert.False(t, occ[2].Active)
	assert.Empty(t, occ[2].Entries)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		total int
		level Level
		label string
	}{
		{36, LevelDanger, "full"},
		{40, LevelDanger, "full"},
		{35, LevelWarning, "high demand"},
		{26, LevelWarning, "high demand"},
		{25, LevelSuccess, "available"},
		{10, LevelSuccess, "available"},
		{0, LevelSuccess, "available"},
	}
	for _, tt := range tests {
		st := Classify(tt.total, 40)
		assert.Equal(t, tt.level, st.Level, "total=%d", tt.total)
		assert.Equal(t, tt.label, st.Label, "total=%d", tt.total)
	}
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, 25, Percentage(10, 40))
	assert.Equal(t, 100, Percentage(40, 40))
	assert.Equal(t, 100, Percentage(55, 40))
	assert.Equal(t, 3, Percentage(1, 40))
	assert.Equal(t, 0, Percentage(0, 40))
	assert.Equal(t, 100, Percentage(1, 0))
}

func TestSummarize_DeduplicatesMultiSlotBookings(t *testing.T) {
	pool := []models.PoolReservation{
		{ID: 1, Time: "10:00", Quantity: 4, DurationMinutes: 60, Category: models.CategoryGuests},
	}
	bookings := Bookings(pool, nil)
	occ := Aggregate(DefaultSlots(), bookings)

	stats := Summarize(occ, bookings, 40)
	assert.Equal(t, 4, stats.People)
	assert.Equal(t, 1, stats.Reservations)
	assert.Equal(t, 4, stats.ByCategory.Guests)
	assert.Equal(t, "10:00", stats.PeakTime)
	assert.Equal(t, 4, stats.PeakTotal)
}

func TestSummarize_PeakAndHighDemand(t *testing.T) {
	pool := []models.PoolReservation{
		{ID: 1, Time: "11:00", Quantity: 30, DurationMinutes: 30, Category: models.CategoryOther},
		{ID: 2, Time: "12:00", Quantity: 37, DurationMinutes: 30, Category: models.CategoryOther},
		{ID: 3, Time: "13:00", Quantity: 37, DurationMinutes: 30, Category: models.CategoryOther},
	}
	bookings := Bookings(pool, nil)
	stats := Summarize(Aggregate(DefaultSlots(), bookings), bookings, 40)

	assert.Equal(t, "12:00", stats.PeakTime)
	assert.Equal(t, 37, stats.PeakTotal)
	assert.Equal(t, 3, stats.HighDemandSlots)
	// (75 + 93 + 93) / 24 slots
	assert.Equal(t, 11, stats.AveragePercentage)
	assert.Equal(t, 104, stats.People)
}

func TestSummarize_EmptyDay(t *testing.T) {
	stats := Summarize(Aggregate(DefaultSlots(), nil), nil, 40)
	assert.Equal(t, DayStats{}, stats)
}

func TestBuildDay(t *testing.T) {
	pool := []models.PoolReservation{
		{ID: 1, Time: "10:00", Quantity: 30, DurationMinutes: 60, Category: models.CategoryGuests},
	}
	manual := []models.ManualReservation{{ID: 2, Time: "10:30", Adults: 6}}

	day := BuildDay("2025-06-01", DefaultSlots(), pool, manual, 40)
	require.Len(t, day.Slots, 24)
	assert.Equal(t, "2025-06-01", day.Date)

	assert.Equal(t, LevelWarning, day.Slots[2].Status.Level)
	assert.Equal(t, 36, day.Slots[3].Total)
	assert.Equal(t, LevelDanger, day.Slots[3].Status.Level)
	assert.Equal(t, 90, day.Slots[3].Status.Percentage)
	assert.Equal(t, 6, day.Slots[4].Total)
	assert.Equal(t, 36, day.Stats.People)
	assert.Equal(t, CategoryCounts{Guests: 30, External: 6}, day.Stats.ByCategory)
}
