package poolimport

import (
	"errors"
	"testing"

	"aforo/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectShape(t *testing.T) {
	assert.Equal(t, MultiDay, DetectShape(multiDayGrid(), DefaultSectionMarker))
	assert.Equal(t, SingleDay, DetectShape(singleDayGrid(), DefaultSectionMarker))

	oneMarker := Grid{row("Día :", "01/06/2025"), headerRow}
	assert.Equal(t, SingleDay, DetectShape(oneMarker, DefaultSectionMarker))
}

func TestParse_MultiDay(t *testing.T) {
	res, err := Parse(multiDayGrid(), DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, MultiDay, res.Shape)
	assert.Equal(t, []string{"2025-06-01", "2025-06-02"}, res.Dates)
	assert.Len(t, res.Reservations("2025-06-01"), 3)
	assert.Len(t, res.Reservations("2025-06-02"), 3)
	assert.Equal(t, 6, res.Total)
	assert.Equal(t, 2, res.Stats.SectionMarkers)
	assert.Equal(t, 2, res.Stats.HeaderRows)

	first := res.Reservations("2025-06-01")
	assert.Equal(t, "10:00", first[0].Time)
	assert.Equal(t, models.CategoryGuests, first[0].Category)
	assert.Equal(t, "12:30", first[2].Time)
	assert.Equal(t, models.CategoryExternal, first[2].Category)

	second := res.Reservations("2025-06-02")
	assert.Equal(t, "09:00", second[0].Time)
	assert.Equal(t, "2025-06-02", second[0].Date)
	assert.Equal(t, 3, second[2].Quantity)
}

func TestParse_MultiDayHeaderResetPerSection(t *testing.T) {
	grid := Grid{
		row("Día :", "01/06/2025"),
		row("Cliente", "Hora", "Técnica"),
		row("García", "10:00", "IMSERSO"),
		row("Día :", "02/06/2025"),
		// Columns move in the second section; the old layout must not leak.
		row("Técnica", "Hora", "Nombre"),
		row("ALOJADOS", "11:00", "López"),
	}

	res, err := Parse(grid, DefaultOptions())
	require.NoError(t, err)

	second := res.Reservations("2025-06-02")
	require.Len(t, second, 1)
	assert.Equal(t, "López", second[0].Client)
	assert.Equal(t, "ALOJADOS", second[0].Technique)
	assert.Equal(t, models.CategoryGuests, second[0].Category)
}

func TestParse_MultiDayRepeatedDateKeepsFirstSeenOrder(t *testing.T) {
	grid := Grid{
		row("Día :", "02/06/2025"),
		headerRow,
		row("A", "10:00"),
		row("Día :", "01/06/2025"),
		headerRow,
		row("B", "10:00"),
		row("Día :", "02/06/2025"),
		headerRow,
		row("C", "12:00"),
	}

	res, err := Parse(grid, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-06-02", "2025-06-01"}, res.Dates)
	assert.Len(t, res.Reservations("2025-06-02"), 2)
	assert.Equal(t, 3, res.Total)
}

func TestParse_MultiDayUndatedMarkerDropsSection(t *testing.T) {
	grid := Grid{
		row("Día :", "01/06/2025"),
		headerRow,
		row("A", "10:00"),
		row("Día :", "pendiente"),
		headerRow,
		row("B", "11:00"),
		row("Día :", "03/06/2025"),
		headerRow,
		row("C", "12:00"),
	}

	res, err := Parse(grid, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-06-01", "2025-06-03"}, res.Dates)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 1, res.Stats.InvalidMarkers)
}

func TestParse_MultiDayBlankMarkerDateClosesSection(t *testing.T) {
	grid := Grid{
		row("Día :", "01/06/2025"),
		headerRow,
		row("A", "10:00"),
		row("Día :"),
		headerRow,
		row("B", "11:00"),
		row("Día :", "02/06/2025"),
		headerRow,
		row("C", "12:00"),
	}

	res, err := Parse(grid, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-06-01", "2025-06-02"}, res.Dates)
	require.Len(t, res.Reservations("2025-06-01"), 1)
	assert.Equal(t, "A", res.Reservations("2025-06-01")[0].Client)
	assert.Equal(t, 1, res.Stats.InvalidMarkers)
}

func TestParse_RowsBeforeFirstMarkerIgnored(t *testing.T) {
	grid := Grid{
		headerRow,
		row("Nadie", "10:00"),
		row("Día :", "01/06/2025"),
		headerRow,
		row("A", "10:00"),
		row("Día :", "02/06/2025"),
		headerRow,
		row("B", "10:00"),
	}

	res, err := Parse(grid, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
}

func TestParse_SkippedRowsAreNotFatal(t *testing.T) {
	grid := singleDayGrid(
		row("García", 0.41666, "12", 2, "RECORRIDO TERMAL ALOJADOS 60"),
		row("Sin hora", nil, "3", 1, "IMSERSO"),
		nil,
		row("López", "11:30", "", 1, "IMS PISCINA TERMAL 25"),
	)

	res, err := Parse(grid, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, SingleDay, res.Shape)
	assert.Equal(t, []string{"2025-06-01"}, res.Dates)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 1, res.Stats.Skipped)
	assert.Equal(t, 1, res.Stats.SkipReasons[SkipMissingTime])
	assert.Equal(t, 1, res.Stats.BlankRows)
	require.Len(t, res.Stats.Samples, 1)
	assert.Equal(t, 9, res.Stats.Samples[0].Row)
	assert.Equal(t, "Sin hora", res.Stats.Samples[0].Client)
}

func TestParse_SkippedSamplesCapped(t *testing.T) {
	data := []Row{row("García", "10:00")}
	for i := 0; i < 8; i++ {
		data = append(data, row("", "10:00"))
	}

	res, err := Parse(singleDayGrid(data...), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 8, res.Stats.Skipped)
	assert.Len(t, res.Stats.Samples, maxSkippedSamples)
}

func TestParse_SingleDayFailures(t *testing.T) {
	t.Run("MissingDateCell", func(t *testing.T) {
		grid := singleDayGrid(row("García", "10:00"))
		grid[5] = row("Fecha:")

		_, err := Parse(grid, DefaultOptions())
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMissingDateCell))

		var impErr *ImportError
		require.True(t, errors.As(err, &impErr))
		assert.Equal(t, "B6", impErr.Cell)
	})

	t.Run("InvalidDateCell", func(t *testing.T) {
		grid := singleDayGrid(row("García", "10:00"))
		grid[5] = row("Fecha:", "mañana")

		_, err := Parse(grid, DefaultOptions())
		assert.True(t, errors.Is(err, ErrInvalidDateCell))
	})

	t.Run("HeaderNotFound", func(t *testing.T) {
		grid := singleDayGrid()
		grid[7] = row("Nombre", "Habitación")

		_, err := Parse(grid, DefaultOptions())
		assert.True(t, errors.Is(err, ErrHeaderNotFound))
	})

	t.Run("EmptyImport", func(t *testing.T) {
		grid := singleDayGrid(row("", "10:00"), row("García", "nunca"))

		_, err := Parse(grid, DefaultOptions())
		assert.True(t, errors.Is(err, ErrEmptyImport))
	})
}

func TestParse_MultiDayEmptyImport(t *testing.T) {
	grid := Grid{
		row("Día :", "01/06/2025"),
		headerRow,
		row("Día :", "02/06/2025"),
		headerRow,
		row("García"),
	}

	_, err := Parse(grid, DefaultOptions())
	assert.True(t, errors.Is(err, ErrEmptyImport))
}

func TestParse_CustomDateCell(t *testing.T) {
	grid := Grid{
		row("Reservas", "", "", 45809.0),
		headerRow,
		row("García", "10:00"),
	}

	opts := DefaultOptions()
	opts.DateCell = "D1"
	res, err := Parse(grid, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-06-01"}, res.Dates)
}
