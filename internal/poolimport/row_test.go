package poolimport

import (
	"errors"
	"testing"

	"aforo/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var basicColumns = ColumnMap{
	FieldClient:    0,
	FieldTime:      1,
	FieldRoom:      2,
	FieldQuantity:  3,
	FieldTechnique: 4,
}

func TestParseRow_GuestReservation(t *testing.T) {
	rec, err := ParseRow(row("García", 0.41666, "12", 2, "RECORRIDO TERMAL ALOJADOS 60"), basicColumns, "2025-06-01", models.DefaultTechnique)
	require.NoError(t, err)

	assert.Equal(t, "2025-06-01", rec.Date)
	assert.Equal(t, "10:00", rec.Time)
	assert.Equal(t, "García", rec.Client)
	require.NotNil(t, rec.Room)
	assert.Equal(t, "12", *rec.Room)
	assert.Equal(t, 2, rec.Quantity)
	assert.Equal(t, 60, rec.DurationMinutes)
	assert.Equal(t, models.CategoryGuests, rec.Category)
	assert.True(t, rec.Active)
}

func TestParseRow_SubsidizedReservation(t *testing.T) {
	rec, err := ParseRow(row("López", "11:30", "", 1, "IMS PISCINA TERMAL 25"), basicColumns, "2025-06-01", models.DefaultTechnique)
	require.NoError(t, err)
	assert.Equal(t, 30, rec.DurationMinutes)
	assert.Equal(t, models.CategorySubsidized, rec.Category)
	assert.Nil(t, rec.Room)
}

func TestParseRow_Defaults(t *testing.T) {
	cols := ColumnMap{FieldClient: 0, FieldTime: 1}
	rec, err := ParseRow(row("Sanz", "17:00"), cols, "2025-06-01", models.DefaultTechnique)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Quantity)
	assert.Nil(t, rec.Room)
	assert.Equal(t, models.DefaultTechnique, rec.Technique)
	assert.Equal(t, 60, rec.DurationMinutes)
	assert.Equal(t, models.CategoryOther, rec.Category)
}

func TestParseRow_Quantity(t *testing.T) {
	tests := []struct {
		name string
		cell any
		want int
	}{
		{"number", 3, 3},
		{"fractional number", 2.7, 2},
		{"text with suffix", "4 pax", 4},
		{"zero", 0, 1},
		{"negative", -2, 1},
		{"words", "dos", 1},
		{"empty", nil, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := ParseRow(row("Ruiz", "10:00", "", tt.cell, "X"), basicColumns, "2025-06-01", models.DefaultTechnique)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rec.Quantity)
		})
	}
}

func TestParseRow_ExtendedColumns(t *testing.T) {
	cols := ColumnMap{
		FieldClient:        0,
		FieldTime:          1,
		FieldPhone:         2,
		FieldAdults:        3,
		FieldChildren:      4,
		FieldAmount:        5,
		FieldPaymentStatus: 6,
		FieldDetails:       7,
	}
	rec, err := ParseRow(row("Gil", "10:00", " 600111222 ", 2, "1", "45,50 €", "Pagado", "Cumpleaños"), cols, "2025-06-01", models.DefaultTechnique)
	require.NoError(t, err)
	assert.Equal(t, "600111222", rec.Phone)
	assert.Equal(t, 2, rec.Adults)
	assert.Equal(t, 1, rec.Children)
	assert.True(t, decimal.RequireFromString("45.50").Equal(rec.Amount))
	assert.Equal(t, "Pagado", rec.PaymentStatus)
	assert.Equal(t, "Cumpleaños", rec.Details)
}

func TestParseRow_Skips(t *testing.T) {
	tests := []struct {
		name   string
		row    Row
		reason SkipReason
	}{
		{"missing client", row("", "10:00"), SkipMissingClient},
		{"blank client", row("   ", "10:00"), SkipMissingClient},
		{"missing time", row("García"), SkipMissingTime},
		{"unparseable time", row("García", "mañana"), SkipInvalidTime},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRow(tt.row, basicColumns, "2025-06-01", models.DefaultTechnique)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnparseableRow))

			var rowErr *RowError
			require.True(t, errors.As(err, &rowErr))
			assert.Equal(t, tt.reason, rowErr.Reason)
		})
	}
}
