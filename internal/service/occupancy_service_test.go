package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"aforo/internal/config"
	"aforo/internal/logging"
	"aforo/internal/models"
	"aforo/internal/occupancy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPoolConfig() config.PoolConfig {
	return config.PoolConfig{MaxCapacity: 10, SlotStart: "09:00", SlotCount: 4, SlotMinutes: 30}
}

func TestOccupancyService_GetDay(t *testing.T) {
	pool := new(mockPoolStore)
	manual := new(mockManualStore)
	svc, err := NewOccupancyService(pool, manual, testPoolConfig(), logging.Component(nil, "test"))
	require.NoError(t, err)
	ctx := context.Background()

	uploaded := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	pool.On("GetPoolReservationsByDate", ctx, "2025-06-01").Return([]models.PoolReservation{
		{ID: 1, Time: "09:00", Client: "García", Quantity: 4, DurationMinutes: 60, Category: models.CategoryGuests},
	}, nil).Once()
	manual.On("GetManualReservationsByDate", ctx, "2025-06-01").Return([]models.ManualReservation{
		{ID: 2, Time: "09:30", ClientName: "Ruiz", Adults: 5},
	}, nil).Once()
	pool.On("GetLastUploadTime", ctx, "2025-06-01").Return(&uploaded, nil).Once()

	day, err := svc.GetDay(ctx, "2025-06-01")
	require.NoError(t, err)

	require.Len(t, day.Slots, 4)
	assert.Equal(t, 4, day.Slots[0].Total)
	assert.Equal(t, 9, day.Slots[1].Total)
	assert.Equal(t, occupancy.LevelDanger, day.Slots[1].Status.Level)
	assert.Equal(t, 5, day.Slots[2].Total)
	assert.Equal(t, "09:30", day.Stats.PeakTime)
	assert.Equal(t, 9, day.Stats.People)
	assert.Equal(t, &uploaded, day.LastUpload)

	pool.AssertExpectations(t)
	manual.AssertExpectations(t)
}

func TestOccupancyService_Errors(t *testing.T) {
	_, err := NewOccupancyService(nil, nil, config.PoolConfig{SlotStart: "25:00", SlotCount: 1, SlotMinutes: 30}, nil)
	assert.Error(t, err)

	pool := new(mockPoolStore)
	svc, err := NewOccupancyService(pool, new(mockManualStore), testPoolConfig(), logging.Component(nil, "test"))
	require.NoError(t, err)
	assert.Equal(t, 10, svc.MaxCapacity())

	_, err = svc.GetDay(context.Background(), "tomorrow")
	assert.True(t, errors.Is(err, ErrValidation))

	pool.On("GetPoolReservationsByDate", context.Background(), "2025-06-01").Return(nil, errors.New("db down")).Once()
	_, err = svc.GetDay(context.Background(), "2025-06-01")
	assert.EqualError(t, err, "db down")
}
