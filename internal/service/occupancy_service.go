package service

import (
	"context"
	"fmt"
	"time"

	"aforo/internal/config"
	"aforo/internal/domain"
	"aforo/internal/models"
	"aforo/internal/occupancy"

	"github.com/rs/zerolog"
)

type OccupancyService struct {
	pool        domain.PoolStore
	manual      domain.ManualStore
	slots       []occupancy.TimeSlot
	maxCapacity int
	logger      *zerolog.Logger
}

func NewOccupancyService(pool domain.PoolStore, manual domain.ManualStore, cfg config.PoolConfig, logger *zerolog.Logger) (*OccupancyService, error) {
	slots, err := occupancy.NewSlots(cfg.SlotStart, cfg.SlotCount, cfg.SlotMinutes)
	if err != nil {
		return nil, fmt.Errorf("failed to build slot grid: %w", err)
	}
	maxCapacity := cfg.MaxCapacity
	if maxCapacity <= 0 {
		maxCapacity = models.DefaultMaxCapacity
	}
	return &OccupancyService{
		pool:        pool,
		manual:      manual,
		slots:       slots,
		maxCapacity: maxCapacity,
		logger:      logger,
	}, nil
}

func (s *OccupancyService) Slots() []occupancy.TimeSlot {
	return s.slots
}

func (s *OccupancyService) MaxCapacity() int {
	return s.maxCapacity
}

// GetDay builds the occupancy of a date from the active import batch and the
// manual reservations.
func (s *OccupancyService) GetDay(ctx context.Context, date string) (*occupancy.Day, error) {
	if err := ValidateDate(date); err != nil {
		return nil, err
	}

	pool, err := s.pool.GetPoolReservationsByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	manual, err := s.manual.GetManualReservationsByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	last, err := s.pool.GetLastUploadTime(ctx, date)
	if err != nil {
		return nil, err
	}

	day := occupancy.BuildDay(date, s.slots, pool, manual, s.maxCapacity)
	day.LastUpload = last

	s.logger.Debug().
		Str("date", date).
		Int("pool", len(pool)).
		Int("manual", len(manual)).
		Int("peak", day.Stats.PeakTotal).
		Msg("occupancy built")
	return day, nil
}

// ValidateDate accepts only YYYY-MM-DD calendar dates.
func ValidateDate(date string) error {
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return invalidField("date", "expected YYYY-MM-DD")
	}
	return nil
}
