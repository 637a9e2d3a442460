package service

import (
	"context"
	"time"

	"aforo/internal/models"

	"github.com/stretchr/testify/mock"
)

type mockPoolStore struct {
	mock.Mock
}

func (m *mockPoolStore) GetPoolReservationsByDate(ctx context.Context, date string) ([]models.PoolReservation, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PoolReservation), args.Error(1)
}

func (m *mockPoolStore) BulkReplacePool(ctx context.Context, date string, records []models.PoolReservation, info models.UploadInfo) ([]models.PoolReservation, error) {
	args := m.Called(ctx, date, records, info)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PoolReservation), args.Error(1)
}

func (m *mockPoolStore) BulkReplacePoolMultiple(ctx context.Context, byDate map[string][]models.PoolReservation, info models.UploadInfo) (map[string][]models.PoolReservation, error) {
	args := m.Called(ctx, byDate, info)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string][]models.PoolReservation), args.Error(1)
}

func (m *mockPoolStore) GetLastUploadTime(ctx context.Context, date string) (*time.Time, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*time.Time), args.Error(1)
}

func (m *mockPoolStore) GetUploadLog(ctx context.Context, date string, limit int) ([]models.UploadLogEntry, error) {
	args := m.Called(ctx, date, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.UploadLogEntry), args.Error(1)
}

func (m *mockPoolStore) GetPoolStats(ctx context.Context, date string) (*models.PoolStats, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PoolStats), args.Error(1)
}

type mockManualStore struct {
	mock.Mock
}

func (m *mockManualStore) CreateManualReservation(ctx context.Context, r *models.ManualReservation, actor string) error {
	return m.Called(ctx, r, actor).Error(0)
}

func (m *mockManualStore) GetManualReservation(ctx context.Context, id int64) (*models.ManualReservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ManualReservation), args.Error(1)
}

func (m *mockManualStore) UpdateManualReservation(ctx context.Context, r *models.ManualReservation, actor string) error {
	return m.Called(ctx, r, actor).Error(0)
}

func (m *mockManualStore) DeleteManualReservation(ctx context.Context, id int64, actor string) (*models.ManualReservation, error) {
	args := m.Called(ctx, id, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ManualReservation), args.Error(1)
}

func (m *mockManualStore) GetManualReservationsByDate(ctx context.Context, date string) ([]models.ManualReservation, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ManualReservation), args.Error(1)
}

func (m *mockManualStore) GetAuditLog(ctx context.Context, reservationID int64) ([]models.AuditEntry, error) {
	args := m.Called(ctx, reservationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AuditEntry), args.Error(1)
}

type mockRestaurantStore struct {
	mock.Mock
}

func (m *mockRestaurantStore) CreateRestaurantReservation(ctx context.Context, r *models.RestaurantReservation) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockRestaurantStore) GetRestaurantReservation(ctx context.Context, id int64) (*models.RestaurantReservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RestaurantReservation), args.Error(1)
}

func (m *mockRestaurantStore) UpdateRestaurantReservation(ctx context.Context, r *models.RestaurantReservation) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockRestaurantStore) DeleteRestaurantReservation(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockRestaurantStore) GetRestaurantReservationsByDate(ctx context.Context, date string) ([]models.RestaurantReservation, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RestaurantReservation), args.Error(1)
}

type mockLocker struct {
	mock.Mock
}

func (m *mockLocker) Acquire(ctx context.Context, date, owner string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, date, owner, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *mockLocker) Release(ctx context.Context, date, owner string) error {
	return m.Called(ctx, date, owner).Error(0)
}

type mockEventPublisher struct {
	mock.Mock
}

func (m *mockEventPublisher) PublishJSON(eventType string, payload interface{}) error {
	return m.Called(eventType, payload).Error(0)
}
