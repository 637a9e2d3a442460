package domain

import (
	"context"
	"time"

	"aforo/internal/models"
	"aforo/internal/occupancy"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type PoolStore interface {
	GetPoolReservationsByDate(ctx context.Context, date string) ([]models.PoolReservation, error)
	BulkReplacePool(ctx context.Context, date string, records []models.PoolReservation, info models.UploadInfo) ([]models.PoolReservation, error)
	BulkReplacePoolMultiple(ctx context.Context, byDate map[string][]models.PoolReservation, info models.UploadInfo) (map[string][]models.PoolReservation, error)
	GetLastUploadTime(ctx context.Context, date string) (*time.Time, error)
	GetUploadLog(ctx context.Context, date string, limit int) ([]models.UploadLogEntry, error)
	GetPoolStats(ctx context.Context, date string) (*models.PoolStats, error)
}

type ManualStore interface {
	CreateManualReservation(ctx context.Context, r *models.ManualReservation, actor string) error
	GetManualReservation(ctx context.Context, id int64) (*models.ManualReservation, error)
	UpdateManualReservation(ctx context.Context, r *models.ManualReservation, actor string) error
	DeleteManualReservation(ctx context.Context, id int64, actor string) (*models.ManualReservation, error)
	GetManualReservationsByDate(ctx context.Context, date string) ([]models.ManualReservation, error)
	GetAuditLog(ctx context.Context, reservationID int64) ([]models.AuditEntry, error)
}

type RestaurantStore interface {
	CreateRestaurantReservation(ctx context.Context, r *models.RestaurantReservation) error
	GetRestaurantReservation(ctx context.Context, id int64) (*models.RestaurantReservation, error)
	UpdateRestaurantReservation(ctx context.Context, r *models.RestaurantReservation) error
	DeleteRestaurantReservation(ctx context.Context, id int64) error
	GetRestaurantReservationsByDate(ctx context.Context, date string) ([]models.RestaurantReservation, error)
}

type SyncQueue interface {
	CreateSyncTask(ctx context.Context, task *models.SyncTask) error
	HasPendingSyncTask(ctx context.Context, taskType, date string) (bool, error)
	GetPendingSyncTasks(ctx context.Context, limit int) ([]models.SyncTask, error)
	UpdateSyncTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error
}

// ImportLocker serializes imports of the same date across processes.
type ImportLocker interface {
	Acquire(ctx context.Context, date, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, date, owner string) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramBotAPI is the part of the Bot API used by the command bot.
type TelegramBotAPI interface {
	TelegramSender
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	GetSelf() tgbotapi.User
}

// OccupancyWriter renders a day of occupancy somewhere outside the service.
type OccupancyWriter interface {
	WriteDayOccupancy(ctx context.Context, day *occupancy.Day) error
}

// DayLoader builds the occupancy picture of a date.
type DayLoader interface {
	GetDay(ctx context.Context, date string) (*occupancy.Day, error)
}

type SyncWorker interface {
	EnqueuePublishDay(ctx context.Context, date string) error
}
