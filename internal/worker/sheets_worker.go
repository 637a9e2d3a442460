package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"aforo/internal/domain"
	"aforo/internal/events"
	"aforo/internal/metrics"
	"aforo/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// TaskPublishDay renders one date's occupancy into Sheets.
const TaskPublishDay = "publish_day"

const (
	redisQueueKey = "aforo:sheets:queue"
	deadLetterKey = "aforo:sheets:deadletter"
)

// publishPayload is persisted in SyncTask.Payload as JSON.
type publishPayload struct {
	Date string `json:"date"`
}

// SheetsWorker consumes sync_queue tasks and publishes day occupancy to Google Sheets.
type SheetsWorker struct {
	queue         domain.SyncQueue
	days          domain.DayLoader
	sheets        domain.OccupancyWriter
	events        domain.EventPublisher
	redis         *redis.Client
	retryPolicy   RetryPolicy
	local         chan models.SyncTask
	redisQueueKey string
	deadLetterKey string
	pollInterval  time.Duration
	batchSize     int
	logger        *zerolog.Logger
}

// NewSheetsWorker builds a worker with sane defaults.
func NewSheetsWorker(queue domain.SyncQueue, days domain.DayLoader, sheets domain.OccupancyWriter, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *SheetsWorker {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &SheetsWorker{
		queue:         queue,
		days:          days,
		sheets:        sheets,
		redis:         redisClient,
		retryPolicy:   retry.WithDefaults(),
		local:         make(chan models.SyncTask, 128),
		redisQueueKey: redisQueueKey,
		deadLetterKey: deadLetterKey,
		pollInterval:  2 * time.Second,
		batchSize:     20,
		logger:        logger,
	}
}

// WithEvents makes the worker announce publish results on the bus.
func (w *SheetsWorker) WithEvents(pub domain.EventPublisher) *SheetsWorker {
	w.events = pub
	return w
}

// Subscribe enqueues a publication for every date touched by a pool import
// or a manual reservation change.
func (w *SheetsWorker) Subscribe(bus *events.EventBus) {
	bus.Subscribe(events.EventPoolBatchImported, w.handleDateEvent)
	bus.Subscribe(events.EventManualCreated, w.handleDateEvent)
	bus.Subscribe(events.EventManualUpdated, w.handleDateEvent)
	bus.Subscribe(events.EventManualDeleted, w.handleDateEvent)
}

func (w *SheetsWorker) handleDateEvent(event *events.Event) error {
	var payload struct {
		Date         string `json:"date"`
		PreviousDate string `json:"previous_date"`
	}
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return fmt.Errorf("decode %s payload: %w", event.Type, err)
	}

	ctx := context.Background()
	if err := w.EnqueuePublishDay(ctx, payload.Date); err != nil {
		return err
	}
	if payload.PreviousDate != "" {
		return w.EnqueuePublishDay(ctx, payload.PreviousDate)
	}
	return nil
}

// EnqueuePublishDay persists a publish task for date and schedules it via
// redis or the in-memory queue. A date already waiting is not queued twice.
func (w *SheetsWorker) EnqueuePublishDay(ctx context.Context, date string) error {
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return fmt.Errorf("invalid date %q", date)
	}

	pending, err := w.queue.HasPendingSyncTask(ctx, TaskPublishDay, date)
	if err != nil {
		return err
	}
	if pending {
		w.logger.Debug().Str("date", date).Msg("publish already queued")
		return nil
	}

	payloadBytes, err := json.Marshal(publishPayload{Date: date})
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	task := models.SyncTask{
		TaskType:  TaskPublishDay,
		Date:      date,
		Payload:   string(payloadBytes),
		Status:    models.TaskStatusPending,
		CreatedAt: time.Now(),
	}
	if err := w.queue.CreateSyncTask(ctx, &task); err != nil {
		return fmt.Errorf("persist sync task: %w", err)
	}

	if w.redis != nil {
		if err := w.pushRedis(ctx, task); err != nil {
			w.logger.Warn().Err(err).Msg("redis push failed, fallback to memory queue")
		} else {
			return nil
		}
	}

	select {
	case w.local <- task:
	default:
		w.logger.Warn().Int64("task_id", task.ID).Msg("in-memory queue full, task left to polling")
	}
	return nil
}

// Start launches main loop; stops when ctx is done.
func (w *SheetsWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("sheets worker started")
	defer w.logger.Info().Msg("sheets worker stopped")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if t, ok := w.tryLocalQueue(); ok {
			w.processTask(ctx, &t)
			continue
		}

		if t, ok := w.tryRedis(ctx); ok {
			w.processTask(ctx, &t)
			continue
		}

		tasks, err := w.queue.GetPendingSyncTasks(ctx, w.batchSize)
		if err != nil {
			w.logger.Error().Err(err).Msg("fetch pending tasks")
			w.sleep(ctx)
			continue
		}
		if len(tasks) == 0 {
			w.sleep(ctx)
			continue
		}

		for i := range tasks {
			w.processTask(ctx, &tasks[i])
		}
	}
}

func (w *SheetsWorker) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(w.pollInterval):
	}
}

func (w *SheetsWorker) tryLocalQueue() (models.SyncTask, bool) {
	select {
	case t := <-w.local:
		return t, true
	default:
		return models.SyncTask{}, false
	}
}

func (w *SheetsWorker) tryRedis(ctx context.Context) (models.SyncTask, bool) {
	if w.redis == nil {
		return models.SyncTask{}, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, w.redisQueueKey).Result()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || errors.Is(err, redis.Nil) {
			return models.SyncTask{}, false
		}
		w.logger.Error().Err(err).Msg("redis BRPOP error")
		return models.SyncTask{}, false
	}
	if len(res) != 2 {
		return models.SyncTask{}, false
	}
	var task models.SyncTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Error().Err(err).Msg("decode redis task")
		return models.SyncTask{}, false
	}
	return task, true
}

func (w *SheetsWorker) processTask(ctx context.Context, task *models.SyncTask) {
	payload, err := w.decodePayload(task.Payload)
	if err != nil {
		w.failTask(ctx, task, fmt.Errorf("decode payload: %w", err))
		return
	}

	if err := w.handleTask(ctx, task.TaskType, payload); err != nil {
		w.retryOrFail(ctx, task, err)
		return
	}

	metrics.IncSheetsPublish("success")
	if err := w.queue.UpdateSyncTaskStatus(ctx, task.ID, models.TaskStatusCompleted, "", nil); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark completed")
	}
	w.announce(events.EventOccupancyPublished, payload.Date, "")
}

func (w *SheetsWorker) handleTask(ctx context.Context, taskType string, payload publishPayload) error {
	switch taskType {
	case TaskPublishDay:
		if payload.Date == "" {
			return errors.New("date missing")
		}
		day, err := w.days.GetDay(ctx, payload.Date)
		if err != nil {
			return fmt.Errorf("load occupancy: %w", err)
		}
		return w.sheets.WriteDayOccupancy(ctx, day)
	default:
		return fmt.Errorf("unknown task type: %s", taskType)
	}
}

func (w *SheetsWorker) retryOrFail(ctx context.Context, task *models.SyncTask, cause error) {
	attempt := task.RetryCount + 1
	if w.retryPolicy.Exhausted(attempt) {
		w.failTask(ctx, task, cause)
		return
	}

	metrics.IncSheetsPublish("retry")
	nextTime := time.Now().Add(w.retryPolicy.NextDelay(attempt))
	if err := w.queue.UpdateSyncTaskStatus(ctx, task.ID, models.TaskStatusRetry, cause.Error(), &nextTime); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark retry")
	}
	w.logger.Warn().Err(cause).Int64("task_id", task.ID).Int("attempt", attempt).Time("next_retry_at", nextTime).Msg("publish failed, will retry")
}

func (w *SheetsWorker) failTask(ctx context.Context, task *models.SyncTask, cause error) {
	metrics.IncSheetsPublish("failed")
	if err := w.queue.UpdateSyncTaskStatus(ctx, task.ID, models.TaskStatusFailed, cause.Error(), nil); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark failed")
	}
	w.logger.Error().Err(cause).Int64("task_id", task.ID).Str("date", task.Date).Msg("publish failed permanently")
	w.pushDeadLetter(ctx, task)
	w.announce(events.EventOccupancyPublishFail, task.Date, cause.Error())
}

func (w *SheetsWorker) announce(eventType, date, errMsg string) {
	if w.events == nil {
		return
	}
	if err := w.events.PublishJSON(eventType, events.DayPayload{Date: date, Error: errMsg}); err != nil {
		w.logger.Error().Err(err).Str("event_type", eventType).Msg("publish event error")
	}
}

func (w *SheetsWorker) decodePayload(raw string) (publishPayload, error) {
	var payload publishPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return payload, err
	}
	return payload, nil
}

func (w *SheetsWorker) pushRedis(ctx context.Context, task models.SyncTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, w.redisQueueKey, data).Err()
}

func (w *SheetsWorker) pushDeadLetter(ctx context.Context, task *models.SyncTask) {
	if w.redis == nil {
		return
	}
	data, err := json.Marshal(task)
	if err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("encode deadletter")
		return
	}
	if err := w.redis.LPush(ctx, w.deadLetterKey, data).Err(); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("deadletter push")
	}
}
