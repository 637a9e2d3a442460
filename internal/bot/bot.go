// Package bot answers staff questions about pool and restaurant occupancy in
// Telegram.
package bot

import (
	"context"
	"time"

	"aforo/internal/domain"
	"aforo/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const updateTimeout = 30 * time.Second

// RestaurantDays builds the restaurant sheet of a date.
type RestaurantDays interface {
	Day(ctx context.Context, date string) (*models.RestaurantDay, error)
}

type Bot struct {
	api        domain.TelegramBotAPI
	days       domain.DayLoader
	restaurant RestaurantDays
	allowed    map[int64]bool
	metrics    *Metrics
	logger     *zerolog.Logger
	now        func() time.Time
}

// NewBot builds the command bot. Only chats in allowedChats get answers; an
// empty list answers everyone.
func NewBot(
	api domain.TelegramBotAPI,
	days domain.DayLoader,
	restaurant RestaurantDays,
	allowedChats []int64,
	metrics *Metrics,
	logger *zerolog.Logger,
) *Bot {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	allowed := make(map[int64]bool, len(allowedChats))
	for _, id := range allowedChats {
		allowed[id] = true
	}

	return &Bot{
		api:        api,
		days:       days,
		restaurant: restaurant,
		allowed:    allowed,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
}

func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	b.logger.Info().Str("username", b.api.GetSelf().UserName).Msg("Authorized on account")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("Bot stopping...")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.processUpdate(ctx, update)
		}
	}
}

func (b *Bot) processUpdate(ctx context.Context, update tgbotapi.Update) {
	start := time.Now()
	defer func() {
		if b.metrics != nil {
			b.metrics.UpdateProcessingTime.Observe(time.Since(start).Seconds())
		}
	}()

	if update.Message == nil || update.Message.Chat == nil {
		return
	}

	updateCtx, cancel := context.WithTimeout(ctx, updateTimeout)
	defer cancel()

	l := b.logger.With().Str("request_id", uuid.NewString()).Int64("chat_id", update.Message.Chat.ID).Logger()
	updateCtx = l.WithContext(updateCtx)

	b.withRecovery(updateCtx, update.Message.Chat.ID, func() {
		if !b.isAllowed(update.Message.Chat.ID) {
			l.Warn().Msg("message from a chat that is not allowed")
			return
		}
		b.handleMessage(updateCtx, update.Message)
	})
}

func (b *Bot) isAllowed(chatID int64) bool {
	return len(b.allowed) == 0 || b.allowed[chatID]
}


// Stop ends long polling; Start returns once ctx is done.
func (b *Bot) Stop() {
	if b == nil || b.api == nil {
		return
	}
	b.api.StopReceivingUpdates()
}
