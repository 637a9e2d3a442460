package notify

import (
	"encoding/json"
	"fmt"

	"aforo/internal/config"
	"aforo/internal/domain"
	"aforo/internal/events"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// TelegramNotifier posts import summaries to the configured chats.
type TelegramNotifier struct {
	bot     domain.TelegramSender
	chatIDs []int64
	logger  *zerolog.Logger
}

func NewTelegramNotifier(bot domain.TelegramSender, chatIDs []int64, logger *zerolog.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		bot:     bot,
		chatIDs: chatIDs,
		logger:  logger,
	}
}

// NewBot connects to the Bot API. It returns nil when no token is configured.
func NewBot(cfg config.TelegramConfig) (*tgbotapi.BotAPI, error) {
	if cfg.BotToken == "" {
		return nil, nil
	}
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	bot.Debug = cfg.Debug
	return bot, nil
}

// Subscribe registers the notifier on the bus.
func (n *TelegramNotifier) Subscribe(bus *events.EventBus) {
	bus.Subscribe(events.EventPoolBatchImported, n.HandlePoolBatch)
}

func (n *TelegramNotifier) HandlePoolBatch(event *events.Event) error {
	var payload events.PoolBatchPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", event.Type, err)
	}
	return n.Broadcast(ImportSummaryText(payload))
}

// Broadcast sends text to every chat and returns the last failure.
func (n *TelegramNotifier) Broadcast(text string) error {
	var lastErr error
	for _, chatID := range n.chatIDs {
		msg := tgbotapi.NewMessage(chatID, text)
		if _, err := n.bot.Send(msg); err != nil {
			n.logger.Error().Err(err).Int64("chat_id", chatID).Msg("telegram send failed")
			lastErr = err
		}
	}
	return lastErr
}

func ImportSummaryText(p events.PoolBatchPayload) string {
	text := fmt.Sprintf("Imported %d reservations (%d people) for %s", p.Count, p.People, p.Date)
	if p.Actor != "" {
		text += fmt.Sprintf("\nby %s", p.Actor)
	}
	if p.Source != "" {
		text += fmt.Sprintf(" from %s", p.Source)
	}
	return text
}
