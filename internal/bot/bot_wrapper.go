package bot

import (
	"aforo/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type telegramAPI struct {
	*tgbotapi.BotAPI
}

func (t telegramAPI) GetSelf() tgbotapi.User {
	return t.Self
}

// NewTelegramAPI exposes a connected Bot API as domain.TelegramBotAPI.
func NewTelegramAPI(api *tgbotapi.BotAPI) domain.TelegramBotAPI {
	return telegramAPI{BotAPI: api}
}
