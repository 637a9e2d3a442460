package bot

import (
	"context"
	"runtime/debug"

	"github.com/rs/zerolog"
)

// withRecovery runs handler and turns a panic into a logged error and a
// generic reply to chatID.
func (b *Bot) withRecovery(ctx context.Context, chatID int64, handler func()) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if b.metrics != nil {
			b.metrics.ErrorsTotal.Inc()
		}
		zerolog.Ctx(ctx).Error().
			Interface("panic", r).
			Bytes("stack", debug.Stack()).
			Msg("recovered from panic in update handler")
		b.sendMessage(ctx, chatID, userMessage(nil))
	}()
	handler()
}
