package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) withAdminCheck(handler func(context.Context, tgbotapi.Update)) func(context.Context, tgbotapi.Update) {
	return func(ctx context.Context, update tgbotapi.Update) {
		from := update.Message.From
		if from == nil || !b.isAdmin(from.ID) {
			b.logger.Warnf("Rejected console message from non-admin chat %d", update.Message.Chat.ID)
			b.sendMessage(update.Message.Chat.ID, "⛔ Эта консоль доступна только администратору.", nil)
			return
		}
		handler(ctx, update)
	}
}
