package bot

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Fi44er/roi_ledger/internal/notify"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// NotifyAdmin posts the event to the admin chat. New requests get inline
// approve/reject buttons.
func (b *Bot) NotifyAdmin(_ context.Context, event notify.Event, fields notify.Fields) error {
	msg := tgbotapi.NewMessage(b.adminChatID, "🔔 "+escape(notify.Render(event, fields)))
	msg.ParseMode = tgbotapi.ModeMarkdown

	if event == notify.EventDepositSubmitted || event == notify.EventWithdrawalSubmitted {
		if id, err := strconv.ParseUint(fields["transaction_id"], 10, 32); err == nil {
			msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("✅ Подтвердить", callbackData(actionApprove, uint(id))),
				tgbotapi.NewInlineKeyboardButtonData("❌ Отклонить", callbackData(actionReject, uint(id))),
			))
		}
	}

	if _, err := b.API.Send(msg); err != nil {
		return fmt.Errorf("failed to notify admin chat: %w", err)
	}
	return nil
}

// NotifyUser is a no-op: accounts are reached by email, not Telegram.
func (b *Bot) NotifyUser(context.Context, string, notify.Event, notify.Fields) error {
	return nil
}
