package bot

import (
	"context"
	"fmt"

	"github.com/Fi44er/roi_ledger/utils"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	menuPending = "📋 Ожидающие заявки"
	menuAccrue  = "💹 Начислить прибыль"
)

func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	b.withAdminCheck(func(ctx context.Context, update tgbotapi.Update) {
		text := update.Message.Text
		chatID := update.Message.Chat.ID

		b.logger.Infof("Processing admin command: %s", text)

		switch text {
		case "/start":
			b.sendMessage(chatID, "Консоль администратора. Используйте меню.", GetMainMenu())
		case "/pending", menuPending:
			b.sendPendingPage(ctx, chatID, 0, 0)
		case "/accrue", menuAccrue:
			b.handleAccrue(ctx, chatID)
		default:
			b.sendMessage(chatID, "Неизвестная команда. Используйте меню.", GetMainMenu())
		}
	})(ctx, update)
}

// handleAccrue starts the run off the update loop and reports back when it
// finishes.
func (b *Bot) handleAccrue(ctx context.Context, chatID int64) {
	b.sendMessage(chatID, "⏳ Начисление запущено, отчёт придёт после завершения.", nil)

	b.jobs.Add(1)
	go func() {
		defer b.jobs.Done()
		b.runAccrual(ctx, chatID)
	}()
}

func (b *Bot) runAccrual(ctx context.Context, chatID int64) {
	report, ran, err := b.accrual.RunOnce(ctx)
	if err != nil {
		b.logger.Errorf("Manual accrual failed: %v", err)
		b.sendMessage(chatID, "❌ Ошибка начисления: "+escape(err.Error()), nil)
		return
	}
	if !ran {
		b.sendMessage(chatID, "⏳ Начисление уже выполняется на другом экземпляре.", nil)
		return
	}

	b.sendMessage(chatID, fmt.Sprintf(
		"✅ Начисление завершено\n\n"+
			"Обработано инвестиций: %d\n"+
			"Начислено: %d\n"+
			"Завершено: %d\n"+
			"Ошибок: %d\n"+
			"Выплачено: `%s`",
		report.Visited, report.Credited, report.Completed, report.Failed,
		report.Paid.StringFixed(utils.MoneyPlaces),
	), GetMainMenu())
}

func (b *Bot) handleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if !b.isAdmin(callback.From.ID) {
		b.answerCallback(callback.ID, "Это действие доступно только администратору.")
		return
	}
	if callback.Message == nil {
		b.answerCallback(callback.ID, "")
		return
	}

	action, id, ok := parseCallback(callback.Data)
	if !ok {
		b.logger.Errorf("Invalid callback data: %s", callback.Data)
		b.answerCallback(callback.ID, "Ошибка: неверные данные кнопки.")
		return
	}

	chatID := callback.Message.Chat.ID
	messageID := callback.Message.MessageID

	switch action {
	case actionPage:
		b.sendPendingPage(ctx, chatID, messageID, int(id))
		b.answerCallback(callback.ID, "")
	case actionApprove, actionReject:
		text, keyboard := confirmPrompt(action, id)
		b.send(tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, keyboard))
		b.answerCallback(callback.ID, "")
	case actionConfirmApprove, actionConfirmReject:
		b.handleDecision(ctx, callback, action, id)
	case actionCancel:
		b.send(tgbotapi.NewEditMessageText(chatID, messageID, "❌ Действие отменено."))
		b.answerCallback(callback.ID, "")
	}
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.API.Send(c); err != nil {
		b.logger.Errorf("Failed to send: %v", err)
	}
}
