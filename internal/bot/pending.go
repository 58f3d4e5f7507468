package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Fi44er/roi_ledger/internal/models"
	"github.com/Fi44er/roi_ledger/internal/service"
	"github.com/Fi44er/roi_ledger/utils"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const pendingPerPage = 5

const (
	actionPage           = "pending_page"
	actionApprove        = "approve"
	actionReject         = "reject"
	actionConfirmApprove = "confirm_approve"
	actionConfirmReject  = "confirm_reject"
	actionCancel         = "cancel_action"
)

func callbackData(action string, id uint) string {
	return fmt.Sprintf("%s:%d", action, id)
}

// parseCallback splits "action:id". cancel_action carries no id.
func parseCallback(data string) (action string, id uint, ok bool) {
	if data == actionCancel {
		return actionCancel, 0, true
	}
	action, raw, found := strings.Cut(data, ":")
	if !found {
		return "", 0, false
	}
	switch action {
	case actionPage, actionApprove, actionReject, actionConfirmApprove, actionConfirmReject:
	default:
		return "", 0, false
	}
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return "", 0, false
	}
	return action, uint(n), true
}

func transactionLine(t *models.Transaction) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🆔 #%d %s", t.ID, typeTitle(t))
	fmt.Fprintf(&sb, "\n👤 Аккаунт: %d", t.AccountID)
	fmt.Fprintf(&sb, "\n💰 Сумма: `%s` %s", t.Amount.StringFixed(utils.MoneyPlaces), escape(t.Asset))
	if t.DestinationAddress != "" {
		fmt.Fprintf(&sb, "\n🧾 Адрес: `%s`", t.DestinationAddress)
	}
	if t.ProofHash != "" {
		fmt.Fprintf(&sb, "\n🔗 Хэш: `%s`", t.ProofHash)
	}
	return sb.String()
}

func typeTitle(t *models.Transaction) string {
	switch {
	case t.Type == models.TransactionDeposit:
		return "пополнение"
	case t.Type == models.TransactionWithdrawal && t.Source == models.SourceReferral:
		return "вывод реферальных"
	case t.Type == models.TransactionWithdrawal:
		return "вывод"
	default:
		return string(t.Type)
	}
}

// renderPendingPage builds one page of the pending list with per-row
// approve/reject buttons and prev/next navigation.
func renderPendingPage(txs []*models.Transaction, total int64, page int) (string, tgbotapi.InlineKeyboardMarkup) {
	pages := int((total + pendingPerPage - 1) / pendingPerPage)

	var sb strings.Builder
	fmt.Fprintf(&sb, "📋 Ожидающие заявки (страница %d из %d):\n\n", page+1, pages)

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(txs)+1)
	for _, t := range txs {
		sb.WriteString(transactionLine(t))
		sb.WriteString("\n\n")
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("✅ #%d", t.ID), callbackData(actionApprove, t.ID)),
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("❌ #%d", t.ID), callbackData(actionReject, t.ID)),
		))
	}

	nav := make([]tgbotapi.InlineKeyboardButton, 0, 2)
	if page > 0 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("⬅️ Назад", callbackData(actionPage, uint(page-1))))
	}
	if page+1 < pages {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("Вперед ➡️", callbackData(actionPage, uint(page+1))))
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}

	return sb.String(), tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// sendPendingPage posts page, or edits messageID in place when it is set.
func (b *Bot) sendPendingPage(ctx context.Context, chatID int64, messageID int, page int) {
	if page < 0 {
		page = 0
	}
	txs, total, err := b.ledger.ListPending(ctx, pendingPerPage, page*pendingPerPage)
	if err != nil {
		b.logger.Errorf("Failed to get pending transactions: %v", err)
		b.sendMessage(chatID, "❌ Ошибка получения заявок", nil)
		return
	}
	if len(txs) == 0 && page > 0 {
		page = 0
		txs, total, err = b.ledger.ListPending(ctx, pendingPerPage, 0)
		if err != nil {
			b.logger.Errorf("Failed to get pending transactions: %v", err)
			return
		}
	}
	if total == 0 {
		if messageID != 0 {
			b.send(tgbotapi.NewEditMessageText(chatID, messageID, "ℹ️ Нет ожидающих заявок."))
			return
		}
		b.sendMessage(chatID, "ℹ️ Нет ожидающих заявок.", nil)
		return
	}

	b.setPage(chatID, page)
	text, keyboard := renderPendingPage(txs, total, page)
	if messageID != 0 {
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, keyboard)
		edit.ParseMode = tgbotapi.ModeMarkdown
		b.send(edit)
		return
	}
	b.sendMessage(chatID, text, keyboard)
}

func confirmPrompt(action string, id uint) (string, tgbotapi.InlineKeyboardMarkup) {
	text := fmt.Sprintf("Подтвердить заявку #%d? Это действие необратимо.", id)
	yes := tgbotapi.NewInlineKeyboardButtonData("✅ Да, подтвердить", callbackData(actionConfirmApprove, id))
	if action == actionReject {
		text = fmt.Sprintf("Отклонить заявку #%d? Это действие необратимо.", id)
		yes = tgbotapi.NewInlineKeyboardButtonData("❌ Да, отклонить", callbackData(actionConfirmReject, id))
	}
	return text, tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(yes, tgbotapi.NewInlineKeyboardButtonData("↩️ Отмена", actionCancel)),
	)
}

// decisionMessage turns a Decide outcome into the text shown to the admin.
func decisionMessage(id uint, decision models.TransactionStatus, err error) string {
	switch {
	case err == nil && decision == models.StatusCompleted:
		return fmt.Sprintf("✅ Заявка #%d подтверждена.", id)
	case err == nil:
		return fmt.Sprintf("❌ Заявка #%d отклонена.", id)
	case errors.Is(err, service.ErrConflict):
		return fmt.Sprintf("⚠️ Заявка #%d уже обработана.", id)
	case errors.Is(err, service.ErrInsufficientFunds):
		return fmt.Sprintf("‼️ Недостаточно средств для заявки #%d. Заявка осталась в ожидании, её можно отклонить.", id)
	case errors.Is(err, service.ErrNotFound):
		return fmt.Sprintf("❓ Заявка #%d не найдена.", id)
	default:
		return fmt.Sprintf("❌ Ошибка обработки заявки #%d, попробуйте позже.", id)
	}
}

func (b *Bot) handleDecision(ctx context.Context, callback *tgbotapi.CallbackQuery, action string, id uint) {
	decision := models.StatusCompleted
	if action == actionConfirmReject {
		decision = models.StatusRejected
	}

	_, err := b.ledger.Decide(ctx, id, decision)
	if err != nil {
		b.logger.Errorf("Failed to decide transaction %d: %v", id, err)
	}

	msg := decisionMessage(id, decision, err)
	b.answerCallback(callback.ID, msg)

	chatID := callback.Message.Chat.ID
	b.sendMessage(chatID, msg, nil)
	b.sendPendingPage(ctx, chatID, callback.Message.MessageID, b.getPage(chatID))
}
