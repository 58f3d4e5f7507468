package bot

import (
	"context"
	"sync"

	"github.com/Fi44er/roi_ledger/internal/models"
	"github.com/Fi44er/roi_ledger/internal/service"
	"github.com/Fi44er/roi_ledger/utils"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// API is the part of *tgbotapi.BotAPI the console uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type Ledger interface {
	ListPending(ctx context.Context, limit, offset int) ([]*models.Transaction, int64, error)
	Decide(ctx context.Context, transactionID uint, decision models.TransactionStatus) (*models.Transaction, error)
}

type AccrualRunner interface {
	RunOnce(ctx context.Context) (service.AccrualReport, bool, error)
}

// Bot is the admin console: it lists pending transactions, records
// decisions and doubles as the admin notification channel.
type Bot struct {
	API         API
	ledger      Ledger
	accrual     AccrualRunner
	adminChatID int64
	logger      *utils.Logger

	// last pending page shown per chat, to refresh after a decision
	pages      map[int64]int
	stateMutex *sync.Mutex

	// background commands such as /accrue
	jobs *sync.WaitGroup
}

func NewBot(
	api API,
	ledger Ledger,
	accrual AccrualRunner,
	adminChatID int64,
	logger *utils.Logger,
) *Bot {
	return &Bot{
		API:         api,
		ledger:      ledger,
		accrual:     accrual,
		adminChatID: adminChatID,
		logger:      logger,
		pages:       make(map[int64]int),
		stateMutex:  &sync.Mutex{},
		jobs:        &sync.WaitGroup{},
	}
}

// Attach sets the ledger and accrual runner for a bot built before the
// service it notifies for. Call it before Start.
func (b *Bot) Attach(ledger Ledger, accrual AccrualRunner) {
	b.ledger = ledger
	b.accrual = accrual
}

// Start consumes updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	b.logger.Info("Starting bot...")
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.API.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.API.StopReceivingUpdates()
			b.logger.Info("Bot stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.dispatch(ctx, update)
		}
	}
}

// Wait blocks until background commands started by the bot have finished.
func (b *Bot) Wait() {
	b.jobs.Wait()
}

func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	b.logger.Debugf("Received update: %d", update.UpdateID)
	if update.CallbackQuery != nil {
		b.handleCallbackQuery(ctx, update.CallbackQuery)
		return
	}
	if update.Message != nil {
		b.HandleUpdate(ctx, update)
	}
}

func GetMainMenu() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuPending),
			tgbotapi.NewKeyboardButton(menuAccrue),
		),
	)
}
