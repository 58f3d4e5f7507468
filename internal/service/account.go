package service

import (
	"context"
	"errors"
	"strings"

	"github.com/Fi44er/roi_ledger/internal/models"
	"github.com/Fi44er/roi_ledger/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const referralCodeLen = 10

func newReferralCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:referralCodeLen]
}

// Register creates an account with empty balances. referralCode, when given,
// must belong to an existing account, which becomes the referrer for good.
func (s *Service) Register(ctx context.Context, email, referralCode string) (*models.Account, error) {
	const op = "Register"

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, validationErr(op, "invalid email %q", email)
	}

	existing, err := s.repo.GetAccountByEmail(ctx, email)
	if err != nil {
		return nil, storageErr(op, err)
	}
	if existing != nil {
		return nil, conflictErr(op, "email already registered", nil)
	}

	account := &models.Account{
		Email: email,
		Role:  models.RoleUser,
	}

	if code := strings.TrimSpace(referralCode); code != "" {
		referrer, err := s.repo.GetAccountByReferralCode(ctx, strings.ToUpper(code))
		if err != nil {
			return nil, storageErr(op, err)
		}
		if referrer == nil {
			return nil, validationErr(op, "unknown referral code %q", code)
		}
		account.ReferredByID = &referrer.ID
	}

	for attempt := 0; attempt < 3; attempt++ {
		account.ID = 0
		account.ReferralCode = newReferralCode()
		err = s.repo.CreateAccount(ctx, account, nil)
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
		// Either the code or the email collided; only the code is worth retrying.
		if again, _ := s.repo.GetAccountByEmail(ctx, email); again != nil {
			return nil, conflictErr(op, "email already registered", err)
		}
	}
	if err != nil {
		return nil, storageErr(op, err)
	}

	s.logger.Infof("Account %d registered (%s)", account.ID, account.Email)
	return account, nil
}

func (s *Service) GetAccount(ctx context.Context, id uint) (*models.Account, error) {
	const op = "GetAccount"

	account, err := s.repo.GetAccount(ctx, id, nil)
	if err != nil {
		return nil, storageErr(op, err)
	}
	if account == nil {
		return nil, notFoundErr(op, "account", id)
	}
	return account, nil
}

func (s *Service) ListAccountTransactions(ctx context.Context, accountID uint, limit, offset int) ([]*models.Transaction, error) {
	limit, offset = clampPage(limit, offset)
	txs, err := s.repo.ListTransactions(ctx, repository.TransactionFilter{
		AccountID: &accountID,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		return nil, storageErr("ListAccountTransactions", err)
	}
	return txs, nil
}
