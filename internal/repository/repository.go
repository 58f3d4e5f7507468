package repository

import (
	"errors"

	"github.com/Fi44er/roi_ledger/utils"
	"gorm.io/gorm"
)

var (
	// ErrGuardFailed means a guarded conditional update matched no row
	// because its precondition (e.g. balance >= amount) did not hold.
	ErrGuardFailed = errors.New("guarded update precondition failed")
	// ErrStatusChanged means an optimistic status/version guard lost a race.
	ErrStatusChanged = errors.New("row changed concurrently")
	ErrAccountNotFound = errors.New("account not found")
)

type Repository struct {
	db     *gorm.DB
	logger *utils.Logger
}

func NewRepository(db *gorm.DB, logger *utils.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// conn picks the transaction handle when one is given.
func (r *Repository) conn(tx *gorm.DB) *gorm.DB {
	if tx == nil {
		return r.db
	}
	return tx
}

func notFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
