package repository

import (
	"context"

	"gorm.io/gorm"
)

func (r *Repository) BeginTransaction(ctx context.Context) (*gorm.DB, error) {
	r.logger.Debug("Starting transaction...")
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		r.logger.Errorf("Failed to start transaction: %v", tx.Error)
		return nil, tx.Error
	}
	return tx, nil
}

func (r *Repository) Commit(tx *gorm.DB) error {
	r.logger.Debug("Committing transaction...")
	if err := tx.Commit().Error; err != nil {
		r.logger.Errorf("Failed to commit transaction: %v", err)
		return err
	}
	return nil
}

func (r *Repository) Rollback(tx *gorm.DB) {
	r.logger.Debug("Rolling back transaction...")
	_ = tx.Rollback().Error
}

// InTransaction runs fn inside one database transaction. Any error or panic
// from fn rolls everything back; only a nil return commits.
func (r *Repository) InTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tx, err := r.BeginTransaction(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Errorf("Panic occurred inside transaction: %v", p)
			r.Rollback(tx)
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		r.Rollback(tx)
		return err
	}

	return r.Commit(tx)
}
