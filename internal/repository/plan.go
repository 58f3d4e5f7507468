package repository

import (
	"context"
	"fmt"

	"github.com/Fi44er/roi_ledger/internal/models"
)

func (r *Repository) CreatePlan(ctx context.Context, plan *models.InvestmentPlan) error {
	if err := r.db.WithContext(ctx).Create(plan).Error; err != nil {
		return fmt.Errorf("failed to create plan: %w", err)
	}
	return nil
}

func (r *Repository) GetPlan(ctx context.Context, id uint) (*models.InvestmentPlan, error) {
	var plan models.InvestmentPlan
	err := r.db.WithContext(ctx).First(&plan, "id = ?", id).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan %d: %w", id, err)
	}
	return &plan, nil
}

func (r *Repository) UpdatePlan(ctx context.Context, plan *models.InvestmentPlan) error {
	err := r.db.WithContext(ctx).
		Model(plan).
		Select("name", "roi", "duration_days", "min_amount", "max_amount", "is_active").
		Updates(plan).Error
	if err != nil {
		return fmt.Errorf("failed to update plan %d: %w", plan.ID, err)
	}
	return nil
}

func (r *Repository) ListPlans(ctx context.Context, activeOnly bool) ([]*models.InvestmentPlan, error) {
	q := r.db.WithContext(ctx).Model(&models.InvestmentPlan{})
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}

	var plans []*models.InvestmentPlan
	if err := q.Order("id ASC").Find(&plans).Error; err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return plans, nil
}

func (r *Repository) DeletePlan(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&models.InvestmentPlan{}, id)
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete plan %d: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}
