package repository

import (
	"context"

	"github.com/GoPolymarket/swapgate/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresDecisionRepo struct {
	db *gorm.DB
}

func NewPostgresDecisionRepo(db *gorm.DB) (*PostgresDecisionRepo, error) {
	if err := db.AutoMigrate(&model.AdmissionRecord{}); err != nil {
		return nil, err
	}
	return &PostgresDecisionRepo{db: db}, nil
}

func (r *PostgresDecisionRepo) Insert(ctx context.Context, rec *model.AdmissionRecord) error {
	if rec == nil {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(rec).Error
}

func (r *PostgresDecisionRepo) List(ctx context.Context, orderID string, limit int) ([]*model.AdmissionRecord, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	q := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if orderID != "" {
		q = q.Where("order_id = ?", orderID)
	}
	records := make([]*model.AdmissionRecord, 0, limit)
	if err := q.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
