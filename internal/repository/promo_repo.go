package repository

import (
	"context"

	"github.com/yourdudeken/eventtik/internal/models"
	"gorm.io/gorm"
)

type PromoRepository interface {
	FindByCode(ctx context.Context, eventID uint, code string) (*models.PromoCode, error)
	RecordUse(ctx context.Context, id uint) error
}

type promoRepository struct {
	db *gorm.DB
}

func NewPromoRepository(db *gorm.DB) PromoRepository {
	return &promoRepository{db: db}
}

func (r *promoRepository) FindByCode(ctx context.Context, eventID uint, code string) (*models.PromoCode, error) {
	var promo models.PromoCode
	err := r.db.WithContext(ctx).
		Where("event_id = ? AND code = ?", eventID, code).
		First(&promo).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &promo, nil
}

// RecordUse increments current_uses by one. The limit check and the
// increment are a single statement.
func (r *promoRepository) RecordUse(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).
		Model(&models.PromoCode{}).
		Where("id = ?", id).
		Where("max_uses IS NULL OR current_uses < max_uses").
		UpdateColumn("current_uses", gorm.Expr("current_uses + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.PromoCode{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrUsageLimitReached
	}
	return nil
}
