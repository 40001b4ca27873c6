package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/outboundiq/personalize-backend/internal/logger"
	"github.com/outboundiq/personalize-backend/internal/types"
)

type PersonalizationCacheRepo interface {
	Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID, url string) (*types.PersonalizationCache, error)
	Upsert(ctx context.Context, tx *gorm.DB, row *types.PersonalizationCache) error
}

type personalizationCacheRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPersonalizationCacheRepo(db *gorm.DB, baseLog *logger.Logger) PersonalizationCacheRepo {
	return &personalizationCacheRepo{
		db:  db,
		log: baseLog.With("repo", "PersonalizationCacheRepo"),
	}
}

func (r *personalizationCacheRepo) Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID, url string) (*types.PersonalizationCache, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || url == "" {
		return nil, nil
	}
	var row types.PersonalizationCache
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND url = ?", userID, url).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *personalizationCacheRepo) Upsert(ctx context.Context, tx *gorm.DB, row *types.PersonalizationCache) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil || row.UserID == uuid.Nil || row.URL == "" {
		return nil
	}
	row.UpdatedAt = time.Now()
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "url"}},
			UpdateAll: true,
		}).
		Create(row).Error
}
