package repos

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/outboundiq/personalize-backend/internal/logger"
	"github.com/outboundiq/personalize-backend/internal/types"
)

type WebsiteCrawlRepo interface {
	GetByURL(ctx context.Context, tx *gorm.DB, url string) (*types.WebsiteCrawl, error)
	GetByURLs(ctx context.Context, tx *gorm.DB, urls []string) ([]*types.WebsiteCrawl, error)
	Upsert(ctx context.Context, tx *gorm.DB, row *types.WebsiteCrawl) error
	UpdateFields(ctx context.Context, tx *gorm.DB, url string, updates map[string]interface{}) error
}

type websiteCrawlRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWebsiteCrawlRepo(db *gorm.DB, baseLog *logger.Logger) WebsiteCrawlRepo {
	return &websiteCrawlRepo{
		db:  db,
		log: baseLog.With("repo", "WebsiteCrawlRepo"),
	}
}

func (r *websiteCrawlRepo) GetByURL(ctx context.Context, tx *gorm.DB, url string) (*types.WebsiteCrawl, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if url == "" {
		return nil, nil
	}
	var row types.WebsiteCrawl
	err := transaction.WithContext(ctx).
		Where("url = ?", url).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *websiteCrawlRepo) GetByURLs(ctx context.Context, tx *gorm.DB, urls []string) ([]*types.WebsiteCrawl, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.WebsiteCrawl
	if len(urls) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(ctx).
		Where("url IN ?", urls).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *websiteCrawlRepo) Upsert(ctx context.Context, tx *gorm.DB, row *types.WebsiteCrawl) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil || row.URL == "" {
		return nil
	}
	row.UpdatedAt = time.Now()
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "url"}},
			UpdateAll: true,
		}).
		Create(row).Error
}

func (r *websiteCrawlRepo) UpdateFields(ctx context.Context, tx *gorm.DB, url string, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if url == "" {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return transaction.WithContext(ctx).
		Model(&types.WebsiteCrawl{}).
		Where("url = ?", url).
		Updates(updates).Error
}
