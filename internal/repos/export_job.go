package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/outboundiq/personalize-backend/internal/logger"
	"github.com/outboundiq/personalize-backend/internal/types"
)

type ExportJobRepo interface {
	Create(ctx context.Context, tx *gorm.DB, job *types.ExportJob) (*types.ExportJob, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ExportJob, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	BumpProcessedRows(ctx context.Context, tx *gorm.DB, id uuid.UUID, processed int) error
}

type exportJobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewExportJobRepo(db *gorm.DB, baseLog *logger.Logger) ExportJobRepo {
	return &exportJobRepo{
		db:  db,
		log: baseLog.With("repo", "ExportJobRepo"),
	}
}

func (r *exportJobRepo) Create(ctx context.Context, tx *gorm.DB, job *types.ExportJob) (*types.ExportJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if job == nil {
		return nil, nil
	}
	if err := transaction.WithContext(ctx).Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

func (r *exportJobRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ExportJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var job types.ExportJob
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *exportJobRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return transaction.WithContext(ctx).
		Model(&types.ExportJob{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// BumpProcessedRows advances the processed-row counter. The guard keeps the
// counter monotonic when batch updates land out of order.
func (r *exportJobRepo) BumpProcessedRows(ctx context.Context, tx *gorm.DB, id uuid.UUID, processed int) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || processed < 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.ExportJob{}).
		Where("id = ? AND processed_rows < ?", id, processed).
		Updates(map[string]interface{}{
			"processed_rows": processed,
			"updated_at":     time.Now(),
		}).Error
}
