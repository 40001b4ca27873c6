package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/outboundiq/personalize-backend/internal/logger"
	"github.com/outboundiq/personalize-backend/internal/types"
)

type FileUploadRepo interface {
	Create(ctx context.Context, tx *gorm.DB, upload *types.FileUpload) (*types.FileUpload, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.FileUpload, error)
}

type fileUploadRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFileUploadRepo(db *gorm.DB, baseLog *logger.Logger) FileUploadRepo {
	return &fileUploadRepo{
		db:  db,
		log: baseLog.With("repo", "FileUploadRepo"),
	}
}

func (r *fileUploadRepo) Create(ctx context.Context, tx *gorm.DB, upload *types.FileUpload) (*types.FileUpload, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if upload == nil {
		return nil, nil
	}
	if err := transaction.WithContext(ctx).Create(upload).Error; err != nil {
		return nil, err
	}
	return upload, nil
}

func (r *fileUploadRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.FileUpload, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var upload types.FileUpload
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&upload).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &upload, nil
}
