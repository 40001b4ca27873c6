package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/outboundiq/personalize-backend/internal/logger"
	"github.com/outboundiq/personalize-backend/internal/types"
)

type CreditTransactionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, txn *types.CreditTransaction) (*types.CreditTransaction, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.CreditTransaction, error)
}

type creditTransactionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCreditTransactionRepo(db *gorm.DB, baseLog *logger.Logger) CreditTransactionRepo {
	return &creditTransactionRepo{
		db:  db,
		log: baseLog.With("repo", "CreditTransactionRepo"),
	}
}

func (r *creditTransactionRepo) Create(ctx context.Context, tx *gorm.DB, txn *types.CreditTransaction) (*types.CreditTransaction, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if txn == nil {
		return nil, nil
	}
	if err := transaction.WithContext(ctx).Create(txn).Error; err != nil {
		return nil, err
	}
	return txn, nil
}

func (r *creditTransactionRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.CreditTransaction, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.CreditTransaction
	if userID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
