package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/outboundiq/personalize-backend/internal/logger"
	"github.com/outboundiq/personalize-backend/internal/repos"
	"github.com/outboundiq/personalize-backend/internal/types"
)

// CreditService reads and debits the per-user credit balance. Every balance
// change writes a ledger row with the balance before and after.
type CreditService interface {
	CheckAvailable(ctx context.Context, userID uuid.UUID, amount int) bool
	Debit(ctx context.Context, userID uuid.UUID, amount int, reason string) bool
	Credit(ctx context.Context, userID uuid.UUID, amount int, reason string) bool
}

type creditService struct {
	log   *logger.Logger
	users repos.UserRepo
	txns  repos.CreditTransactionRepo
}

func NewCreditService(users repos.UserRepo, txns repos.CreditTransactionRepo, baseLog *logger.Logger) CreditService {
	return &creditService{
		log:   baseLog.With("service", "CreditService"),
		users: users,
		txns:  txns,
	}
}

func (s *creditService) CheckAvailable(ctx context.Context, userID uuid.UUID, amount int) bool {
	user, err := s.users.GetByID(ctx, nil, userID)
	if err != nil {
		s.log.Error("Error checking credits", "user_id", userID, "error", err)
		return false
	}
	if user == nil {
		return false
	}
	return user.Credits >= amount
}

func (s *creditService) Debit(ctx context.Context, userID uuid.UUID, amount int, reason string) bool {
	return s.apply(ctx, userID, types.CreditTxnDebit, amount, reason)
}

func (s *creditService) Credit(ctx context.Context, userID uuid.UUID, amount int, reason string) bool {
	return s.apply(ctx, userID, types.CreditTxnCredit, amount, reason)
}

func (s *creditService) apply(ctx context.Context, userID uuid.UUID, txnType string, amount int, reason string) bool {
	user, err := s.users.GetByID(ctx, nil, userID)
	if err != nil || user == nil {
		s.log.Error("Credit transaction failed: user lookup", "user_id", userID, "error", err)
		return false
	}

	newCredits := user.Credits + amount
	if txnType == types.CreditTxnDebit {
		newCredits = user.Credits - amount
	}
	if txnType == types.CreditTxnDebit && newCredits < 0 {
		s.log.Warn("Credit transaction refused: insufficient credits",
			"user_id", userID, "balance", user.Credits, "amount", amount)
		return false
	}

	if err := s.users.UpdateCredits(ctx, nil, userID, newCredits); err != nil {
		s.log.Error("Credit transaction failed: balance update", "user_id", userID, "error", err)
		return false
	}

	txn := &types.CreditTransaction{
		ID:              uuid.New(),
		UserID:          userID,
		Type:            txnType,
		Amount:          amount,
		Reason:          reason,
		PreviousBalance: user.Credits,
		NewBalance:      newCredits,
		CreatedAt:       time.Now(),
	}
	if _, err := s.txns.Create(ctx, nil, txn); err != nil {
		s.log.Error("Credit transaction failed: ledger write", "user_id", userID, "error", err)
		return false
	}

	s.log.Info("Credit transaction applied",
		"user_id", userID,
		"type", txnType,
		"amount", amount,
		"reason", reason,
		"balance", fmt.Sprintf("%d -> %d", user.Credits, newCredits),
	)
	return true
}
