package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/outboundiq/personalize-backend/internal/logger"
	"github.com/outboundiq/personalize-backend/internal/repos"
	"github.com/outboundiq/personalize-backend/internal/types"
)

func seedUser(t *testing.T, users repos.UserRepo, credits int) uuid.UUID {
	t.Helper()
	user := &types.User{
		ID:        uuid.New(),
		Email:     uuid.NewString() + "@example.com",
		Credits:   credits,
		CreatedAt: time.Now(),
	}
	if _, err := users.Create(context.Background(), nil, user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user.ID
}

func TestCreditServiceCheckAvailable(t *testing.T) {
	db := openTestDB(t)
	log := logger.NewNop()
	users := repos.NewUserRepo(db, log)
	svc := NewCreditService(users, repos.NewCreditTransactionRepo(db, log), log)
	ctx := context.Background()

	userID := seedUser(t, users, 5)

	if !svc.CheckAvailable(ctx, userID, 5) {
		t.Fatal("exact balance should be available")
	}
	if svc.CheckAvailable(ctx, userID, 6) {
		t.Fatal("over-balance should not be available")
	}
	if svc.CheckAvailable(ctx, uuid.New(), 1) {
		t.Fatal("unknown user should not be available")
	}
}

func TestCreditServiceDebitWritesLedger(t *testing.T) {
	db := openTestDB(t)
	log := logger.NewNop()
	users := repos.NewUserRepo(db, log)
	txns := repos.NewCreditTransactionRepo(db, log)
	svc := NewCreditService(users, txns, log)
	ctx := context.Background()

	userID := seedUser(t, users, 10)

	if !svc.Debit(ctx, userID, 3, "Export job test: 3 rows processed") {
		t.Fatal("debit refused")
	}

	user, err := users.GetByID(ctx, nil, userID)
	if err != nil || user == nil {
		t.Fatalf("GetByID: %v", err)
	}
	if user.Credits != 7 {
		t.Fatalf("balance = %d, want 7", user.Credits)
	}

	entries, err := txns.ListByUser(ctx, nil, userID)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("ledger entries = %d, want 1", len(entries))
	}
	entry := entries[0]
	if entry.Type != types.CreditTxnDebit || entry.Amount != 3 {
		t.Fatalf("entry = %+v", entry)
	}
	if entry.PreviousBalance != 10 || entry.NewBalance != 7 {
		t.Fatalf("entry balances = %d -> %d, want 10 -> 7", entry.PreviousBalance, entry.NewBalance)
	}
}

func TestCreditServiceDebitRefusesOverdraft(t *testing.T) {
	db := openTestDB(t)
	log := logger.NewNop()
	users := repos.NewUserRepo(db, log)
	txns := repos.NewCreditTransactionRepo(db, log)
	svc := NewCreditService(users, txns, log)
	ctx := context.Background()

	userID := seedUser(t, users, 2)

	if svc.Debit(ctx, userID, 3, "too much") {
		t.Fatal("overdraft debit accepted")
	}

	user, _ := users.GetByID(ctx, nil, userID)
	if user.Credits != 2 {
		t.Fatalf("balance changed on refused debit: %d", user.Credits)
	}
	entries, _ := txns.ListByUser(ctx, nil, userID)
	if len(entries) != 0 {
		t.Fatalf("refused debit wrote %d ledger entries", len(entries))
	}
}

func TestCreditServiceCredit(t *testing.T) {
	db := openTestDB(t)
	log := logger.NewNop()
	users := repos.NewUserRepo(db, log)
	txns := repos.NewCreditTransactionRepo(db, log)
	svc := NewCreditService(users, txns, log)
	ctx := context.Background()

	userID := seedUser(t, users, 0)

	if !svc.Credit(ctx, userID, 25, "plan top-up") {
		t.Fatal("credit refused")
	}
	user, _ := users.GetByID(ctx, nil, userID)
	if user.Credits != 25 {
		t.Fatalf("balance = %d, want 25", user.Credits)
	}
	entries, _ := txns.ListByUser(ctx, nil, userID)
	if len(entries) != 1 || entries[0].Type != types.CreditTxnCredit {
		t.Fatalf("entries = %+v", entries)
	}
}
