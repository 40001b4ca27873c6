package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	CreditTxnCredit = "credit"
	CreditTxnDebit  = "debit"
)

// CreditTransaction is the append-only ledger entry written for every
// balance change, carrying the balance before and after for auditability.
type CreditTransaction struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	Type            string    `gorm:"column:type;not null" json:"type"`
	Amount          int       `gorm:"column:amount;not null" json:"amount"`
	Reason          string    `gorm:"column:reason" json:"reason"`
	PreviousBalance int       `gorm:"column:previous_balance;not null" json:"previous_balance"`
	NewBalance      int       `gorm:"column:new_balance;not null" json:"new_balance"`
	CreatedAt       time.Time `gorm:"not null;index" json:"created_at"`
}

func (CreditTransaction) TableName() string { return "credit_transactions" }
