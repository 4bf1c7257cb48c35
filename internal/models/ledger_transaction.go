package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TxTypeDeposit    = "deposit"
	TxTypeWithdrawal = "withdrawal"
	TxTypeBatch      = "batch"
	TxTypeReserve    = "reserve"
	TxTypeRelease    = "release"
	TxTypeRebalance  = "rebalance"
	TxTypeProgram    = "program"
	TxTypeFunding    = "funding"
	TxTypeEmergency  = "emergency"
	TxTypeRecovery   = "recovery"
)

// LedgerTransaction is the append-only historical log. Rows are never updated
// or deleted once written.
type LedgerTransaction struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	TxType       string          `gorm:"type:varchar(20);not null;index"`
	Counterparty string          `gorm:"type:varchar(100);not null"`
	Amount       decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	Category     string          `gorm:"type:varchar(50);not null;index"`
	Description  string          `gorm:"type:text"`

	// Reference links back to the proposal, batch, program grant, or funding
	// target that produced this entry, when there is one.
	Reference string `gorm:"type:varchar(100)"`

	ResultingBalance decimal.Decimal `gorm:"type:numeric(30,10);not null"`

	OccurredAt time.Time `gorm:"type:timestamptz;not null;index"`
	CreatedAt  time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (LedgerTransaction) TableName() string {
	return "ledger_transactions"
}
