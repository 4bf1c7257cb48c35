package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ProposalStatusPending   = "pending"
	ProposalStatusApproved  = "approved"
	ProposalStatusExecuted  = "executed"
	ProposalStatusCancelled = "cancelled"
)

const (
	ProposalKindWithdrawal = "withdrawal"
	ProposalKindBatch      = "batch"
)

const (
	ProposalTierStandard  = "standard"
	ProposalTierLarge     = "large"
	ProposalTierEmergency = "emergency"
)

const (
	ProposalSourceDirect     = "direct"
	ProposalSourceGovernance = "governance"
	ProposalSourceEmergency  = "emergency"
)

// WithdrawalProposal is one entry in the approval/timelock state machine.
// Batch distributions ride the same machine via Kind=batch + BatchID.
type WithdrawalProposal struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	Kind    string  `gorm:"type:varchar(20);not null;default:'withdrawal'"`
	BatchID *uint64 `gorm:"index"`

	Proposer    string          `gorm:"type:varchar(100);not null"`
	Recipient   string          `gorm:"type:varchar(100);not null"`
	Amount      decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	Category    string          `gorm:"type:varchar(50);not null;index"`
	Description string          `gorm:"type:text"`
	Source      string          `gorm:"type:varchar(20);not null;default:'direct'"`

	Status        string `gorm:"type:varchar(20);not null;default:'pending';index"`
	ApprovalCount int    `gorm:"not null;default:0"`

	// Tier and ExecutionEligibleAt are fixed at creation time and never
	// recomputed, even if the balance moves afterwards.
	Tier                string    `gorm:"type:varchar(20);not null"`
	IsLargeWithdrawal   bool      `gorm:"not null;default:false"`
	ExecutionEligibleAt time.Time `gorm:"type:timestamptz;not null"`

	ExecutedAt *time.Time `gorm:"type:timestamptz"`
	CreatedAt  time.Time  `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"type:timestamptz;autoUpdateTime"`
}

func (WithdrawalProposal) TableName() string {
	return "withdrawal_proposals"
}

// ProposalApproval records one approver's vote. The unique index is what
// enforces "the same approver cannot be counted twice".
type ProposalApproval struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	ProposalID uint64    `gorm:"not null;uniqueIndex:idx_proposal_approver"`
	ApproverID string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_proposal_approver"`
	CreatedAt  time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (ProposalApproval) TableName() string {
	return "proposal_approvals"
}
