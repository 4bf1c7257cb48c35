package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ProgramCommunityRewards = "community_rewards"
	ProgramAirdrop          = "airdrop"
	ProgramStakingRewards   = "staking_rewards"
	ProgramEngagement       = "engagement"
)

// AwardProgram is a bounded token-award pool drawn from one treasury category.
// Invariant: DistributedAmount <= TotalAllocation.
type AwardProgram struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement"`
	ProgramType string `gorm:"type:varchar(30);not null;uniqueIndex"`
	Category    string `gorm:"type:varchar(50);not null"`

	TotalAllocation   decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	DistributedAmount decimal.Decimal `gorm:"type:numeric(30,10);not null"`

	// Zero durations mean immediate payout; non-zero delegates to the
	// vesting collaborator.
	VestingDuration time.Duration `gorm:"not null;default:0"`
	VestingCliff    time.Duration `gorm:"not null;default:0"`

	IsActive  bool      `gorm:"not null;default:true"`
	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (AwardProgram) TableName() string {
	return "award_programs"
}

// ProgramGrant records one distribution leg. ScheduleID is set when the payout
// was delegated to the vesting collaborator instead of transferred directly.
type ProgramGrant struct {
	ID          uint64          `gorm:"primaryKey;autoIncrement"`
	ProgramType string          `gorm:"type:varchar(30);not null;index"`
	Beneficiary string          `gorm:"type:varchar(100);not null;index"`
	Amount      decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	ScheduleID  string          `gorm:"type:varchar(100)"`
	CreatedAt   time.Time       `gorm:"type:timestamptz;autoCreateTime"`
}

func (ProgramGrant) TableName() string {
	return "program_grants"
}
