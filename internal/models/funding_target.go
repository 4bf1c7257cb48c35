package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FundingTarget is a dependent external account the treasury keeps topped up.
type FundingTarget struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement"`
	Address string `gorm:"type:varchar(100);not null;uniqueIndex"`

	Category       string          `gorm:"type:varchar(50);not null"`
	Amount         decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	Frequency      time.Duration   `gorm:"not null"`
	MinimumBalance decimal.Decimal `gorm:"type:numeric(30,10);not null"`

	AutoFundingEnabled bool       `gorm:"not null;default:true"`
	LastFunding        *time.Time `gorm:"type:timestamptz"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (FundingTarget) TableName() string {
	return "funding_targets"
}
