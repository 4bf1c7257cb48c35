package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryAllocation is one spending bucket of the treasury. Available funds
// are always derived: TotalAllocated - TotalSpent - Reserved.
type CategoryAllocation struct {
	ID   uint64 `gorm:"primaryKey;autoIncrement"`
	Name string `gorm:"type:varchar(50);not null;uniqueIndex"`

	// TargetBps is this category's share of every deposit, in basis points.
	// The sum over all categories is kept at exactly 10000.
	TargetBps int64 `gorm:"not null"`

	TotalAllocated decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	TotalSpent     decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	Reserved       decimal.Decimal `gorm:"type:numeric(30,10);not null"`

	LastDistribution *time.Time `gorm:"type:timestamptz"`
	CreatedAt        time.Time  `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt        time.Time  `gorm:"type:timestamptz;autoUpdateTime"`
}

func (CategoryAllocation) TableName() string {
	return "category_allocations"
}

// Available returns the spendable remainder of the category.
func (c CategoryAllocation) Available() decimal.Decimal {
	return c.TotalAllocated.Sub(c.TotalSpent).Sub(c.Reserved)
}
