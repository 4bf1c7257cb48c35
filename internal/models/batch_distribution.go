package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// BatchDistribution holds the recipient list for a batch proposal.
// Recipients is a JSON array of {recipient, amount} pairs; TotalAmount is the
// validated sum and what the linked proposal reserves.
type BatchDistribution struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	Category    string          `gorm:"type:varchar(50);not null;index"`
	Description string          `gorm:"type:text"`
	Recipients  datatypes.JSON  `gorm:"type:jsonb;not null"`
	TotalAmount decimal.Decimal `gorm:"type:numeric(30,10);not null"`

	Executed   bool       `gorm:"not null;default:false"`
	ExecutedAt *time.Time `gorm:"type:timestamptz"`
	CreatedAt  time.Time  `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"type:timestamptz;autoUpdateTime"`
}

func (BatchDistribution) TableName() string {
	return "batch_distributions"
}

// BatchRecipient is one leg of a batch, serialized into Recipients.
type BatchRecipient struct {
	Recipient string          `json:"recipient"`
	Amount    decimal.Decimal `json:"amount"`
}
