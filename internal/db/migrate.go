package db

import (
	"treasury/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.CategoryAllocation{},
		&models.WithdrawalProposal{},
		&models.ProposalApproval{},
		&models.BatchDistribution{},
		&models.LedgerTransaction{},
		&models.AwardProgram{},
		&models.ProgramGrant{},
		&models.FundingTarget{},
		&models.SystemSetting{},
	)
}
