package repository

import (
	"context"
	"time"

	"treasury/internal/models"
)

// Repository is the single persistence surface of the treasury. InTx hands the
// callback a Repository bound to one transaction; the treasury service wraps
// every mutating operation in it so an error anywhere rolls the whole
// operation back, including the ledger log entry.
type Repository interface {
	InTx(ctx context.Context, fn func(tx Repository) error) error

	// Category allocations.
	UpsertCategory(ctx context.Context, item *models.CategoryAllocation) error
	SaveCategory(ctx context.Context, item *models.CategoryAllocation) error
	GetCategoryByName(ctx context.Context, name string) (*models.CategoryAllocation, error)
	ListCategories(ctx context.Context) ([]models.CategoryAllocation, error)

	// Withdrawal / batch proposals.
	InsertProposal(ctx context.Context, item *models.WithdrawalProposal) error
	SaveProposal(ctx context.Context, item *models.WithdrawalProposal) error
	GetProposalByID(ctx context.Context, id uint64) (*models.WithdrawalProposal, error)
	ListProposals(ctx context.Context, params ListProposalsParams) ([]models.WithdrawalProposal, error)
	CountProposals(ctx context.Context, params ListProposalsParams) (int64, error)
	InsertApproval(ctx context.Context, item *models.ProposalApproval) error
	HasApproval(ctx context.Context, proposalID uint64, approverID string) (bool, error)

	// Batch distributions.
	InsertBatch(ctx context.Context, item *models.BatchDistribution) error
	SaveBatch(ctx context.Context, item *models.BatchDistribution) error
	GetBatchByID(ctx context.Context, id uint64) (*models.BatchDistribution, error)
	ListBatches(ctx context.Context, params ListBatchesParams) ([]models.BatchDistribution, error)

	// Append-only historical log.
	InsertTransaction(ctx context.Context, item *models.LedgerTransaction) error
	ListTransactions(ctx context.Context, params ListTransactionsParams) ([]models.LedgerTransaction, error)
	CountTransactions(ctx context.Context, params ListTransactionsParams) (int64, error)

	// Award programs.
	UpsertProgram(ctx context.Context, item *models.AwardProgram) error
	SaveProgram(ctx context.Context, item *models.AwardProgram) error
	GetProgramByType(ctx context.Context, programType string) (*models.AwardProgram, error)
	ListPrograms(ctx context.Context) ([]models.AwardProgram, error)
	InsertGrant(ctx context.Context, item *models.ProgramGrant) error
	ListGrants(ctx context.Context, params ListGrantsParams) ([]models.ProgramGrant, error)

	// External funding targets.
	UpsertFundingTarget(ctx context.Context, item *models.FundingTarget) error
	SaveFundingTarget(ctx context.Context, item *models.FundingTarget) error
	GetFundingTargetByAddress(ctx context.Context, address string) (*models.FundingTarget, error)
	ListFundingTargets(ctx context.Context) ([]models.FundingTarget, error)

	// Operational switches (pause flag).
	GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error)
	UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error
}

type ListProposalsParams struct {
	Limit    int
	Offset   int
	Status   *string
	Category *string
	Source   *string
	Kind     *string
	OrderBy  string
	Asc      *bool
}

type ListBatchesParams struct {
	Limit    int
	Offset   int
	Executed *bool
	Category *string
}

type ListTransactionsParams struct {
	Limit    int
	Offset   int
	Since    *time.Time
	Until    *time.Time
	TxType   *string
	Category *string
}

type ListGrantsParams struct {
	Limit       int
	Offset      int
	ProgramType *string
	Beneficiary *string
}
