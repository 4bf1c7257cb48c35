package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"treasury/internal/models"
	"treasury/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx repository.Repository) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// --- categories -------------------------------------------------------------

func (s *Store) UpsertCategory(ctx context.Context, item *models.CategoryAllocation) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.Name) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"target_bps",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) SaveCategory(ctx context.Context, item *models.CategoryAllocation) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Save(item).Error
}

func (s *Store) GetCategoryByName(ctx context.Context, name string) (*models.CategoryAllocation, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.CategoryAllocation
	err := s.db.WithContext(ctx).Where("name = ?", strings.TrimSpace(name)).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]models.CategoryAllocation, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.CategoryAllocation
	if err := s.db.WithContext(ctx).
		Model(&models.CategoryAllocation{}).
		Order("name asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- proposals --------------------------------------------------------------

func (s *Store) InsertProposal(ctx context.Context, item *models.WithdrawalProposal) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) SaveProposal(ctx context.Context, item *models.WithdrawalProposal) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Save(item).Error
}

func (s *Store) GetProposalByID(ctx context.Context, id uint64) (*models.WithdrawalProposal, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.WithdrawalProposal
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func proposalQuery(db *gorm.DB, params repository.ListProposalsParams) *gorm.DB {
	query := db.Model(&models.WithdrawalProposal{})
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	if params.Category != nil && strings.TrimSpace(*params.Category) != "" {
		query = query.Where("category = ?", strings.TrimSpace(*params.Category))
	}
	if params.Source != nil && strings.TrimSpace(*params.Source) != "" {
		query = query.Where("source = ?", strings.TrimSpace(*params.Source))
	}
	if params.Kind != nil && strings.TrimSpace(*params.Kind) != "" {
		query = query.Where("kind = ?", strings.TrimSpace(*params.Kind))
	}
	return query
}

func (s *Store) ListProposals(ctx context.Context, params repository.ListProposalsParams) ([]models.WithdrawalProposal, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := proposalQuery(s.db.WithContext(ctx), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	var items []models.WithdrawalProposal
	if err := query.Limit(normalizeLimit(params.Limit, 100)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountProposals(ctx context.Context, params repository.ListProposalsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := proposalQuery(s.db.WithContext(ctx), params).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) InsertApproval(ctx context.Context, item *models.ProposalApproval) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) HasApproval(ctx context.Context, proposalID uint64, approverID string) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	var total int64
	err := s.db.WithContext(ctx).
		Model(&models.ProposalApproval{}).
		Where("proposal_id = ? AND approver_id = ?", proposalID, strings.TrimSpace(approverID)).
		Count(&total).Error
	if err != nil {
		return false, err
	}
	return total > 0, nil
}

// --- batches ----------------------------------------------------------------

func (s *Store) InsertBatch(ctx context.Context, item *models.BatchDistribution) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) SaveBatch(ctx context.Context, item *models.BatchDistribution) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Save(item).Error
}

func (s *Store) GetBatchByID(ctx context.Context, id uint64) (*models.BatchDistribution, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.BatchDistribution
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListBatches(ctx context.Context, params repository.ListBatchesParams) ([]models.BatchDistribution, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.BatchDistribution{})
	if params.Executed != nil {
		query = query.Where("executed = ?", *params.Executed)
	}
	if params.Category != nil && strings.TrimSpace(*params.Category) != "" {
		query = query.Where("category = ?", strings.TrimSpace(*params.Category))
	}
	var items []models.BatchDistribution
	if err := query.Order("created_at desc").
		Limit(normalizeLimit(params.Limit, 100)).
		Offset(normalizeOffset(params.Offset)).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- historical log ---------------------------------------------------------

func (s *Store) InsertTransaction(ctx context.Context, item *models.LedgerTransaction) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func transactionQuery(db *gorm.DB, params repository.ListTransactionsParams) *gorm.DB {
	query := db.Model(&models.LedgerTransaction{})
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("occurred_at >= ?", *params.Since)
	}
	if params.Until != nil && !params.Until.IsZero() {
		query = query.Where("occurred_at < ?", *params.Until)
	}
	if params.TxType != nil && strings.TrimSpace(*params.TxType) != "" {
		query = query.Where("tx_type = ?", strings.TrimSpace(*params.TxType))
	}
	if params.Category != nil && strings.TrimSpace(*params.Category) != "" {
		query = query.Where("category = ?", strings.TrimSpace(*params.Category))
	}
	return query
}

func (s *Store) ListTransactions(ctx context.Context, params repository.ListTransactionsParams) ([]models.LedgerTransaction, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.LedgerTransaction
	if err := transactionQuery(s.db.WithContext(ctx), params).
		Order("occurred_at desc, id desc").
		Limit(normalizeLimit(params.Limit, 200)).
		Offset(normalizeOffset(params.Offset)).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountTransactions(ctx context.Context, params repository.ListTransactionsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := transactionQuery(s.db.WithContext(ctx), params).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// --- award programs ---------------------------------------------------------

func (s *Store) UpsertProgram(ctx context.Context, item *models.AwardProgram) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "program_type"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"category",
			"total_allocation",
			"vesting_duration",
			"vesting_cliff",
			"is_active",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) SaveProgram(ctx context.Context, item *models.AwardProgram) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Save(item).Error
}

func (s *Store) GetProgramByType(ctx context.Context, programType string) (*models.AwardProgram, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.AwardProgram
	err := s.db.WithContext(ctx).Where("program_type = ?", strings.TrimSpace(programType)).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListPrograms(ctx context.Context) ([]models.AwardProgram, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.AwardProgram
	if err := s.db.WithContext(ctx).
		Model(&models.AwardProgram{}).
		Order("program_type asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) InsertGrant(ctx context.Context, item *models.ProgramGrant) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListGrants(ctx context.Context, params repository.ListGrantsParams) ([]models.ProgramGrant, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.ProgramGrant{})
	if params.ProgramType != nil && strings.TrimSpace(*params.ProgramType) != "" {
		query = query.Where("program_type = ?", strings.TrimSpace(*params.ProgramType))
	}
	if params.Beneficiary != nil && strings.TrimSpace(*params.Beneficiary) != "" {
		query = query.Where("beneficiary = ?", strings.TrimSpace(*params.Beneficiary))
	}
	var items []models.ProgramGrant
	if err := query.Order("created_at desc").
		Limit(normalizeLimit(params.Limit, 200)).
		Offset(normalizeOffset(params.Offset)).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- funding targets --------------------------------------------------------

func (s *Store) UpsertFundingTarget(ctx context.Context, item *models.FundingTarget) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "address"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"category",
			"amount",
			"frequency",
			"minimum_balance",
			"auto_funding_enabled",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) SaveFundingTarget(ctx context.Context, item *models.FundingTarget) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Save(item).Error
}

func (s *Store) GetFundingTargetByAddress(ctx context.Context, address string) (*models.FundingTarget, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.FundingTarget
	err := s.db.WithContext(ctx).Where("address = ?", strings.TrimSpace(address)).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListFundingTargets(ctx context.Context) ([]models.FundingTarget, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.FundingTarget
	if err := s.db.WithContext(ctx).
		Model(&models.FundingTarget{}).
		Order("address asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- system settings --------------------------------------------------------

func (s *Store) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.SystemSetting
	err := s.db.WithContext(ctx).Where("key = ?", strings.TrimSpace(key)).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = time.Now().UTC()
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"value",
			"description",
			"updated_at",
		}),
	}).Create(item).Error
}

// --- helpers ----------------------------------------------------------------

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	col := strings.TrimSpace(strings.ToLower(orderBy))
	switch col {
	case "created_at", "amount", "status", "execution_eligible_at":
	default:
		col = fallback
	}
	dir := "desc"
	if asc != nil && *asc {
		dir = "asc"
	}
	return query.Order(col + " " + dir)
}

func normalizeLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
