package memoryrepository

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"treasury/internal/models"
	"treasury/internal/repository"
)

// Store is an in-memory Repository for tests and single-node dev mode.
// Data is lost on restart; use the gorm store for anything durable.
//
// InTx takes a snapshot of all tables and restores it when the callback
// returns an error, so rollback behaves like the database-backed store.
type Store struct {
	mu sync.RWMutex

	categories map[string]models.CategoryAllocation
	proposals  map[uint64]models.WithdrawalProposal
	approvals  map[uint64]map[string]models.ProposalApproval
	batches    map[uint64]models.BatchDistribution
	txns       []models.LedgerTransaction
	programs   map[string]models.AwardProgram
	grants     []models.ProgramGrant
	targets    map[string]models.FundingTarget
	settings   map[string]models.SystemSetting

	nextProposalID uint64
	nextBatchID    uint64
	nextTxnID      uint64
	nextGrantID    uint64

	inTx bool
}

func New() *Store {
	return &Store{
		categories: map[string]models.CategoryAllocation{},
		proposals:  map[uint64]models.WithdrawalProposal{},
		approvals:  map[uint64]map[string]models.ProposalApproval{},
		batches:    map[uint64]models.BatchDistribution{},
		programs:   map[string]models.AwardProgram{},
		targets:    map[string]models.FundingTarget{},
		settings:   map[string]models.SystemSetting{},
	}
}

type snapshot struct {
	categories map[string]models.CategoryAllocation
	proposals  map[uint64]models.WithdrawalProposal
	approvals  map[uint64]map[string]models.ProposalApproval
	batches    map[uint64]models.BatchDistribution
	txns       []models.LedgerTransaction
	programs   map[string]models.AwardProgram
	grants     []models.ProgramGrant
	targets    map[string]models.FundingTarget
	settings   map[string]models.SystemSetting

	nextProposalID uint64
	nextBatchID    uint64
	nextTxnID      uint64
	nextGrantID    uint64
}

func (s *Store) take() snapshot {
	snap := snapshot{
		categories:     map[string]models.CategoryAllocation{},
		proposals:      map[uint64]models.WithdrawalProposal{},
		approvals:      map[uint64]map[string]models.ProposalApproval{},
		batches:        map[uint64]models.BatchDistribution{},
		txns:           append([]models.LedgerTransaction(nil), s.txns...),
		programs:       map[string]models.AwardProgram{},
		grants:         append([]models.ProgramGrant(nil), s.grants...),
		targets:        map[string]models.FundingTarget{},
		settings:       map[string]models.SystemSetting{},
		nextProposalID: s.nextProposalID,
		nextBatchID:    s.nextBatchID,
		nextTxnID:      s.nextTxnID,
		nextGrantID:    s.nextGrantID,
	}
	for k, v := range s.categories {
		snap.categories[k] = v
	}
	for k, v := range s.proposals {
		snap.proposals[k] = v
	}
	for k, m := range s.approvals {
		inner := map[string]models.ProposalApproval{}
		for ak, av := range m {
			inner[ak] = av
		}
		snap.approvals[k] = inner
	}
	for k, v := range s.batches {
		snap.batches[k] = v
	}
	for k, v := range s.programs {
		snap.programs[k] = v
	}
	for k, v := range s.targets {
		snap.targets[k] = v
	}
	for k, v := range s.settings {
		snap.settings[k] = v
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.categories = snap.categories
	s.proposals = snap.proposals
	s.approvals = snap.approvals
	s.batches = snap.batches
	s.txns = snap.txns
	s.programs = snap.programs
	s.grants = snap.grants
	s.targets = snap.targets
	s.settings = snap.settings
	s.nextProposalID = snap.nextProposalID
	s.nextBatchID = snap.nextBatchID
	s.nextTxnID = snap.nextTxnID
	s.nextGrantID = snap.nextGrantID
}

func (s *Store) InTx(ctx context.Context, fn func(tx repository.Repository) error) error {
	s.mu.Lock()
	if s.inTx {
		// Nested transaction: run inline, outer snapshot covers it.
		s.mu.Unlock()
		return fn(s)
	}
	snap := s.take()
	s.inTx = true
	s.mu.Unlock()

	err := fn(s)

	s.mu.Lock()
	s.inTx = false
	if err != nil {
		s.restore(snap)
	}
	s.mu.Unlock()
	return err
}

// --- categories -------------------------------------------------------------

func (s *Store) UpsertCategory(ctx context.Context, item *models.CategoryAllocation) error {
	if item == nil || strings.TrimSpace(item.Name) == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.categories[item.Name]; ok {
		existing.TargetBps = item.TargetBps
		existing.UpdatedAt = time.Now().UTC()
		s.categories[item.Name] = existing
		item.ID = existing.ID
		return nil
	}
	item.ID = uint64(len(s.categories) + 1)
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	s.categories[item.Name] = *item
	return nil
}

func (s *Store) SaveCategory(ctx context.Context, item *models.CategoryAllocation) error {
	if item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[item.Name] = *item
	return nil
}

func (s *Store) GetCategoryByName(ctx context.Context, name string) (*models.CategoryAllocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.categories[strings.TrimSpace(name)]
	if !ok {
		return nil, nil
	}
	out := item
	return &out, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]models.CategoryAllocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]models.CategoryAllocation, 0, len(s.categories))
	for _, item := range s.categories {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

// --- proposals --------------------------------------------------------------

func (s *Store) InsertProposal(ctx context.Context, item *models.WithdrawalProposal) error {
	if item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextProposalID++
	item.ID = s.nextProposalID
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	s.proposals[item.ID] = *item
	return nil
}

func (s *Store) SaveProposal(ctx context.Context, item *models.WithdrawalProposal) error {
	if item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proposals[item.ID] = *item
	return nil
}

func (s *Store) GetProposalByID(ctx context.Context, id uint64) (*models.WithdrawalProposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.proposals[id]
	if !ok {
		return nil, nil
	}
	out := item
	return &out, nil
}

func matchProposal(item models.WithdrawalProposal, params repository.ListProposalsParams) bool {
	if params.Status != nil && *params.Status != "" && item.Status != *params.Status {
		return false
	}
	if params.Category != nil && *params.Category != "" && item.Category != *params.Category {
		return false
	}
	if params.Source != nil && *params.Source != "" && item.Source != *params.Source {
		return false
	}
	if params.Kind != nil && *params.Kind != "" && item.Kind != *params.Kind {
		return false
	}
	return true
}

func (s *Store) ListProposals(ctx context.Context, params repository.ListProposalsParams) ([]models.WithdrawalProposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]models.WithdrawalProposal, 0, len(s.proposals))
	for _, item := range s.proposals {
		if matchProposal(item, params) {
			items = append(items, item)
		}
	}
	asc := params.Asc != nil && *params.Asc
	sort.Slice(items, func(i, j int) bool {
		if asc {
			return items[i].ID < items[j].ID
		}
		return items[i].ID > items[j].ID
	})
	return page(items, params.Limit, params.Offset), nil
}

func (s *Store) CountProposals(ctx context.Context, params repository.ListProposalsParams) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total int64
	for _, item := range s.proposals {
		if matchProposal(item, params) {
			total++
		}
	}
	return total, nil
}

func (s *Store) InsertApproval(ctx context.Context, item *models.ProposalApproval) error {
	if item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	inner, ok := s.approvals[item.ProposalID]
	if !ok {
		inner = map[string]models.ProposalApproval{}
		s.approvals[item.ProposalID] = inner
	}
	// Mirrors the unique (proposal_id, approver_id) index of the gorm store.
	if _, exists := inner[item.ApproverID]; exists {
		return errors.New("duplicate approval")
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	inner[item.ApproverID] = *item
	return nil
}

func (s *Store) HasApproval(ctx context.Context, proposalID uint64, approverID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inner, ok := s.approvals[proposalID]
	if !ok {
		return false, nil
	}
	_, ok = inner[strings.TrimSpace(approverID)]
	return ok, nil
}

// --- batches ----------------------------------------------------------------

func (s *Store) InsertBatch(ctx context.Context, item *models.BatchDistribution) error {
	if item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextBatchID++
	item.ID = s.nextBatchID
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	s.batches[item.ID] = *item
	return nil
}

func (s *Store) SaveBatch(ctx context.Context, item *models.BatchDistribution) error {
	if item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches[item.ID] = *item
	return nil
}

func (s *Store) GetBatchByID(ctx context.Context, id uint64) (*models.BatchDistribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.batches[id]
	if !ok {
		return nil, nil
	}
	out := item
	return &out, nil
}

func (s *Store) ListBatches(ctx context.Context, params repository.ListBatchesParams) ([]models.BatchDistribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]models.BatchDistribution, 0, len(s.batches))
	for _, item := range s.batches {
		if params.Executed != nil && item.Executed != *params.Executed {
			continue
		}
		if params.Category != nil && *params.Category != "" && item.Category != *params.Category {
			continue
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID > items[j].ID })
	return page(items, params.Limit, params.Offset), nil
}

// --- historical log ---------------------------------------------------------

func (s *Store) InsertTransaction(ctx context.Context, item *models.LedgerTransaction) error {
	if item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTxnID++
	item.ID = s.nextTxnID
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	s.txns = append(s.txns, *item)
	return nil
}

func matchTransaction(item models.LedgerTransaction, params repository.ListTransactionsParams) bool {
	if params.Since != nil && !params.Since.IsZero() && item.OccurredAt.Before(*params.Since) {
		return false
	}
	if params.Until != nil && !params.Until.IsZero() && !item.OccurredAt.Before(*params.Until) {
		return false
	}
	if params.TxType != nil && *params.TxType != "" && item.TxType != *params.TxType {
		return false
	}
	if params.Category != nil && *params.Category != "" && item.Category != *params.Category {
		return false
	}
	return true
}

func (s *Store) ListTransactions(ctx context.Context, params repository.ListTransactionsParams) ([]models.LedgerTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]models.LedgerTransaction, 0, len(s.txns))
	for _, item := range s.txns {
		if matchTransaction(item, params) {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID > items[j].ID })
	return page(items, params.Limit, params.Offset), nil
}

func (s *Store) CountTransactions(ctx context.Context, params repository.ListTransactionsParams) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total int64
	for _, item := range s.txns {
		if matchTransaction(item, params) {
			total++
		}
	}
	return total, nil
}

// --- award programs ---------------------------------------------------------

func (s *Store) UpsertProgram(ctx context.Context, item *models.AwardProgram) error {
	if item == nil || strings.TrimSpace(item.ProgramType) == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.programs[item.ProgramType]; ok {
		existing.Category = item.Category
		existing.TotalAllocation = item.TotalAllocation
		existing.VestingDuration = item.VestingDuration
		existing.VestingCliff = item.VestingCliff
		existing.IsActive = item.IsActive
		existing.UpdatedAt = time.Now().UTC()
		s.programs[item.ProgramType] = existing
		item.ID = existing.ID
		item.DistributedAmount = existing.DistributedAmount
		return nil
	}
	item.ID = uint64(len(s.programs) + 1)
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	s.programs[item.ProgramType] = *item
	return nil
}

func (s *Store) SaveProgram(ctx context.Context, item *models.AwardProgram) error {
	if item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.programs[item.ProgramType] = *item
	return nil
}

func (s *Store) GetProgramByType(ctx context.Context, programType string) (*models.AwardProgram, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.programs[strings.TrimSpace(programType)]
	if !ok {
		return nil, nil
	}
	out := item
	return &out, nil
}

func (s *Store) ListPrograms(ctx context.Context) ([]models.AwardProgram, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]models.AwardProgram, 0, len(s.programs))
	for _, item := range s.programs {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ProgramType < items[j].ProgramType })
	return items, nil
}

func (s *Store) InsertGrant(ctx context.Context, item *models.ProgramGrant) error {
	if item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextGrantID++
	item.ID = s.nextGrantID
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	s.grants = append(s.grants, *item)
	return nil
}

func (s *Store) ListGrants(ctx context.Context, params repository.ListGrantsParams) ([]models.ProgramGrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]models.ProgramGrant, 0, len(s.grants))
	for _, item := range s.grants {
		if params.ProgramType != nil && *params.ProgramType != "" && item.ProgramType != *params.ProgramType {
			continue
		}
		if params.Beneficiary != nil && *params.Beneficiary != "" && item.Beneficiary != *params.Beneficiary {
			continue
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID > items[j].ID })
	return page(items, params.Limit, params.Offset), nil
}

// --- funding targets --------------------------------------------------------

func (s *Store) UpsertFundingTarget(ctx context.Context, item *models.FundingTarget) error {
	if item == nil || strings.TrimSpace(item.Address) == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.targets[item.Address]; ok {
		existing.Category = item.Category
		existing.Amount = item.Amount
		existing.Frequency = item.Frequency
		existing.MinimumBalance = item.MinimumBalance
		existing.AutoFundingEnabled = item.AutoFundingEnabled
		existing.UpdatedAt = time.Now().UTC()
		s.targets[item.Address] = existing
		item.ID = existing.ID
		return nil
	}
	item.ID = uint64(len(s.targets) + 1)
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	s.targets[item.Address] = *item
	return nil
}

func (s *Store) SaveFundingTarget(ctx context.Context, item *models.FundingTarget) error {
	if item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targets[item.Address] = *item
	return nil
}

func (s *Store) GetFundingTargetByAddress(ctx context.Context, address string) (*models.FundingTarget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.targets[strings.TrimSpace(address)]
	if !ok {
		return nil, nil
	}
	out := item
	return &out, nil
}

func (s *Store) ListFundingTargets(ctx context.Context) ([]models.FundingTarget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]models.FundingTarget, 0, len(s.targets))
	for _, item := range s.targets {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Address < items[j].Address })
	return items, nil
}

// --- system settings --------------------------------------------------------

func (s *Store) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.settings[strings.TrimSpace(key)]
	if !ok {
		return nil, nil
	}
	out := item
	return &out, nil
}

func (s *Store) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	if item == nil || strings.TrimSpace(item.Key) == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = time.Now().UTC()
	}
	s.settings[item.Key] = *item
	return nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
