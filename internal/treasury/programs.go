package treasury

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"treasury/internal/models"
	"treasury/internal/repository"
)

// Engagement payouts above the point threshold get the bonus multiplier.
// These are policy constants, not per-call parameters.
const (
	engagementBonusThreshold int64 = 100
	engagementBonusNumerator int64 = 15 // 1.5x, expressed as 15/10
)

var knownPrograms = map[string]bool{
	models.ProgramCommunityRewards: true,
	models.ProgramAirdrop:          true,
	models.ProgramStakingRewards:   true,
	models.ProgramEngagement:       true,
}

// ProgramConfig is the input to ConfigureProgram.
type ProgramConfig struct {
	ProgramType     string
	Category        string
	TotalAllocation decimal.Decimal
	VestingDuration time.Duration
	VestingCliff    time.Duration
}

// ConfigureProgram creates or reconfigures an award program and activates it.
// The cap may be raised or lowered, but never below what was already
// distributed.
func (s *Service) ConfigureProgram(ctx context.Context, actor Actor, cfg ProgramConfig) (*models.AwardProgram, error) {
	const op = OpConfigureProgram
	if err := s.authorize(op, actor); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureActive(op); err != nil {
		return nil, err
	}
	if !knownPrograms[cfg.ProgramType] {
		return nil, errValidation(op, "unknown program type %q", cfg.ProgramType)
	}
	if !cfg.TotalAllocation.IsPositive() {
		return nil, errValidation(op, "total allocation must be positive, got %s", cfg.TotalAllocation)
	}
	if cfg.VestingCliff > cfg.VestingDuration {
		return nil, errValidation(op, "cliff %s exceeds vesting duration %s", cfg.VestingCliff, cfg.VestingDuration)
	}

	now := s.now()
	var program *models.AwardProgram
	err := s.Repo.InTx(ctx, func(tx repository.Repository) error {
		if _, err := mustCategory(ctx, tx, op, cfg.Category); err != nil {
			return err
		}
		existing, err := tx.GetProgramByType(ctx, cfg.ProgramType)
		if err != nil {
			return err
		}
		if existing == nil {
			existing = &models.AwardProgram{
				ProgramType:       cfg.ProgramType,
				DistributedAmount: decimal.Zero,
				CreatedAt:         now,
			}
		}
		if cfg.TotalAllocation.LessThan(existing.DistributedAmount) {
			return errValidation(op, "cap %s below already distributed %s", cfg.TotalAllocation, existing.DistributedAmount)
		}
		existing.Category = cfg.Category
		existing.TotalAllocation = cfg.TotalAllocation
		existing.VestingDuration = cfg.VestingDuration
		existing.VestingCliff = cfg.VestingCliff
		existing.IsActive = true
		existing.UpdatedAt = now
		program = existing
		return tx.UpsertProgram(ctx, program)
	})
	if err != nil {
		return nil, err
	}

	s.log().Info("treasury: program configured",
		zap.String("program", cfg.ProgramType),
		zap.String("category", cfg.Category),
		zap.String("cap", cfg.TotalAllocation.String()),
	)
	s.emit("program_configured", map[string]any{
		"program":  cfg.ProgramType,
		"category": cfg.Category,
		"cap":      cfg.TotalAllocation.String(),
	})
	return program, nil
}

// EnsureDefaultPrograms configures any of the given programs that do not
// exist yet. Programs already in the store keep their current settings, so a
// restart never undoes an operator's reconfiguration. The map key is the
// program type and overrides whatever ProgramType the seed carries.
func (s *Service) EnsureDefaultPrograms(ctx context.Context, actor Actor, seeds map[string]ProgramConfig) error {
	for programType, seed := range seeds {
		existing, err := s.Program(ctx, programType)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		seed.ProgramType = programType
		if _, err := s.ConfigureProgram(ctx, actor, seed); err != nil {
			return err
		}
	}
	return nil
}

// ProgramPayout is one leg of a program distribution. EngagementPoints only
// matters for the engagement program, where crossing the threshold applies
// the bonus multiplier to the base amount.
type ProgramPayout struct {
	Beneficiary      string
	Amount           decimal.Decimal
	EngagementPoints int64
}

// DistributeProgram pays out one or more beneficiaries from a program's pool.
// Programs with vesting configured delegate schedule creation to the vesting
// collaborator instead of transferring immediately; the returned schedule id
// is stored on the grant. The whole distribution is atomic.
func (s *Service) DistributeProgram(ctx context.Context, actor Actor, programType string, payouts []ProgramPayout) ([]models.ProgramGrant, error) {
	const op = OpDistributeProgram
	if err := s.authorize(op, actor); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureActive(op); err != nil {
		return nil, err
	}
	if len(payouts) == 0 {
		return nil, errValidation(op, "empty payout list")
	}
	for i, p := range payouts {
		if p.Beneficiary == "" {
			return nil, errValidation(op, "payout %d has no beneficiary", i)
		}
		if !p.Amount.IsPositive() {
			return nil, errValidation(op, "payout %d amount must be positive, got %s", i, p.Amount)
		}
	}

	now := s.now()
	var grants []models.ProgramGrant
	err := s.Repo.InTx(ctx, func(tx repository.Repository) error {
		program, err := tx.GetProgramByType(ctx, programType)
		if err != nil {
			return err
		}
		if program == nil {
			return errValidation(op, "program %q not configured", programType)
		}
		if !program.IsActive {
			return errState(op, "program %q is inactive", programType)
		}

		amounts := make([]decimal.Decimal, len(payouts))
		total := decimal.Zero
		for i, p := range payouts {
			amounts[i] = p.Amount
			if programType == models.ProgramEngagement && p.EngagementPoints > engagementBonusThreshold {
				amounts[i] = p.Amount.Mul(decimal.NewFromInt(engagementBonusNumerator)).Div(decimal.NewFromInt(10))
			}
			total = total.Add(amounts[i])
		}
		remaining := program.TotalAllocation.Sub(program.DistributedAmount)
		if total.GreaterThan(remaining) {
			return errInsufficientFunds(op, "program %q: %s exceeds remaining allocation %s", programType, total, remaining)
		}

		if err := spendAvailable(ctx, tx, op, program.Category, total, now); err != nil {
			return err
		}

		vesting := program.VestingDuration > 0
		for i, p := range payouts {
			grant := models.ProgramGrant{
				ProgramType: programType,
				Beneficiary: p.Beneficiary,
				Amount:      amounts[i],
				CreatedAt:   now,
			}
			if vesting {
				if s.Vesting == nil {
					return errState(op, "program %q requires vesting but no delegate is configured", programType)
				}
				scheduleID, err := s.Vesting.CreateSchedule(ctx, VestingScheduleRequest{
					Beneficiary:     p.Beneficiary,
					Amount:          amounts[i],
					StartTime:       now,
					CliffDuration:   program.VestingCliff,
					VestingDuration: program.VestingDuration,
					Tag:             programType,
				})
				if err != nil {
					return err
				}
				grant.ScheduleID = scheduleID
			} else {
				if err := s.Transfer.Transfer(ctx, p.Beneficiary, amounts[i], programType); err != nil {
					return err
				}
			}
			if err := tx.InsertGrant(ctx, &grant); err != nil {
				return err
			}
			if err := appendLedger(ctx, tx, &models.LedgerTransaction{
				TxType:       models.TxTypeProgram,
				Counterparty: p.Beneficiary,
				Amount:       amounts[i],
				Category:     program.Category,
				Description:  programType,
				Reference:    "program:" + programType,
				OccurredAt:   now,
			}); err != nil {
				return err
			}
			grants = append(grants, grant)
		}

		program.DistributedAmount = program.DistributedAmount.Add(total)
		program.UpdatedAt = now
		return tx.SaveProgram(ctx, program)
	})
	if err != nil {
		return nil, err
	}

	s.log().Info("treasury: program distribution",
		zap.String("program", programType),
		zap.Int("payouts", len(payouts)),
		zap.String("actor", actor.ID),
	)
	s.emit("program_distribution", map[string]any{
		"program": programType,
		"payouts": len(payouts),
	})
	return grants, nil
}

// Program returns one program's status by type.
func (s *Service) Program(ctx context.Context, programType string) (*models.AwardProgram, error) {
	return s.Repo.GetProgramByType(ctx, programType)
}

// Programs returns all configured programs.
func (s *Service) Programs(ctx context.Context) ([]models.AwardProgram, error) {
	return s.Repo.ListPrograms(ctx)
}

// Grants returns a filtered page of program grants.
func (s *Service) Grants(ctx context.Context, params repository.ListGrantsParams) ([]models.ProgramGrant, error) {
	return s.Repo.ListGrants(ctx, params)
}
