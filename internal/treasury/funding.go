package treasury

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"treasury/internal/models"
	"treasury/internal/repository"
)

// FundingTargetConfig is the input to ConfigureFundingTarget.
type FundingTargetConfig struct {
	Address            string
	Category           string
	Amount             decimal.Decimal
	Frequency          time.Duration
	MinimumBalance     decimal.Decimal
	AutoFundingEnabled bool
}

// ConfigureFundingTarget registers or updates a dependent external account
// the treasury keeps topped up.
func (s *Service) ConfigureFundingTarget(ctx context.Context, actor Actor, cfg FundingTargetConfig) (*models.FundingTarget, error) {
	const op = OpConfigureFunding
	if err := s.authorize(op, actor); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureActive(op); err != nil {
		return nil, err
	}
	if cfg.Address == "" {
		return nil, errValidation(op, "missing target address")
	}
	if !cfg.Amount.IsPositive() {
		return nil, errValidation(op, "funding amount must be positive, got %s", cfg.Amount)
	}
	if cfg.Frequency <= 0 {
		return nil, errValidation(op, "frequency must be positive, got %s", cfg.Frequency)
	}
	if cfg.MinimumBalance.IsNegative() {
		return nil, errValidation(op, "minimum balance cannot be negative, got %s", cfg.MinimumBalance)
	}

	now := s.now()
	var target *models.FundingTarget
	err := s.Repo.InTx(ctx, func(tx repository.Repository) error {
		if _, err := mustCategory(ctx, tx, op, cfg.Category); err != nil {
			return err
		}
		existing, err := tx.GetFundingTargetByAddress(ctx, cfg.Address)
		if err != nil {
			return err
		}
		if existing == nil {
			existing = &models.FundingTarget{Address: cfg.Address, CreatedAt: now}
		}
		existing.Category = cfg.Category
		existing.Amount = cfg.Amount
		existing.Frequency = cfg.Frequency
		existing.MinimumBalance = cfg.MinimumBalance
		existing.AutoFundingEnabled = cfg.AutoFundingEnabled
		existing.UpdatedAt = now
		target = existing
		return tx.UpsertFundingTarget(ctx, target)
	})
	if err != nil {
		return nil, err
	}

	s.log().Info("treasury: funding target configured",
		zap.String("address", cfg.Address),
		zap.String("category", cfg.Category),
		zap.String("amount", cfg.Amount.String()),
	)
	return target, nil
}

// CheckAndFund tops up one target if its balance is below the minimum and the
// funding frequency has elapsed. An explicit check reaches targets whose
// automatic funding is switched off; the sweep never does. Returns whether a
// transfer happened; an eligible-but-unfunded target (balance fine, too soon)
// is a no-op, not an error.
func (s *Service) CheckAndFund(ctx context.Context, actor Actor, address string) (bool, error) {
	const op = OpTriggerFunding
	if err := s.authorize(op, actor); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureActive(op); err != nil {
		return false, err
	}
	return s.checkAndFund(ctx, address, true)
}

func (s *Service) checkAndFund(ctx context.Context, address string, onDemand bool) (bool, error) {
	const op = OpTriggerFunding
	target, err := s.Repo.GetFundingTargetByAddress(ctx, address)
	if err != nil {
		return false, err
	}
	if target == nil {
		return false, errValidation(op, "unknown funding target %q", address)
	}
	if !target.AutoFundingEnabled && !onDemand {
		return false, nil
	}

	now := s.now()
	if target.LastFunding != nil && now.Sub(*target.LastFunding) < target.Frequency {
		return false, nil
	}
	balance, err := s.Balances.Balance(ctx, address)
	if err != nil {
		return false, err
	}
	if balance.GreaterThanOrEqual(target.MinimumBalance) {
		return false, nil
	}

	err = s.Repo.InTx(ctx, func(tx repository.Repository) error {
		if err := spendAvailable(ctx, tx, op, target.Category, target.Amount, now); err != nil {
			return err
		}
		if err := s.Transfer.Transfer(ctx, target.Address, target.Amount, "auto funding"); err != nil {
			return err
		}
		target.LastFunding = &now
		target.UpdatedAt = now
		if err := tx.SaveFundingTarget(ctx, target); err != nil {
			return err
		}
		return appendLedger(ctx, tx, &models.LedgerTransaction{
			TxType:       models.TxTypeFunding,
			Counterparty: target.Address,
			Amount:       target.Amount,
			Category:     target.Category,
			Description:  "auto funding",
			Reference:    "target:" + target.Address,
			OccurredAt:   now,
		})
	})
	if err != nil {
		return false, err
	}

	s.log().Info("treasury: funding target topped up",
		zap.String("address", target.Address),
		zap.String("amount", target.Amount.String()),
	)
	s.emit("funding_triggered", map[string]any{
		"address":  target.Address,
		"category": target.Category,
		"amount":   target.Amount.String(),
	})
	return true, nil
}

// TriggerAll sweeps every registered target. A failure on one target is
// logged and does not stop the sweep; the returned count is the number of
// transfers made.
func (s *Service) TriggerAll(ctx context.Context, actor Actor) (int, error) {
	const op = OpTriggerFunding
	if err := s.authorize(op, actor); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureActive(op); err != nil {
		return 0, err
	}

	targets, err := s.Repo.ListFundingTargets(ctx)
	if err != nil {
		return 0, err
	}
	funded := 0
	for _, t := range targets {
		ok, err := s.checkAndFund(ctx, t.Address, false)
		if err != nil {
			s.log().Warn("treasury: funding sweep target failed",
				zap.String("address", t.Address),
				zap.Error(err),
			)
			continue
		}
		if ok {
			funded++
		}
	}
	return funded, nil
}

// FundingTarget returns one target's configuration.
func (s *Service) FundingTarget(ctx context.Context, address string) (*models.FundingTarget, error) {
	return s.Repo.GetFundingTargetByAddress(ctx, address)
}

// FundingTargets returns all registered targets.
func (s *Service) FundingTargets(ctx context.Context) ([]models.FundingTarget, error) {
	return s.Repo.ListFundingTargets(ctx)
}
