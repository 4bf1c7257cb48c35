package treasury

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"treasury/internal/models"
	"treasury/internal/repository"
)

// ApplyAllocationConfig creates or retargets the category set. The new bps
// must sum to exactly 10000; a failing update leaves the prior configuration
// untouched. Existing balances are never moved by a retarget, only the split
// of future deposits changes.
func (s *Service) ApplyAllocationConfig(ctx context.Context, actor Actor, allocationBps map[string]int64) error {
	const op = OpUpdateAllocations
	if err := s.authorize(op, actor); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureActive(op); err != nil {
		return err
	}

	if len(allocationBps) == 0 {
		return errValidation(op, "no categories configured")
	}
	var sum int64
	for name, bps := range allocationBps {
		if name == "" {
			return errValidation(op, "empty category name")
		}
		if bps <= 0 {
			return errValidation(op, "category %q has non-positive bps %d", name, bps)
		}
		sum += bps
	}
	if sum != bpsDenominator {
		return errValidation(op, "allocation bps sum to %d, want %d", sum, bpsDenominator)
	}

	err := s.Repo.InTx(ctx, func(tx repository.Repository) error {
		existing, err := tx.ListCategories(ctx)
		if err != nil {
			return err
		}
		byName := make(map[string]models.CategoryAllocation, len(existing))
		for _, c := range existing {
			byName[c.Name] = c
		}
		for name, c := range byName {
			if _, keep := allocationBps[name]; keep {
				continue
			}
			// A category holding funds cannot be silently dropped.
			if !c.TotalAllocated.Sub(c.TotalSpent).IsZero() {
				return errValidation(op, "category %q still holds funds", name)
			}
			c.TargetBps = 0
			c.UpdatedAt = s.now()
			if err := tx.SaveCategory(ctx, &c); err != nil {
				return err
			}
		}
		for name, bps := range allocationBps {
			c, ok := byName[name]
			if !ok {
				c = models.CategoryAllocation{
					Name:           name,
					TotalAllocated: decimal.Zero,
					TotalSpent:     decimal.Zero,
					Reserved:       decimal.Zero,
				}
			}
			c.TargetBps = bps
			c.UpdatedAt = s.now()
			if err := tx.UpsertCategory(ctx, &c); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log().Info("treasury: allocation config applied",
		zap.Int("categories", len(allocationBps)),
		zap.String("actor", actor.ID),
	)
	s.emit("allocation_config_updated", map[string]any{"actor": actor.ID, "categories": len(allocationBps)})
	return nil
}

// Deposit credits inbound value to the ledger. The amount is split across all
// active categories pro-rata by their target bps; the named category only tags
// the inbound source in the log. Rounding dust from the split lands in the
// named category so the credited total is exact.
func (s *Service) Deposit(ctx context.Context, actor Actor, category string, amount decimal.Decimal, description string) error {
	const op = OpDeposit
	if err := s.authorize(op, actor); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureActive(op); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return errValidation(op, "amount must be positive, got %s", amount)
	}

	now := s.now()
	err := s.Repo.InTx(ctx, func(tx repository.Repository) error {
		categories, err := activeCategories(ctx, tx)
		if err != nil {
			return err
		}
		if len(categories) == 0 {
			return errValidation(op, "no categories configured")
		}
		tagged := -1
		for i, c := range categories {
			if c.Name == category {
				tagged = i
				break
			}
		}
		if tagged < 0 {
			return errValidation(op, "unknown category %q", category)
		}

		remainder := amount
		for i := range categories {
			if i == tagged {
				continue
			}
			share := amount.Mul(decimal.NewFromInt(categories[i].TargetBps)).
				Div(decimal.NewFromInt(bpsDenominator)).
				RoundDown(10)
			categories[i].TotalAllocated = categories[i].TotalAllocated.Add(share)
			categories[i].UpdatedAt = now
			remainder = remainder.Sub(share)
			if err := tx.SaveCategory(ctx, &categories[i]); err != nil {
				return err
			}
		}
		categories[tagged].TotalAllocated = categories[tagged].TotalAllocated.Add(remainder)
		categories[tagged].UpdatedAt = now
		if err := tx.SaveCategory(ctx, &categories[tagged]); err != nil {
			return err
		}

		return appendLedger(ctx, tx, &models.LedgerTransaction{
			TxType:       models.TxTypeDeposit,
			Counterparty: actor.ID,
			Amount:       amount,
			Category:     category,
			Description:  description,
			OccurredAt:   now,
		})
	})
	if err != nil {
		return err
	}

	s.log().Info("treasury: deposit",
		zap.String("category", category),
		zap.String("amount", amount.String()),
		zap.String("actor", actor.ID),
	)
	s.emit("deposit", map[string]any{"category": category, "amount": amount.String(), "actor": actor.ID})
	return nil
}

// Reserve fences amount off from a category's available funds without
// changing the total balance.
func (s *Service) Reserve(ctx context.Context, actor Actor, category string, amount decimal.Decimal) error {
	const op = OpReserve
	if err := s.authorize(op, actor); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureActive(op); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return errValidation(op, "amount must be positive, got %s", amount)
	}
	return s.Repo.InTx(ctx, func(tx repository.Repository) error {
		if err := reserveFunds(ctx, tx, op, category, amount, s.now()); err != nil {
			return err
		}
		return appendLedger(ctx, tx, &models.LedgerTransaction{
			TxType:       models.TxTypeReserve,
			Counterparty: actor.ID,
			Amount:       amount,
			Category:     category,
			OccurredAt:   s.now(),
		})
	})
}

// Release returns previously reserved funds to a category's available pool.
func (s *Service) Release(ctx context.Context, actor Actor, category string, amount decimal.Decimal) error {
	const op = OpRelease
	if err := s.authorize(op, actor); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureActive(op); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return errValidation(op, "amount must be positive, got %s", amount)
	}
	return s.Repo.InTx(ctx, func(tx repository.Repository) error {
		if err := releaseFunds(ctx, tx, op, category, amount, s.now()); err != nil {
			return err
		}
		return appendLedger(ctx, tx, &models.LedgerTransaction{
			TxType:       models.TxTypeRelease,
			Counterparty: actor.ID,
			Amount:       amount,
			Category:     category,
			OccurredAt:   s.now(),
		})
	})
}

// Rebalance moves available funds from one category to another. Total balance
// is unchanged; only the per-category split moves.
func (s *Service) Rebalance(ctx context.Context, actor Actor, fromCategory, toCategory string, amount decimal.Decimal) error {
	const op = OpRebalance
	if err := s.authorize(op, actor); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureActive(op); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return errValidation(op, "amount must be positive, got %s", amount)
	}
	if fromCategory == toCategory {
		return errValidation(op, "source and destination are both %q", fromCategory)
	}

	now := s.now()
	err := s.Repo.InTx(ctx, func(tx repository.Repository) error {
		from, err := mustCategory(ctx, tx, op, fromCategory)
		if err != nil {
			return err
		}
		to, err := mustCategory(ctx, tx, op, toCategory)
		if err != nil {
			return err
		}
		if from.Available().LessThan(amount) {
			return errInsufficientFunds(op, "category %q has %s available, need %s", fromCategory, from.Available(), amount)
		}
		from.TotalAllocated = from.TotalAllocated.Sub(amount)
		from.UpdatedAt = now
		to.TotalAllocated = to.TotalAllocated.Add(amount)
		to.UpdatedAt = now
		if err := tx.SaveCategory(ctx, from); err != nil {
			return err
		}
		if err := tx.SaveCategory(ctx, to); err != nil {
			return err
		}
		return appendLedger(ctx, tx, &models.LedgerTransaction{
			TxType:       models.TxTypeRebalance,
			Counterparty: actor.ID,
			Amount:       amount,
			Category:     fromCategory,
			Description:  "rebalance to " + toCategory,
			OccurredAt:   now,
		})
	})
	if err != nil {
		return err
	}

	s.emit("rebalance", map[string]any{
		"from": fromCategory, "to": toCategory, "amount": amount.String(), "actor": actor.ID,
	})
	return nil
}

// Balance returns the current treasury balance.
func (s *Service) Balance(ctx context.Context) (decimal.Decimal, error) {
	return balanceOf(ctx, s.Repo)
}

// Allocation returns one category's ledger record.
func (s *Service) Allocation(ctx context.Context, category string) (*models.CategoryAllocation, error) {
	return s.Repo.GetCategoryByName(ctx, category)
}

// Allocations returns all active categories, stable-ordered by name.
func (s *Service) Allocations(ctx context.Context) ([]models.CategoryAllocation, error) {
	categories, err := activeCategories(ctx, s.Repo)
	if err != nil {
		return nil, err
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	return categories, nil
}

// History returns a page of the append-only transaction log.
func (s *Service) History(ctx context.Context, params repository.ListTransactionsParams) ([]models.LedgerTransaction, int64, error) {
	items, err := s.Repo.ListTransactions(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.Repo.CountTransactions(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func activeCategories(ctx context.Context, tx repository.Repository) ([]models.CategoryAllocation, error) {
	all, err := tx.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	active := all[:0]
	for _, c := range all {
		if c.TargetBps > 0 {
			active = append(active, c)
		}
	}
	return active, nil
}

func mustCategory(ctx context.Context, tx repository.Repository, op, name string) (*models.CategoryAllocation, error) {
	c, err := tx.GetCategoryByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, errValidation(op, "unknown category %q", name)
	}
	return c, nil
}

func reserveFunds(ctx context.Context, tx repository.Repository, op, category string, amount decimal.Decimal, now time.Time) error {
	c, err := mustCategory(ctx, tx, op, category)
	if err != nil {
		return err
	}
	if c.Available().LessThan(amount) {
		return errInsufficientFunds(op, "category %q has %s available, need %s", category, c.Available(), amount)
	}
	c.Reserved = c.Reserved.Add(amount)
	c.UpdatedAt = now
	return tx.SaveCategory(ctx, c)
}

func releaseFunds(ctx context.Context, tx repository.Repository, op, category string, amount decimal.Decimal, now time.Time) error {
	c, err := mustCategory(ctx, tx, op, category)
	if err != nil {
		return err
	}
	if c.Reserved.LessThan(amount) {
		return errValidation(op, "category %q has %s reserved, cannot release %s", category, c.Reserved, amount)
	}
	c.Reserved = c.Reserved.Sub(amount)
	c.UpdatedAt = now
	return tx.SaveCategory(ctx, c)
}

// spendReserved consumes a reservation: reserved goes down, spent goes up.
// Used by the execute paths where funds were reserved at proposal time.
func spendReserved(ctx context.Context, tx repository.Repository, op, category string, amount decimal.Decimal, now time.Time, last bool) error {
	c, err := mustCategory(ctx, tx, op, category)
	if err != nil {
		return err
	}
	if c.Reserved.LessThan(amount) {
		return errState(op, "category %q reservation %s below %s", category, c.Reserved, amount)
	}
	c.Reserved = c.Reserved.Sub(amount)
	c.TotalSpent = c.TotalSpent.Add(amount)
	if last {
		t := now
		c.LastDistribution = &t
	}
	c.UpdatedAt = now
	return tx.SaveCategory(ctx, c)
}

// spendAvailable debits a category directly, without a prior reservation.
// Used by program payouts, funding top-ups, and the emergency paths.
func spendAvailable(ctx context.Context, tx repository.Repository, op, category string, amount decimal.Decimal, now time.Time) error {
	c, err := mustCategory(ctx, tx, op, category)
	if err != nil {
		return err
	}
	if c.Available().LessThan(amount) {
		return errInsufficientFunds(op, "category %q has %s available, need %s", category, c.Available(), amount)
	}
	c.TotalSpent = c.TotalSpent.Add(amount)
	t := now
	c.LastDistribution = &t
	c.UpdatedAt = now
	return tx.SaveCategory(ctx, c)
}
