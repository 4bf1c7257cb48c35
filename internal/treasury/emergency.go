package treasury

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"treasury/internal/models"
	"treasury/internal/repository"
)

// Pause suspends every mutating entry point except the emergency controller
// itself. The flag is persisted so a restart comes back paused.
func (s *Service) Pause(ctx context.Context, actor Actor) error {
	const op = OpPause
	if err := s.authorize(op, actor); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused {
		return errState(op, "already paused")
	}
	if err := s.persistPause(ctx, true, actor); err != nil {
		return err
	}
	s.paused = true

	s.log().Warn("treasury: paused", zap.String("actor", actor.ID))
	s.emit("paused", map[string]any{"actor": actor.ID})
	return nil
}

// Unpause resumes normal operation.
func (s *Service) Unpause(ctx context.Context, actor Actor) error {
	const op = OpUnpause
	if err := s.authorize(op, actor); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.paused {
		return errState(op, "not paused")
	}
	if err := s.persistPause(ctx, false, actor); err != nil {
		return err
	}
	s.paused = false

	s.log().Warn("treasury: unpaused", zap.String("actor", actor.ID))
	s.emit("unpaused", map[string]any{"actor": actor.ID})
	return nil
}

// Paused reports the current pause flag.
func (s *Service) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// EmergencyWithdraw opens a single-authority withdrawal that skips the
// multisig step: the proposal is born approved on the emergency tier and
// becomes executable after the short emergency delay. It works while paused.
func (s *Service) EmergencyWithdraw(ctx context.Context, actor Actor, recipient, category string, amount decimal.Decimal, reason string) (*models.WithdrawalProposal, error) {
	const op = OpEmergencyWithdraw
	if err := s.authorize(op, actor); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !amount.IsPositive() {
		return nil, errValidation(op, "amount must be positive, got %s", amount)
	}
	if recipient == "" {
		return nil, errValidation(op, "missing recipient")
	}
	if reason == "" {
		return nil, errValidation(op, "missing reason")
	}

	now := s.now()
	var proposal *models.WithdrawalProposal
	err := s.Repo.InTx(ctx, func(tx repository.Repository) error {
		if err := reserveFunds(ctx, tx, op, category, amount, now); err != nil {
			return err
		}
		proposal = &models.WithdrawalProposal{
			Kind:                models.ProposalKindWithdrawal,
			Proposer:            actor.ID,
			Recipient:           recipient,
			Amount:              amount,
			Category:            category,
			Description:         reason,
			Source:              models.ProposalSourceEmergency,
			Status:              models.ProposalStatusApproved,
			Tier:                models.ProposalTierEmergency,
			ExecutionEligibleAt: s.Policy.EligibleAt(now, models.ProposalTierEmergency),
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		if err := tx.InsertProposal(ctx, proposal); err != nil {
			return err
		}
		return appendLedger(ctx, tx, &models.LedgerTransaction{
			TxType:       models.TxTypeEmergency,
			Counterparty: actor.ID,
			Amount:       amount,
			Category:     category,
			Description:  reason,
			Reference:    proposalRef(proposal.ID),
			OccurredAt:   now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log().Warn("treasury: emergency withdrawal opened",
		zap.Uint64("proposal_id", proposal.ID),
		zap.String("recipient", recipient),
		zap.String("amount", amount.String()),
		zap.String("reason", reason),
	)
	s.emit("emergency_withdrawal", map[string]any{
		"proposal_id": proposal.ID,
		"recipient":   recipient,
		"amount":      amount.String(),
		"reason":      reason,
	})
	return proposal, nil
}

// EmergencyRecovery drains the entire treasury to the designated recovery
// recipient immediately. Last resort; logged and irreversible. Works while
// paused. An empty recipient falls back to the configured recovery address.
func (s *Service) EmergencyRecovery(ctx context.Context, actor Actor, recipient string) (decimal.Decimal, error) {
	const op = OpEmergencyRecovery
	if err := s.authorize(op, actor); err != nil {
		return decimal.Zero, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if recipient == "" {
		recipient = s.RecoveryRecipient
	}
	if recipient == "" {
		return decimal.Zero, errValidation(op, "no recovery recipient configured")
	}

	now := s.now()
	total := decimal.Zero
	err := s.Repo.InTx(ctx, func(tx repository.Repository) error {
		categories, err := tx.ListCategories(ctx)
		if err != nil {
			return err
		}
		for i := range categories {
			held := categories[i].TotalAllocated.Sub(categories[i].TotalSpent)
			if held.IsPositive() {
				total = total.Add(held)
			}
			categories[i].TotalSpent = categories[i].TotalAllocated
			categories[i].Reserved = decimal.Zero
			categories[i].UpdatedAt = now
			if err := tx.SaveCategory(ctx, &categories[i]); err != nil {
				return err
			}
		}
		if !total.IsPositive() {
			return errInsufficientFunds(op, "treasury is empty")
		}
		if err := s.Transfer.Transfer(ctx, recipient, total, "emergency recovery"); err != nil {
			return err
		}
		return appendLedger(ctx, tx, &models.LedgerTransaction{
			TxType:       models.TxTypeRecovery,
			Counterparty: recipient,
			Amount:       total,
			Description:  "emergency recovery",
			OccurredAt:   now,
		})
	})
	if err != nil {
		return decimal.Zero, err
	}

	s.log().Error("treasury: emergency recovery executed",
		zap.String("recipient", recipient),
		zap.String("amount", total.String()),
		zap.String("actor", actor.ID),
	)
	s.emit("emergency_recovery", map[string]any{
		"recipient": recipient,
		"amount":    total.String(),
		"actor":     actor.ID,
	})
	return total, nil
}
