package treasury

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"treasury/internal/models"
	"treasury/internal/repository"
)

// Execute runs an approved, time-eligible proposal: the category is debited,
// value moves to the recipient(s), and the proposal terminates in executed.
// The debit, the transfer, the status flip, and the log entry are one
// transaction; a transfer failure rolls everything back.
func (s *Service) Execute(ctx context.Context, actor Actor, proposalID uint64) (*models.WithdrawalProposal, error) {
	const op = OpExecute
	if err := s.authorize(op, actor); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var proposal *models.WithdrawalProposal
	err := s.Repo.InTx(ctx, func(tx repository.Repository) error {
		var err error
		proposal, err = mustProposal(ctx, tx, op, proposalID)
		if err != nil {
			return err
		}
		// Emergency withdrawals stay executable while paused.
		if s.paused && proposal.Source != models.ProposalSourceEmergency {
			return errState(op, "system is paused")
		}
		if proposal.Status != models.ProposalStatusApproved {
			return errState(op, "proposal %d is %s, not approved", proposalID, proposal.Status)
		}
		if !s.Policy.Ready(*proposal, now) {
			return errState(op, "proposal %d timelock not expired, eligible at %s",
				proposalID, proposal.ExecutionEligibleAt.Format("2006-01-02T15:04:05Z07:00"))
		}

		if proposal.Kind == models.ProposalKindBatch {
			if err := s.executeBatchLegs(ctx, tx, proposal, now); err != nil {
				return err
			}
		} else {
			if err := spendReserved(ctx, tx, op, proposal.Category, proposal.Amount, now, true); err != nil {
				return err
			}
			if err := s.Transfer.Transfer(ctx, proposal.Recipient, proposal.Amount, proposal.Description); err != nil {
				return err
			}
			txType := models.TxTypeWithdrawal
			if proposal.Source == models.ProposalSourceEmergency {
				txType = models.TxTypeEmergency
			}
			if err := appendLedger(ctx, tx, &models.LedgerTransaction{
				TxType:       txType,
				Counterparty: proposal.Recipient,
				Amount:       proposal.Amount,
				Category:     proposal.Category,
				Description:  proposal.Description,
				Reference:    proposalRef(proposalID),
				OccurredAt:   now,
			}); err != nil {
				return err
			}
		}

		proposal.Status = models.ProposalStatusExecuted
		proposal.ExecutedAt = &now
		proposal.UpdatedAt = now
		return tx.SaveProposal(ctx, proposal)
	})
	if err != nil {
		return nil, err
	}

	s.log().Info("treasury: proposal executed",
		zap.Uint64("proposal_id", proposalID),
		zap.String("kind", proposal.Kind),
		zap.String("amount", proposal.Amount.String()),
		zap.String("actor", actor.ID),
	)
	s.emit("proposal_executed", map[string]any{
		"proposal_id": proposalID,
		"kind":        proposal.Kind,
		"category":    proposal.Category,
		"amount":      proposal.Amount.String(),
	})
	return proposal, nil
}

// executeBatchLegs pays out every recipient of the linked batch, all inside
// the caller's transaction. Either every leg lands or none does.
func (s *Service) executeBatchLegs(ctx context.Context, tx repository.Repository, proposal *models.WithdrawalProposal, now time.Time) error {
	const op = OpExecute
	if proposal.BatchID == nil {
		return errState(op, "batch proposal %d has no batch", proposal.ID)
	}
	batch, err := tx.GetBatchByID(ctx, *proposal.BatchID)
	if err != nil {
		return err
	}
	if batch == nil {
		return errState(op, "batch %d not found", *proposal.BatchID)
	}
	if batch.Executed {
		return errState(op, "batch %d already executed", batch.ID)
	}

	var recipients []models.BatchRecipient
	if err := json.Unmarshal(batch.Recipients, &recipients); err != nil {
		return err
	}
	sum := decimal.Zero
	for _, r := range recipients {
		sum = sum.Add(r.Amount)
	}
	if !sum.Equal(batch.TotalAmount) {
		return errValidation(op, "batch %d recipient sum %s does not match total %s", batch.ID, sum, batch.TotalAmount)
	}

	if err := spendReserved(ctx, tx, op, batch.Category, batch.TotalAmount, now, true); err != nil {
		return err
	}
	for _, r := range recipients {
		if err := s.Transfer.Transfer(ctx, r.Recipient, r.Amount, batch.Description); err != nil {
			return err
		}
		if err := appendLedger(ctx, tx, &models.LedgerTransaction{
			TxType:       models.TxTypeBatch,
			Counterparty: r.Recipient,
			Amount:       r.Amount,
			Category:     batch.Category,
			Description:  batch.Description,
			Reference:    batchRef(batch.ID),
			OccurredAt:   now,
		}); err != nil {
			return err
		}
	}

	batch.Executed = true
	batch.ExecutedAt = &now
	batch.UpdatedAt = now
	return tx.SaveBatch(ctx, batch)
}

// BatchRequest is the input to ProposeBatch.
type BatchRequest struct {
	Category    string
	Description string
	Recipients  []models.BatchRecipient
}

// ProposeBatch opens a batch distribution. The recipient list is frozen, the
// total is reserved, and a batch-kind proposal enters the same
// approval/timelock machine as single withdrawals.
func (s *Service) ProposeBatch(ctx context.Context, actor Actor, req BatchRequest) (*models.WithdrawalProposal, error) {
	const op = OpProposeBatch
	if err := s.authorize(op, actor); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureActive(op); err != nil {
		return nil, err
	}
	if len(req.Recipients) == 0 {
		return nil, errValidation(op, "empty recipient list")
	}
	total := decimal.Zero
	for i, r := range req.Recipients {
		if r.Recipient == "" {
			return nil, errValidation(op, "recipient %d is empty", i)
		}
		if !r.Amount.IsPositive() {
			return nil, errValidation(op, "recipient %d amount must be positive, got %s", i, r.Amount)
		}
		total = total.Add(r.Amount)
	}

	now := s.now()
	var proposal *models.WithdrawalProposal
	err := s.Repo.InTx(ctx, func(tx repository.Repository) error {
		balance, err := balanceOf(ctx, tx)
		if err != nil {
			return err
		}
		if err := reserveFunds(ctx, tx, op, req.Category, total, now); err != nil {
			return err
		}

		raw, err := json.Marshal(req.Recipients)
		if err != nil {
			return err
		}
		batch := &models.BatchDistribution{
			Category:    req.Category,
			Description: req.Description,
			Recipients:  datatypes.JSON(raw),
			TotalAmount: total,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.InsertBatch(ctx, batch); err != nil {
			return err
		}

		tier := s.Policy.Tier(total, balance)
		proposal = &models.WithdrawalProposal{
			Kind:                models.ProposalKindBatch,
			BatchID:             &batch.ID,
			Proposer:            actor.ID,
			Recipient:           batchRef(batch.ID),
			Amount:              total,
			Category:            req.Category,
			Description:         req.Description,
			Source:              models.ProposalSourceDirect,
			Status:              models.ProposalStatusPending,
			Tier:                tier,
			IsLargeWithdrawal:   tier == models.ProposalTierLarge,
			ExecutionEligibleAt: s.Policy.EligibleAt(now, tier),
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		if err := tx.InsertProposal(ctx, proposal); err != nil {
			return err
		}
		return appendLedger(ctx, tx, &models.LedgerTransaction{
			TxType:       models.TxTypeReserve,
			Counterparty: actor.ID,
			Amount:       total,
			Category:     req.Category,
			Description:  req.Description,
			Reference:    batchRef(batch.ID),
			OccurredAt:   now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log().Info("treasury: batch proposed",
		zap.Uint64("proposal_id", proposal.ID),
		zap.Uint64("batch_id", *proposal.BatchID),
		zap.Int("recipients", len(req.Recipients)),
		zap.String("total", total.String()),
	)
	s.emit("batch_proposed", map[string]any{
		"proposal_id": proposal.ID,
		"batch_id":    *proposal.BatchID,
		"category":    req.Category,
		"total":       total.String(),
		"recipients":  len(req.Recipients),
	})
	return proposal, nil
}

// Batch returns one batch by id.
func (s *Service) Batch(ctx context.Context, id uint64) (*models.BatchDistribution, error) {
	return s.Repo.GetBatchByID(ctx, id)
}

// Batches returns a filtered page of batch distributions.
func (s *Service) Batches(ctx context.Context, params repository.ListBatchesParams) ([]models.BatchDistribution, error) {
	return s.Repo.ListBatches(ctx, params)
}

func batchRef(id uint64) string {
	return "batch:" + strconv.FormatUint(id, 10)
}
