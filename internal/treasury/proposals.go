package treasury

import (
	"context"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"treasury/internal/models"
	"treasury/internal/repository"
)

// ProposalRequest is the input to Propose. Source is filled in by the
// service from the actor's role.
type ProposalRequest struct {
	Recipient   string
	Amount      decimal.Decimal
	Category    string
	Description string
}

// Propose opens a withdrawal proposal. The amount is reserved against the
// category immediately, the size tier and execution-eligible time are fixed
// here and never recomputed. Governance callers get a governance provenance
// tag; the state machine is otherwise identical.
func (s *Service) Propose(ctx context.Context, actor Actor, req ProposalRequest) (*models.WithdrawalProposal, error) {
	const op = OpPropose
	if err := s.authorize(op, actor); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureActive(op); err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, errValidation(op, "amount must be positive, got %s", req.Amount)
	}
	if req.Recipient == "" {
		return nil, errValidation(op, "missing recipient")
	}

	source := models.ProposalSourceDirect
	if actor.Role == RoleGovernance {
		source = models.ProposalSourceGovernance
	}

	now := s.now()
	var proposal *models.WithdrawalProposal
	err := s.Repo.InTx(ctx, func(tx repository.Repository) error {
		balance, err := balanceOf(ctx, tx)
		if err != nil {
			return err
		}
		if err := reserveFunds(ctx, tx, op, req.Category, req.Amount, now); err != nil {
			return err
		}

		tier := s.Policy.Tier(req.Amount, balance)
		proposal = &models.WithdrawalProposal{
			Kind:                models.ProposalKindWithdrawal,
			Proposer:            actor.ID,
			Recipient:           req.Recipient,
			Amount:              req.Amount,
			Category:            req.Category,
			Description:         req.Description,
			Source:              source,
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
			Amount:       req.Amount,
			Category:     req.Category,
			Description:  req.Description,
			Reference:    proposalRef(proposal.ID),
			OccurredAt:   now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log().Info("treasury: proposal created",
		zap.Uint64("proposal_id", proposal.ID),
		zap.String("tier", proposal.Tier),
		zap.String("amount", req.Amount.String()),
		zap.String("source", source),
	)
	s.emit("proposal_created", map[string]any{
		"proposal_id": proposal.ID,
		"category":    req.Category,
		"amount":      req.Amount.String(),
		"tier":        proposal.Tier,
		"source":      source,
	})
	return proposal, nil
}

// Approve records one approver's vote. A second vote from the same approver
// is rejected, not silently ignored. When the distinct-approver count reaches
// the multisig threshold the proposal transitions to approved.
func (s *Service) Approve(ctx context.Context, actor Actor, proposalID uint64) (*models.WithdrawalProposal, error) {
	const op = OpApprove
	if err := s.authorize(op, actor); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureActive(op); err != nil {
		return nil, err
	}

	var proposal *models.WithdrawalProposal
	err := s.Repo.InTx(ctx, func(tx repository.Repository) error {
		var err error
		proposal, err = mustProposal(ctx, tx, op, proposalID)
		if err != nil {
			return err
		}
		if proposal.Status != models.ProposalStatusPending {
			return errState(op, "proposal %d is %s, not pending", proposalID, proposal.Status)
		}
		voted, err := tx.HasApproval(ctx, proposalID, actor.ID)
		if err != nil {
			return err
		}
		if voted {
			return errState(op, "proposal %d already approved by %s", proposalID, actor.ID)
		}
		if err := tx.InsertApproval(ctx, &models.ProposalApproval{
			ProposalID: proposalID,
			ApproverID: actor.ID,
			CreatedAt:  s.now(),
		}); err != nil {
			return err
		}
		proposal.ApprovalCount++
		if proposal.ApprovalCount >= s.Threshold {
			proposal.Status = models.ProposalStatusApproved
		}
		proposal.UpdatedAt = s.now()
		return tx.SaveProposal(ctx, proposal)
	})
	if err != nil {
		return nil, err
	}

	s.log().Info("treasury: proposal approved",
		zap.Uint64("proposal_id", proposalID),
		zap.String("approver", actor.ID),
		zap.Int("approvals", proposal.ApprovalCount),
		zap.String("status", proposal.Status),
	)
	s.emit("proposal_approval", map[string]any{
		"proposal_id": proposalID,
		"approver":    actor.ID,
		"approvals":   proposal.ApprovalCount,
		"status":      proposal.Status,
	})
	return proposal, nil
}

// Cancel terminates a pending proposal and releases its reservation.
// Approved proposals cannot be cancelled; they stay actionable until
// executed.
func (s *Service) Cancel(ctx context.Context, actor Actor, proposalID uint64) (*models.WithdrawalProposal, error) {
	const op = OpCancel
	if err := s.authorize(op, actor); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureActive(op); err != nil {
		return nil, err
	}

	now := s.now()
	var proposal *models.WithdrawalProposal
	err := s.Repo.InTx(ctx, func(tx repository.Repository) error {
		var err error
		proposal, err = mustProposal(ctx, tx, op, proposalID)
		if err != nil {
			return err
		}
		if proposal.Status != models.ProposalStatusPending {
			return errState(op, "proposal %d is %s, not pending", proposalID, proposal.Status)
		}
		if err := releaseFunds(ctx, tx, op, proposal.Category, proposal.Amount, now); err != nil {
			return err
		}
		proposal.Status = models.ProposalStatusCancelled
		proposal.UpdatedAt = now
		if err := tx.SaveProposal(ctx, proposal); err != nil {
			return err
		}
		return appendLedger(ctx, tx, &models.LedgerTransaction{
			TxType:       models.TxTypeRelease,
			Counterparty: actor.ID,
			Amount:       proposal.Amount,
			Category:     proposal.Category,
			Description:  "proposal cancelled",
			Reference:    proposalRef(proposalID),
			OccurredAt:   now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log().Info("treasury: proposal cancelled",
		zap.Uint64("proposal_id", proposalID),
		zap.String("actor", actor.ID),
	)
	s.emit("proposal_cancelled", map[string]any{"proposal_id": proposalID, "actor": actor.ID})
	return proposal, nil
}

// Proposal returns one proposal by id.
func (s *Service) Proposal(ctx context.Context, id uint64) (*models.WithdrawalProposal, error) {
	return s.Repo.GetProposalByID(ctx, id)
}

// Proposals returns a filtered page of proposals with the total count.
func (s *Service) Proposals(ctx context.Context, params repository.ListProposalsParams) ([]models.WithdrawalProposal, int64, error) {
	items, err := s.Repo.ListProposals(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.Repo.CountProposals(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func mustProposal(ctx context.Context, tx repository.Repository, op string, id uint64) (*models.WithdrawalProposal, error) {
	p, err := tx.GetProposalByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errValidation(op, "proposal %d not found", id)
	}
	return p, nil
}

func proposalRef(id uint64) string {
	return "proposal:" + strconv.FormatUint(id, 10)
}
