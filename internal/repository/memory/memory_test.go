package memoryrepository

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"treasury/internal/models"
	"treasury/internal/repository"
)

func TestInTxRollsBackOnError(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.UpsertCategory(ctx, &models.CategoryAllocation{Name: "development", TargetBps: 10000}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	boom := errors.New("boom")
	err := s.InTx(ctx, func(tx repository.Repository) error {
		c, err := tx.GetCategoryByName(ctx, "development")
		if err != nil {
			t.Fatalf("get inside tx: %v", err)
		}
		c.TotalAllocated = decimal.NewFromInt(100)
		if err := tx.SaveCategory(ctx, c); err != nil {
			t.Fatalf("save inside tx: %v", err)
		}
		if err := tx.InsertTransaction(ctx, &models.LedgerTransaction{TxType: models.TxTypeDeposit}); err != nil {
			t.Fatalf("insert inside tx: %v", err)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected the callback error, got %v", err)
	}

	c, err := s.GetCategoryByName(ctx, "development")
	if err != nil {
		t.Fatalf("get after rollback: %v", err)
	}
	if !c.TotalAllocated.IsZero() {
		t.Fatalf("category mutation survived rollback: %s", c.TotalAllocated)
	}
	items, err := s.ListTransactions(ctx, repository.ListTransactionsParams{Limit: 10})
	if err != nil {
		t.Fatalf("list after rollback: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("ledger entry survived rollback")
	}
}

func TestInTxCommitsOnSuccess(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.InTx(ctx, func(tx repository.Repository) error {
		return tx.UpsertCategory(ctx, &models.CategoryAllocation{Name: "marketing", TargetBps: 10000})
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}
	c, err := s.GetCategoryByName(ctx, "marketing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if c == nil || c.TargetBps != 10000 {
		t.Fatalf("committed category missing: %+v", c)
	}
}

func TestApprovalUniqueness(t *testing.T) {
	s := New()
	ctx := context.Background()

	p := &models.WithdrawalProposal{Proposer: "alice", Recipient: "r", Category: "development"}
	if err := s.InsertProposal(ctx, p); err != nil {
		t.Fatalf("insert proposal: %v", err)
	}
	if err := s.InsertApproval(ctx, &models.ProposalApproval{ProposalID: p.ID, ApproverID: "bob"}); err != nil {
		t.Fatalf("first approval: %v", err)
	}
	if err := s.InsertApproval(ctx, &models.ProposalApproval{ProposalID: p.ID, ApproverID: "bob"}); err == nil {
		t.Fatalf("duplicate approval accepted")
	}
	voted, err := s.HasApproval(ctx, p.ID, "bob")
	if err != nil {
		t.Fatalf("has approval: %v", err)
	}
	if !voted {
		t.Fatalf("approval not recorded")
	}
}
