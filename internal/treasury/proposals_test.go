package treasury

import (
	"context"
	"testing"
	"time"

	"treasury/internal/models"
)

func TestWithdrawalLifecycle(t *testing.T) {
	e := newEnv(t)
	e.seed(map[string]int64{
		"development": 3000,
		"marketing":   2000,
		"operations":  3000,
		"reserves":    2000,
	})
	e.deposit("development", "100")

	proposal, err := e.svc.Propose(context.Background(), proposer, ProposalRequest{
		Recipient:   "vendor-1",
		Amount:      amt("5"),
		Category:    "development",
		Description: "audit retainer",
	})
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if proposal.Status != models.ProposalStatusPending {
		t.Fatalf("status = %s, want pending", proposal.Status)
	}
	if proposal.Tier != models.ProposalTierStandard || proposal.IsLargeWithdrawal {
		t.Fatalf("5 of 100 should be a standard withdrawal, got tier %s", proposal.Tier)
	}
	wantEqual(t, e.allocation("development").Reserved, "5")

	// Execution before approval is a state error.
	_, err = e.svc.Execute(context.Background(), operator, proposal.ID)
	if !IsKind(err, KindState) {
		t.Fatalf("expected state error executing pending proposal, got %v", err)
	}

	if _, err := e.svc.Approve(context.Background(), approver, proposal.ID); err != nil {
		t.Fatalf("first approval: %v", err)
	}
	updated, err := e.svc.Approve(context.Background(), approver2, proposal.ID)
	if err != nil {
		t.Fatalf("second approval: %v", err)
	}
	if updated.Status != models.ProposalStatusApproved || updated.ApprovalCount != 2 {
		t.Fatalf("after threshold: status=%s count=%d", updated.Status, updated.ApprovalCount)
	}

	// Approved but timelock not expired.
	_, err = e.svc.Execute(context.Background(), operator, proposal.ID)
	if !IsKind(err, KindState) {
		t.Fatalf("expected state error before delay, got %v", err)
	}

	e.advance(48 * time.Hour)
	executed, err := e.svc.Execute(context.Background(), operator, proposal.ID)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if executed.Status != models.ProposalStatusExecuted || executed.ExecutedAt == nil {
		t.Fatalf("status = %s, executedAt = %v", executed.Status, executed.ExecutedAt)
	}
	wantEqual(t, e.allocation("development").Available(), "25")
	wantEqual(t, e.allocation("development").Reserved, "0")
	wantEqual(t, e.balance(), "95")

	transfers := e.rec.Transfers()
	if len(transfers) != 1 || transfers[0].Recipient != "vendor-1" || !transfers[0].Amount.Equal(amt("5")) {
		t.Fatalf("unexpected transfers: %+v", transfers)
	}

	// A terminal proposal cannot be executed again.
	_, err = e.svc.Execute(context.Background(), operator, proposal.ID)
	if !IsKind(err, KindState) {
		t.Fatalf("expected state error re-executing, got %v", err)
	}
}

func TestDuplicateApproverRejected(t *testing.T) {
	e := newEnv(t)
	e.seed(map[string]int64{"development": 10000})
	e.deposit("development", "100")

	proposal, err := e.svc.Propose(context.Background(), proposer, ProposalRequest{
		Recipient: "vendor-1",
		Amount:    amt("5"),
		Category:  "development",
	})
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if _, err := e.svc.Approve(context.Background(), approver, proposal.ID); err != nil {
		t.Fatalf("first approval: %v", err)
	}
	_, err = e.svc.Approve(context.Background(), approver, proposal.ID)
	if !IsKind(err, KindState) {
		t.Fatalf("expected state error on duplicate approval, got %v", err)
	}
	current, err := e.svc.Proposal(context.Background(), proposal.ID)
	if err != nil {
		t.Fatalf("get proposal: %v", err)
	}
	if current.ApprovalCount != 1 || current.Status != models.ProposalStatusPending {
		t.Fatalf("duplicate approval mutated state: count=%d status=%s", current.ApprovalCount, current.Status)
	}
}

func TestLargeWithdrawalTierFixedAtCreation(t *testing.T) {
	e := newEnv(t)
	e.seed(map[string]int64{"development": 10000})
	e.deposit("development", "100")

	// 15 of 100 exceeds the 10% large-withdrawal threshold.
	proposal, err := e.svc.Propose(context.Background(), proposer, ProposalRequest{
		Recipient: "vendor-1",
		Amount:    amt("15"),
		Category:  "development",
	})
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if !proposal.IsLargeWithdrawal || proposal.Tier != models.ProposalTierLarge {
		t.Fatalf("15 of 100 should be large, got tier %s", proposal.Tier)
	}

	if _, err := e.svc.Approve(context.Background(), approver, proposal.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := e.svc.Approve(context.Background(), approver2, proposal.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	// Depositing more does not reclassify the proposal.
	e.deposit("development", "900")
	current, err := e.svc.Proposal(context.Background(), proposal.ID)
	if err != nil {
		t.Fatalf("get proposal: %v", err)
	}
	if !current.IsLargeWithdrawal {
		t.Fatalf("tier was recomputed after balance change")
	}

	// The standard delay is not enough for a large withdrawal.
	e.advance(48 * time.Hour)
	_, err = e.svc.Execute(context.Background(), operator, proposal.ID)
	if !IsKind(err, KindState) {
		t.Fatalf("expected timelock state error after standard delay, got %v", err)
	}

	e.advance(120 * time.Hour) // 168h total
	if _, err := e.svc.Execute(context.Background(), operator, proposal.ID); err != nil {
		t.Fatalf("execute after large delay: %v", err)
	}
}

func TestProposeRejectsOverAvailable(t *testing.T) {
	e := newEnv(t)
	e.seed(map[string]int64{"development": 10000})
	e.deposit("development", "100")

	_, err := e.svc.Propose(context.Background(), proposer, ProposalRequest{
		Recipient: "vendor-1",
		Amount:    amt("101"),
		Category:  "development",
	})
	if !IsKind(err, KindInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	// A failed proposal leaves no reservation behind.
	wantEqual(t, e.allocation("development").Reserved, "0")
}

func TestCancelReleasesReservation(t *testing.T) {
	e := newEnv(t)
	e.seed(map[string]int64{"development": 10000})
	e.deposit("development", "100")

	proposal, err := e.svc.Propose(context.Background(), proposer, ProposalRequest{
		Recipient: "vendor-1",
		Amount:    amt("30"),
		Category:  "development",
	})
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	wantEqual(t, e.allocation("development").Available(), "70")

	cancelled, err := e.svc.Cancel(context.Background(), proposer, proposal.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != models.ProposalStatusCancelled {
		t.Fatalf("status = %s, want cancelled", cancelled.Status)
	}
	wantEqual(t, e.allocation("development").Available(), "100")
	wantEqual(t, e.allocation("development").Reserved, "0")

	// Only pending proposals can be cancelled.
	_, err = e.svc.Cancel(context.Background(), proposer, proposal.ID)
	if !IsKind(err, KindState) {
		t.Fatalf("expected state error cancelling twice, got %v", err)
	}
}

func TestApprovedProposalCannotBeCancelled(t *testing.T) {
	e := newEnv(t)
	e.seed(map[string]int64{"development": 10000})
	e.deposit("development", "100")

	proposal, err := e.svc.Propose(context.Background(), proposer, ProposalRequest{
		Recipient: "vendor-1",
		Amount:    amt("5"),
		Category:  "development",
	})
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if _, err := e.svc.Approve(context.Background(), approver, proposal.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := e.svc.Approve(context.Background(), approver2, proposal.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	_, err = e.svc.Cancel(context.Background(), proposer, proposal.ID)
	if !IsKind(err, KindState) {
		t.Fatalf("expected state error cancelling approved proposal, got %v", err)
	}
}

func TestGovernanceProposalTagged(t *testing.T) {
	e := newEnv(t)
	e.seed(map[string]int64{"development": 10000})
	e.deposit("development", "100")

	dao := Actor{ID: "dao", Role: RoleGovernance}
	proposal, err := e.svc.Propose(context.Background(), dao, ProposalRequest{
		Recipient: "grant-recipient",
		Amount:    amt("8"),
		Category:  "development",
	})
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if proposal.Source != models.ProposalSourceGovernance {
		t.Fatalf("source = %s, want governance", proposal.Source)
	}
}
