package treasury

import (
	"context"
	"testing"
	"time"

	"treasury/internal/models"
	"treasury/internal/repository"
)

func TestPauseGatesMutations(t *testing.T) {
	e := newEnv(t)
	e.seed(map[string]int64{"development": 10000})
	e.deposit("development", "100")

	if err := e.svc.Pause(context.Background(), guardian); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if !e.svc.Paused() {
		t.Fatalf("expected paused")
	}

	err := e.svc.Deposit(context.Background(), operator, "development", amt("10"), "")
	if !IsKind(err, KindState) {
		t.Fatalf("expected state error depositing while paused, got %v", err)
	}
	_, err = e.svc.Propose(context.Background(), proposer, ProposalRequest{
		Recipient: "vendor-1", Amount: amt("5"), Category: "development",
	})
	if !IsKind(err, KindState) {
		t.Fatalf("expected state error proposing while paused, got %v", err)
	}

	if err := e.svc.Unpause(context.Background(), guardian); err != nil {
		t.Fatalf("unpause: %v", err)
	}
	if err := e.svc.Deposit(context.Background(), operator, "development", amt("10"), ""); err != nil {
		t.Fatalf("deposit after unpause: %v", err)
	}
}

func TestPauseIsPersisted(t *testing.T) {
	e := newEnv(t)
	e.seed(map[string]int64{"development": 10000})
	if err := e.svc.Pause(context.Background(), guardian); err != nil {
		t.Fatalf("pause: %v", err)
	}

	// A fresh service over the same store comes back paused.
	restarted := &Service{
		Repo:      e.svc.Repo,
		Transfer:  e.rec,
		Balances:  e.rec,
		Policy:    e.svc.Policy,
		Threshold: e.svc.Threshold,
		Now:       func() time.Time { return e.now },
	}
	if err := restarted.LoadState(context.Background()); err != nil {
		t.Fatalf("load state: %v", err)
	}
	if !restarted.Paused() {
		t.Fatalf("pause flag lost across restart")
	}
}

func TestDoublePauseRejected(t *testing.T) {
	e := newEnv(t)
	if err := e.svc.Pause(context.Background(), guardian); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := e.svc.Pause(context.Background(), guardian); !IsKind(err, KindState) {
		t.Fatalf("expected state error on double pause, got %v", err)
	}
	if err := e.svc.Unpause(context.Background(), guardian); err != nil {
		t.Fatalf("unpause: %v", err)
	}
	if err := e.svc.Unpause(context.Background(), guardian); !IsKind(err, KindState) {
		t.Fatalf("expected state error on double unpause, got %v", err)
	}
}

func TestEmergencyWithdrawBypassesPauseAndMultisig(t *testing.T) {
	e := newEnv(t)
	e.seed(map[string]int64{"development": 10000})
	e.deposit("development", "100")
	if err := e.svc.Pause(context.Background(), guardian); err != nil {
		t.Fatalf("pause: %v", err)
	}

	proposal, err := e.svc.EmergencyWithdraw(context.Background(), guardian, "safe-wallet", "development", amt("10"), "key compromise")
	if err != nil {
		t.Fatalf("emergency withdraw while paused: %v", err)
	}
	if proposal.Status != models.ProposalStatusApproved {
		t.Fatalf("emergency proposal should be born approved, got %s", proposal.Status)
	}
	if proposal.Tier != models.ProposalTierEmergency || proposal.Source != models.ProposalSourceEmergency {
		t.Fatalf("tier=%s source=%s", proposal.Tier, proposal.Source)
	}
	wantDelay := e.now.Add(24 * time.Hour)
	if !proposal.ExecutionEligibleAt.Equal(wantDelay) {
		t.Fatalf("eligible at %v, want %v", proposal.ExecutionEligibleAt, wantDelay)
	}

	// The emergency delay still applies.
	_, err = e.svc.Execute(context.Background(), guardian, proposal.ID)
	if !IsKind(err, KindState) {
		t.Fatalf("expected state error before emergency delay, got %v", err)
	}

	// Executable after the delay, still paused.
	e.advance(24 * time.Hour)
	if _, err := e.svc.Execute(context.Background(), guardian, proposal.ID); err != nil {
		t.Fatalf("execute emergency while paused: %v", err)
	}
	wantEqual(t, e.balance(), "90")

	// Logged distinctly from normal withdrawals.
	txType := models.TxTypeEmergency
	items, _, err := e.svc.History(context.Background(), repository.ListTransactionsParams{Limit: 100, TxType: &txType})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(items) < 2 {
		t.Fatalf("expected emergency entries for trigger and execution, got %d", len(items))
	}
}

func TestNormalProposalStaysBlockedWhilePaused(t *testing.T) {
	e := newEnv(t)
	e.seed(map[string]int64{"development": 10000})
	e.deposit("development", "100")

	proposal, err := e.svc.Propose(context.Background(), proposer, ProposalRequest{
		Recipient: "vendor-1", Amount: amt("5"), Category: "development",
	})
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	approveAndWait(t, e, proposal.ID)

	if err := e.svc.Pause(context.Background(), guardian); err != nil {
		t.Fatalf("pause: %v", err)
	}
	_, err = e.svc.Execute(context.Background(), operator, proposal.ID)
	if !IsKind(err, KindState) {
		t.Fatalf("expected state error executing normal proposal while paused, got %v", err)
	}
}

func TestEmergencyRecoveryDrainsEverything(t *testing.T) {
	e := newEnv(t)
	e.seed(map[string]int64{"development": 6000, "marketing": 4000})
	e.deposit("development", "100")
	if err := e.svc.Reserve(context.Background(), operator, "development", amt("20")); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	total, err := e.svc.EmergencyRecovery(context.Background(), guardian, "")
	if err != nil {
		t.Fatalf("recovery: %v", err)
	}
	wantEqual(t, total, "100")
	wantEqual(t, e.balance(), "0")

	transfers := e.rec.Transfers()
	if len(transfers) != 1 || transfers[0].Recipient != "recovery-wallet" {
		t.Fatalf("expected drain to configured recovery recipient, got %+v", transfers)
	}

	txType := models.TxTypeRecovery
	items, _, err := e.svc.History(context.Background(), repository.ListTransactionsParams{Limit: 10, TxType: &txType})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected one recovery log entry, got %d", len(items))
	}

	// Nothing left to drain.
	_, err = e.svc.EmergencyRecovery(context.Background(), guardian, "")
	if !IsKind(err, KindInsufficientFunds) {
		t.Fatalf("expected insufficient funds on empty treasury, got %v", err)
	}
}

func TestEmergencyRequiresGuardian(t *testing.T) {
	e := newEnv(t)
	e.seed(map[string]int64{"development": 10000})
	e.deposit("development", "100")

	_, err := e.svc.EmergencyWithdraw(context.Background(), admin, "safe", "development", amt("1"), "drill")
	if !IsKind(err, KindAuthorization) {
		t.Fatalf("expected authorization error for admin, got %v", err)
	}
	_, err = e.svc.EmergencyRecovery(context.Background(), operator, "")
	if !IsKind(err, KindAuthorization) {
		t.Fatalf("expected authorization error for operator, got %v", err)
	}
}
