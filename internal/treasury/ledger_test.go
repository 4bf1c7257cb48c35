package treasury

import (
	"context"
	"testing"

	"treasury/internal/models"
	"treasury/internal/repository"
)

func TestAllocationConfigMustSumToTenThousand(t *testing.T) {
	e := newEnv(t)
	err := e.svc.ApplyAllocationConfig(context.Background(), admin, map[string]int64{
		"development": 5000,
		"marketing":   4000,
	})
	if !IsKind(err, KindValidation) {
		t.Fatalf("expected validation error for 9000 bps, got %v", err)
	}

	e.seed(map[string]int64{"development": 6000, "marketing": 4000})

	// A bad update must leave the prior configuration untouched.
	err = e.svc.ApplyAllocationConfig(context.Background(), admin, map[string]int64{
		"development": 9999,
	})
	if !IsKind(err, KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if got := e.allocation("development").TargetBps; got != 6000 {
		t.Fatalf("development bps = %d after failed update, want 6000", got)
	}
}

func TestDepositSplitsAcrossCategories(t *testing.T) {
	e := newEnv(t)
	e.seed(map[string]int64{
		"development": 3000,
		"marketing":   2000,
		"operations":  3000,
		"reserves":    2000,
	})
	e.deposit("development", "100")

	wantEqual(t, e.allocation("development").TotalAllocated, "30")
	wantEqual(t, e.allocation("marketing").TotalAllocated, "20")
	wantEqual(t, e.allocation("operations").TotalAllocated, "30")
	wantEqual(t, e.allocation("reserves").TotalAllocated, "20")
	wantEqual(t, e.balance(), "100")
}

func TestDepositRejectsBadInput(t *testing.T) {
	e := newEnv(t)
	e.seed(map[string]int64{"development": 10000})

	err := e.svc.Deposit(context.Background(), operator, "development", amt("0"), "")
	if !IsKind(err, KindValidation) {
		t.Fatalf("expected validation error for zero amount, got %v", err)
	}
	err = e.svc.Deposit(context.Background(), operator, "nonexistent", amt("10"), "")
	if !IsKind(err, KindValidation) {
		t.Fatalf("expected validation error for unknown category, got %v", err)
	}
	wantEqual(t, e.balance(), "0")
}

func TestReserveReleaseInvariant(t *testing.T) {
	e := newEnv(t)
	e.seed(map[string]int64{"development": 10000})
	e.deposit("development", "100")

	if err := e.svc.Reserve(context.Background(), operator, "development", amt("40")); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	c := e.allocation("development")
	wantEqual(t, c.Reserved, "40")
	wantEqual(t, c.Available(), "60")
	wantEqual(t, e.balance(), "100")

	err := e.svc.Reserve(context.Background(), operator, "development", amt("61"))
	if !IsKind(err, KindInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	err = e.svc.Release(context.Background(), operator, "development", amt("41"))
	if !IsKind(err, KindValidation) {
		t.Fatalf("expected validation error releasing more than reserved, got %v", err)
	}

	if err := e.svc.Release(context.Background(), operator, "development", amt("40")); err != nil {
		t.Fatalf("release: %v", err)
	}
	c = e.allocation("development")
	wantEqual(t, c.Reserved, "0")
	wantEqual(t, c.Available(), "100")
}

func TestRebalanceMovesFundsBetweenCategories(t *testing.T) {
	e := newEnv(t)
	e.seed(map[string]int64{"development": 6000, "marketing": 4000})
	e.deposit("development", "50")

	wantEqual(t, e.allocation("development").Available(), "30")
	wantEqual(t, e.allocation("marketing").Available(), "20")

	if err := e.svc.Rebalance(context.Background(), admin, "development", "marketing", amt("5")); err != nil {
		t.Fatalf("rebalance: %v", err)
	}
	wantEqual(t, e.allocation("development").Available(), "25")
	wantEqual(t, e.allocation("marketing").Available(), "25")
	wantEqual(t, e.balance(), "50")

	err := e.svc.Rebalance(context.Background(), admin, "development", "marketing", amt("26"))
	if !IsKind(err, KindInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
}

func TestEveryMutationAppendsLedgerEntry(t *testing.T) {
	e := newEnv(t)
	e.seed(map[string]int64{"development": 10000})
	e.deposit("development", "100")
	if err := e.svc.Reserve(context.Background(), operator, "development", amt("10")); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := e.svc.Release(context.Background(), operator, "development", amt("10")); err != nil {
		t.Fatalf("release: %v", err)
	}

	items, total, err := e.svc.History(context.Background(), repository.ListTransactionsParams{Limit: 100})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if total != 3 || len(items) != 3 {
		t.Fatalf("expected 3 ledger entries, got %d (total %d)", len(items), total)
	}
	seen := map[string]bool{}
	for _, item := range items {
		seen[item.TxType] = true
	}
	for _, want := range []string{models.TxTypeDeposit, models.TxTypeReserve, models.TxTypeRelease} {
		if !seen[want] {
			t.Fatalf("missing %s ledger entry, got %v", want, seen)
		}
	}
}

func TestDepositEmitsEvent(t *testing.T) {
	e := newEnv(t)
	emitter := &recordingEmitter{}
	e.svc.Events = emitter
	e.seed(map[string]int64{"development": 10000})
	e.deposit("development", "10")

	found := false
	for _, typ := range emitter.types() {
		if typ == "deposit" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a deposit event, got %v", emitter.types())
	}
}
