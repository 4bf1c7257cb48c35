package treasury

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"treasury/internal/models"
	"treasury/internal/notify"
	memoryrepository "treasury/internal/repository/memory"
	"treasury/internal/transfer"
)

var (
	admin     = Actor{ID: "root", Role: RoleAdmin}
	operator  = Actor{ID: "ops", Role: RoleOperator}
	proposer  = Actor{ID: "alice", Role: RoleProposer}
	approver  = Actor{ID: "bob", Role: RoleApprover}
	approver2 = Actor{ID: "carol", Role: RoleApprover}
	guardian  = Actor{ID: "guard", Role: RoleGuardian}
)

type env struct {
	t   *testing.T
	svc *Service
	rec *transfer.Recorder
	now time.Time
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		t:   t,
		rec: transfer.NewRecorder(),
		now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	e.svc = &Service{
		Repo:     memoryrepository.New(),
		Transfer: e.rec,
		Balances: e.rec,
		Logger:   zap.NewNop(),
		Policy: DelayPolicy{
			Standard:           48 * time.Hour,
			Large:              168 * time.Hour,
			Emergency:          24 * time.Hour,
			LargeWithdrawalBps: 1000,
		},
		Threshold:         2,
		RecoveryRecipient: "recovery-wallet",
		Now:               func() time.Time { return e.now },
	}
	return e
}

func (e *env) advance(d time.Duration) {
	e.now = e.now.Add(d)
}

func (e *env) seed(split map[string]int64) {
	e.t.Helper()
	if err := e.svc.ApplyAllocationConfig(context.Background(), admin, split); err != nil {
		e.t.Fatalf("seed allocation config: %v", err)
	}
}

func (e *env) deposit(category, amount string) {
	e.t.Helper()
	if err := e.svc.Deposit(context.Background(), operator, category, amt(amount), "test deposit"); err != nil {
		e.t.Fatalf("deposit %s to %s: %v", amount, category, err)
	}
}

func (e *env) allocation(category string) models.CategoryAllocation {
	e.t.Helper()
	c, err := e.svc.Allocation(context.Background(), category)
	if err != nil {
		e.t.Fatalf("get allocation %s: %v", category, err)
	}
	if c == nil {
		e.t.Fatalf("allocation %s missing", category)
	}
	return *c
}

func (e *env) balance() decimal.Decimal {
	e.t.Helper()
	b, err := e.svc.Balance(context.Background())
	if err != nil {
		e.t.Fatalf("get balance: %v", err)
	}
	return b
}

func amt(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func wantEqual(t *testing.T, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(amt(want)) {
		t.Fatalf("got %s, want %s", got, want)
	}
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingEmitter) Emit(event notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event.Type)
}

func (r *recordingEmitter) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	copy(out, r.events)
	return out
}

func TestCapabilityTable(t *testing.T) {
	tests := []struct {
		actor Actor
		op    string
		want  bool
	}{
		{admin, OpUpdateAllocations, true},
		{proposer, OpPropose, true},
		{proposer, OpApprove, false},
		{approver, OpApprove, true},
		{approver, OpPause, false},
		{guardian, OpEmergencyWithdraw, true},
		{operator, OpEmergencyWithdraw, false},
		{Actor{ID: "x", Role: RoleGovernance}, OpPropose, true},
	}
	for _, tt := range tests {
		if got := tt.actor.Can(tt.op); got != tt.want {
			t.Fatalf("Can(%s, %s) = %v, want %v", tt.actor.Role, tt.op, got, tt.want)
		}
	}
}

func TestAuthorizationErrors(t *testing.T) {
	e := newEnv(t)
	e.seed(map[string]int64{"development": 10000})

	err := e.svc.Deposit(context.Background(), proposer, "development", amt("10"), "")
	if !IsKind(err, KindAuthorization) {
		t.Fatalf("expected authorization error, got %v", err)
	}
	_, err = e.svc.Propose(context.Background(), Actor{}, ProposalRequest{Recipient: "r", Amount: amt("1"), Category: "development"})
	if !IsKind(err, KindAuthorization) {
		t.Fatalf("expected authorization error for missing id, got %v", err)
	}
}
