package treasury

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"treasury/internal/models"
)

type fakeVesting struct {
	calls []VestingScheduleRequest
	err   error
}

func (f *fakeVesting) CreateSchedule(ctx context.Context, req VestingScheduleRequest) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.calls = append(f.calls, req)
	return fmt.Sprintf("sched-%d", len(f.calls)), nil
}

func configureProgram(t *testing.T, e *env, programType, category, cap string, vest, cliff time.Duration) {
	t.Helper()
	_, err := e.svc.ConfigureProgram(context.Background(), admin, ProgramConfig{
		ProgramType:     programType,
		Category:        category,
		TotalAllocation: amt(cap),
		VestingDuration: vest,
		VestingCliff:    cliff,
	})
	if err != nil {
		t.Fatalf("configure %s: %v", programType, err)
	}
}

func TestProgramCapEnforced(t *testing.T) {
	e := newEnv(t)
	e.seed(map[string]int64{"community": 10000})
	e.deposit("community", "250")
	configureProgram(t, e, models.ProgramCommunityRewards, "community", "200", 0, 0)

	_, err := e.svc.DistributeProgram(context.Background(), operator, models.ProgramCommunityRewards, []ProgramPayout{
		{Beneficiary: "user-1", Amount: amt("150")},
	})
	if err != nil {
		t.Fatalf("first distribution: %v", err)
	}

	_, err = e.svc.DistributeProgram(context.Background(), operator, models.ProgramCommunityRewards, []ProgramPayout{
		{Beneficiary: "user-2", Amount: amt("60")},
	})
	if !IsKind(err, KindInsufficientFunds) {
		t.Fatalf("expected insufficient funds over cap, got %v", err)
	}

	program, err := e.svc.Program(context.Background(), models.ProgramCommunityRewards)
	if err != nil {
		t.Fatalf("get program: %v", err)
	}
	wantEqual(t, program.DistributedAmount, "150")
}

func TestProgramConfigValidation(t *testing.T) {
	e := newEnv(t)
	e.seed(map[string]int64{"community": 10000})

	_, err := e.svc.ConfigureProgram(context.Background(), admin, ProgramConfig{
		ProgramType:     "yacht_fund",
		Category:        "community",
		TotalAllocation: amt("100"),
	})
	if !IsKind(err, KindValidation) {
		t.Fatalf("expected validation error for unknown program type, got %v", err)
	}

	_, err = e.svc.ConfigureProgram(context.Background(), admin, ProgramConfig{
		ProgramType:     models.ProgramAirdrop,
		Category:        "community",
		TotalAllocation: amt("100"),
		VestingDuration: time.Hour,
		VestingCliff:    2 * time.Hour,
	})
	if !IsKind(err, KindValidation) {
		t.Fatalf("expected validation error for cliff > duration, got %v", err)
	}
}

func TestProgramCapCannotDropBelowDistributed(t *testing.T) {
	e := newEnv(t)
	e.seed(map[string]int64{"community": 10000})
	e.deposit("community", "100")
	configureProgram(t, e, models.ProgramAirdrop, "community", "50", 0, 0)

	if _, err := e.svc.DistributeProgram(context.Background(), operator, models.ProgramAirdrop, []ProgramPayout{
		{Beneficiary: "user-1", Amount: amt("40")},
	}); err != nil {
		t.Fatalf("distribute: %v", err)
	}

	_, err := e.svc.ConfigureProgram(context.Background(), admin, ProgramConfig{
		ProgramType:     models.ProgramAirdrop,
		Category:        "community",
		TotalAllocation: amt("30"),
	})
	if !IsKind(err, KindValidation) {
		t.Fatalf("expected validation error lowering cap below distributed, got %v", err)
	}
}

func TestVestingDelegation(t *testing.T) {
	e := newEnv(t)
	vest := &fakeVesting{}
	e.svc.Vesting = vest
	e.seed(map[string]int64{"community": 10000})
	e.deposit("community", "100")
	configureProgram(t, e, models.ProgramStakingRewards, "community", "100", 90*24*time.Hour, 30*24*time.Hour)

	grants, err := e.svc.DistributeProgram(context.Background(), operator, models.ProgramStakingRewards, []ProgramPayout{
		{Beneficiary: "staker-1", Amount: amt("20")},
	})
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}
	if len(grants) != 1 || grants[0].ScheduleID != "sched-1" {
		t.Fatalf("expected grant with schedule id, got %+v", grants)
	}
	if len(vest.calls) != 1 {
		t.Fatalf("expected 1 vesting call, got %d", len(vest.calls))
	}
	call := vest.calls[0]
	if call.Beneficiary != "staker-1" || !call.Amount.Equal(amt("20")) {
		t.Fatalf("unexpected vesting request: %+v", call)
	}
	if call.VestingDuration != 90*24*time.Hour || call.CliffDuration != 30*24*time.Hour {
		t.Fatalf("vesting parameters not forwarded: %+v", call)
	}

	// Vesting payouts never move value immediately.
	if len(e.rec.Transfers()) != 0 {
		t.Fatalf("expected no immediate transfers, got %v", e.rec.Transfers())
	}
	// The pool is still debited when the schedule is created.
	wantEqual(t, e.allocation("community").Available(), "80")
}

func TestVestingFailureRollsBackDistribution(t *testing.T) {
	e := newEnv(t)
	e.svc.Vesting = &fakeVesting{err: errors.New("vesting service down")}
	e.seed(map[string]int64{"community": 10000})
	e.deposit("community", "100")
	configureProgram(t, e, models.ProgramStakingRewards, "community", "100", 90*24*time.Hour, 0)

	_, err := e.svc.DistributeProgram(context.Background(), operator, models.ProgramStakingRewards, []ProgramPayout{
		{Beneficiary: "staker-1", Amount: amt("20")},
	})
	if err == nil {
		t.Fatalf("expected distribution to fail")
	}
	wantEqual(t, e.allocation("community").Available(), "100")
	program, err := e.svc.Program(context.Background(), models.ProgramStakingRewards)
	if err != nil {
		t.Fatalf("get program: %v", err)
	}
	wantEqual(t, program.DistributedAmount, "0")
}

func TestEngagementBonusMultiplier(t *testing.T) {
	e := newEnv(t)
	e.seed(map[string]int64{"community": 10000})
	e.deposit("community", "100")
	configureProgram(t, e, models.ProgramEngagement, "community", "100", 0, 0)

	grants, err := e.svc.DistributeProgram(context.Background(), operator, models.ProgramEngagement, []ProgramPayout{
		{Beneficiary: "casual", Amount: amt("10"), EngagementPoints: 100},
		{Beneficiary: "power-user", Amount: amt("10"), EngagementPoints: 101},
	})
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}
	byUser := map[string]models.ProgramGrant{}
	for _, g := range grants {
		byUser[g.Beneficiary] = g
	}
	// At the threshold: base rate. Above it: 1.5x.
	wantEqual(t, byUser["casual"].Amount, "10")
	wantEqual(t, byUser["power-user"].Amount, "15")

	program, err := e.svc.Program(context.Background(), models.ProgramEngagement)
	if err != nil {
		t.Fatalf("get program: %v", err)
	}
	wantEqual(t, program.DistributedAmount, "25")
}

func TestUnconfiguredProgramRejected(t *testing.T) {
	e := newEnv(t)
	e.seed(map[string]int64{"community": 10000})
	e.deposit("community", "100")

	_, err := e.svc.DistributeProgram(context.Background(), operator, models.ProgramAirdrop, []ProgramPayout{
		{Beneficiary: "user-1", Amount: amt("5")},
	})
	if !IsKind(err, KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestEnsureDefaultProgramsSeedsOnlyAbsent(t *testing.T) {
	e := newEnv(t)
	e.seed(map[string]int64{"community": 10000})
	configureProgram(t, e, models.ProgramAirdrop, "community", "200", 0, 0)

	err := e.svc.EnsureDefaultPrograms(context.Background(), admin, map[string]ProgramConfig{
		models.ProgramAirdrop: {Category: "community", TotalAllocation: amt("999")},
		models.ProgramCommunityRewards: {
			Category:        "community",
			TotalAllocation: amt("100"),
			VestingDuration: 90 * 24 * time.Hour,
			VestingCliff:    30 * 24 * time.Hour,
		},
	})
	if err != nil {
		t.Fatalf("ensure defaults: %v", err)
	}

	airdrop, err := e.svc.Program(context.Background(), models.ProgramAirdrop)
	if err != nil {
		t.Fatalf("get airdrop: %v", err)
	}
	if !airdrop.TotalAllocation.Equal(amt("200")) {
		t.Fatalf("existing program was reconfigured, cap = %s", airdrop.TotalAllocation)
	}

	community, err := e.svc.Program(context.Background(), models.ProgramCommunityRewards)
	if err != nil {
		t.Fatalf("get community rewards: %v", err)
	}
	if community == nil || !community.IsActive {
		t.Fatalf("absent program was not seeded: %+v", community)
	}
	wantEqual(t, community.TotalAllocation, "100")
	if community.VestingDuration != 90*24*time.Hour || community.VestingCliff != 30*24*time.Hour {
		t.Fatalf("vesting not carried over: %s / %s", community.VestingDuration, community.VestingCliff)
	}

	// Idempotent across restarts.
	err = e.svc.EnsureDefaultPrograms(context.Background(), admin, map[string]ProgramConfig{
		models.ProgramCommunityRewards: {Category: "community", TotalAllocation: amt("1")},
	})
	if err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	community, err = e.svc.Program(context.Background(), models.ProgramCommunityRewards)
	if err != nil {
		t.Fatalf("get after second ensure: %v", err)
	}
	wantEqual(t, community.TotalAllocation, "100")
}
