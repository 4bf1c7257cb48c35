package treasury

import (
	"time"

	"github.com/shopspring/decimal"

	"treasury/internal/models"
)

const bpsDenominator = 10000

// DelayPolicy maps a proposal tier to its mandatory execution delay. It is the
// single strategy object both the normal and the emergency withdrawal paths
// are parameterized by.
type DelayPolicy struct {
	Standard  time.Duration
	Large     time.Duration
	Emergency time.Duration

	// LargeWithdrawalBps: a proposal is large when
	// amount > LargeWithdrawalBps * balance / 10000, measured at creation.
	LargeWithdrawalBps int64
}

func (p DelayPolicy) delay(tier string) time.Duration {
	switch tier {
	case models.ProposalTierLarge:
		return p.Large
	case models.ProposalTierEmergency:
		return p.Emergency
	default:
		return p.Standard
	}
}

// Tier classifies a withdrawal against the balance at proposal time. The
// result is stored on the proposal and never recomputed.
func (p DelayPolicy) Tier(amount, balance decimal.Decimal) string {
	threshold := balance.Mul(decimal.NewFromInt(p.LargeWithdrawalBps)).Div(decimal.NewFromInt(bpsDenominator))
	if amount.GreaterThan(threshold) {
		return models.ProposalTierLarge
	}
	return models.ProposalTierStandard
}

// EligibleAt computes the earliest legal execution time for a proposal.
func (p DelayPolicy) EligibleAt(createdAt time.Time, tier string) time.Time {
	return createdAt.Add(p.delay(tier))
}

// Ready is the lazy is-ready check: no timers, evaluated whenever execution
// is attempted.
func (p DelayPolicy) Ready(proposal models.WithdrawalProposal, now time.Time) bool {
	if proposal.Status != models.ProposalStatusApproved {
		return false
	}
	return !now.Before(proposal.ExecutionEligibleAt)
}
