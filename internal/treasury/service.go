package treasury

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"treasury/internal/models"
	"treasury/internal/notify"
	"treasury/internal/repository"
	"treasury/internal/transfer"
)

const pauseSettingKey = "treasury_paused"

// VestingDelegate creates release schedules for award programs that vest.
// The treasury stores the returned schedule id and never interprets the
// vesting math itself.
type VestingDelegate interface {
	CreateSchedule(ctx context.Context, req VestingScheduleRequest) (string, error)
}

type VestingScheduleRequest struct {
	Beneficiary     string
	Amount          decimal.Decimal
	StartTime       time.Time
	CliffDuration   time.Duration
	VestingDuration time.Duration
	Tag             string
}

// Service is the treasury: the allocation ledger, the approval/timelock state
// machine, batch distribution, award programs, funding monitor, and the
// emergency controller behind one mutex. All mutating operations serialize on
// mu and run inside one repository transaction, so each either fully applies
// (state + ledger log) or leaves nothing behind.
type Service struct {
	Repo     repository.Repository
	Transfer transfer.Transferer
	Balances transfer.BalanceReader
	Vesting  VestingDelegate
	Events   notify.Emitter
	Logger   *zap.Logger

	Policy            DelayPolicy
	Threshold         int
	RecoveryRecipient string

	// Now overrides the clock; nil means time.Now. Timelock readiness and
	// funding frequency are evaluated against it lazily, no timers.
	Now func() time.Time

	mu     sync.Mutex
	paused bool
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) log() *zap.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return zap.NewNop()
}

func (s *Service) emit(eventType string, fields map[string]any) {
	if s.Events == nil {
		return
	}
	s.Events.Emit(notify.Event{Type: eventType, At: s.now(), Fields: fields})
}

func (s *Service) authorize(op string, actor Actor) error {
	if actor.ID == "" {
		return errAuthorization(op, "missing actor id")
	}
	if !actor.Can(op) {
		return errAuthorization(op, "role %q may not perform %s", actor.Role, op)
	}
	return nil
}

// ensureActive rejects mutating calls while the system is paused. The
// emergency controller does not go through it.
func (s *Service) ensureActive(op string) error {
	if s.paused {
		return errState(op, "system is paused")
	}
	return nil
}

// LoadState restores the persisted pause flag. Called once at startup, before
// the service accepts traffic.
func (s *Service) LoadState(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	setting, err := s.Repo.GetSystemSettingByKey(ctx, pauseSettingKey)
	if err != nil {
		return err
	}
	if setting == nil {
		return nil
	}
	var state pauseState
	if err := json.Unmarshal(setting.Value, &state); err != nil {
		return err
	}
	s.paused = state.Paused
	return nil
}

type pauseState struct {
	Paused    bool      `json:"paused"`
	ChangedBy string    `json:"changed_by"`
	ChangedAt time.Time `json:"changed_at"`
}

func (s *Service) persistPause(ctx context.Context, paused bool, actor Actor) error {
	raw, err := json.Marshal(pauseState{Paused: paused, ChangedBy: actor.ID, ChangedAt: s.now()})
	if err != nil {
		return err
	}
	return s.Repo.UpsertSystemSetting(ctx, &models.SystemSetting{
		Key:         pauseSettingKey,
		Value:       datatypes.JSON(raw),
		Description: "global mutation pause flag",
		UpdatedAt:   s.now(),
	})
}

// balanceOf computes the treasury balance visible through tx:
// sum over categories of totalAllocated - totalSpent. Reservations do not
// reduce it; they only fence off available funds within a category.
func balanceOf(ctx context.Context, tx repository.Repository) (decimal.Decimal, error) {
	categories, err := tx.ListCategories(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, c := range categories {
		total = total.Add(c.TotalAllocated.Sub(c.TotalSpent))
	}
	return total, nil
}

// appendLedger writes one append-only log row with the balance as it stands
// after the mutation, inside the same transaction.
func appendLedger(ctx context.Context, tx repository.Repository, entry *models.LedgerTransaction) error {
	balance, err := balanceOf(ctx, tx)
	if err != nil {
		return err
	}
	entry.ResultingBalance = balance
	return tx.InsertTransaction(ctx, entry)
}
