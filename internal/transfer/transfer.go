package transfer

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// Transferer is the settlement-layer primitive the treasury assumes: it moves
// value to an address synchronously and either fully succeeds or fully fails.
type Transferer interface {
	Transfer(ctx context.Context, recipient string, amount decimal.Decimal, memo string) error
}

// BalanceReader reads the current balance of an external account. Dependent
// funding targets expose nothing else.
type BalanceReader interface {
	Balance(ctx context.Context, address string) (decimal.Decimal, error)
}

// Record is one transfer observed by the Recorder.
type Record struct {
	Recipient string
	Amount    decimal.Decimal
	Memo      string
}

// Recorder is an in-process Transferer/BalanceReader for dry-run mode and
// tests. Transfers are appended to an internal log and credited to the
// recipient's balance; set FailWith to force the next transfer to fail.
type Recorder struct {
	mu        sync.Mutex
	transfers []Record
	balances  map[string]decimal.Decimal

	FailWith error
}

func NewRecorder() *Recorder {
	return &Recorder{balances: map[string]decimal.Decimal{}}
}

func (r *Recorder) Transfer(ctx context.Context, recipient string, amount decimal.Decimal, memo string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return r.FailWith
	}
	r.transfers = append(r.transfers, Record{Recipient: recipient, Amount: amount, Memo: memo})
	r.balances[recipient] = r.balances[recipient].Add(amount)
	return nil
}

func (r *Recorder) Balance(ctx context.Context, address string) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.balances[address], nil
}

// SetBalance seeds an external account balance.
func (r *Recorder) SetBalance(address string, amount decimal.Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances[address] = amount
}

// Transfers returns a copy of the observed transfer log.
func (r *Recorder) Transfers() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.transfers))
	copy(out, r.transfers)
	return out
}
