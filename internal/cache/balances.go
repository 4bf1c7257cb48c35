package cache

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"treasury/internal/transfer"
)

// Balances wraps a BalanceReader with a short-TTL cache so the funding sweep
// does not hammer the settlement service when many targets share a check
// interval. Stale reads only delay a top-up by one TTL; they never cause an
// overdraw because the ledger debit is still checked at transfer time.
type Balances struct {
	Inner transfer.BalanceReader
	Store Store
	TTL   time.Duration
}

func (b *Balances) Balance(ctx context.Context, address string) (decimal.Decimal, error) {
	key := "balance:" + address
	if raw, found, err := b.Store.Get(ctx, key); err == nil && found {
		if v, perr := decimal.NewFromString(string(raw)); perr == nil {
			return v, nil
		}
	}
	v, err := b.Inner.Balance(ctx, address)
	if err != nil {
		return decimal.Zero, err
	}
	_ = b.Store.Set(ctx, key, []byte(v.String()), b.TTL)
	return v, nil
}
