package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// ExchangeRateProvider returns the rate from the ledger's base currency to
// each requested code. Codes it cannot resolve are left out of the map.
type ExchangeRateProvider interface {
	FetchRates(ctx context.Context, currencyCodes []string) (map[string]decimal.Decimal, error)
}
