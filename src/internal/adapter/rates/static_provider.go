package rates

import (
	"context"

	"github.com/api-sage/banking-ledger/src/internal/domain"
	"github.com/api-sage/banking-ledger/src/internal/observability"
	"github.com/shopspring/decimal"
)

var _ domain.ExchangeRateProvider = (*StaticProvider)(nil)

// DefaultUSDRates is the fixed table used when no rate API key is configured.
var DefaultUSDRates = map[string]decimal.Decimal{
	"USD": decimal.NewFromInt(1),
	"EUR": decimal.RequireFromString("0.84423808"),
	"GBP": decimal.RequireFromString("0.73651330"),
	"NGN": decimal.RequireFromString("1338.38005900"),
}

type StaticProvider struct {
	rates map[string]decimal.Decimal
}

func NewStaticProvider(rates map[string]decimal.Decimal) *StaticProvider {
	copied := make(map[string]decimal.Decimal, len(rates))
	for code, rate := range rates {
		copied[code] = rate
	}
	return &StaticProvider{rates: copied}
}

func (p *StaticProvider) FetchRates(_ context.Context, currencyCodes []string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(currencyCodes))
	for _, code := range currencyCodes {
		if rate, ok := p.rates[code]; ok {
			out[code] = rate
		}
	}
	observability.RecordRateFetch("static", observability.OutcomeSuccess)
	return out, nil
}
