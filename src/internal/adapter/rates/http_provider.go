package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/api-sage/banking-ledger/src/internal/domain"
	"github.com/api-sage/banking-ledger/src/internal/logger"
	"github.com/api-sage/banking-ledger/src/internal/observability"
	"github.com/shopspring/decimal"
)

var _ domain.ExchangeRateProvider = (*HTTPProvider)(nil)

const sourceHTTP = "http"

// HTTPProvider reads rates from a freecurrencyapi compatible endpoint:
//
//	GET {baseURL}/v1/latest?apikey=...&base_currency=USD&currencies=EUR,GBP
//
// A failed call is reported as an error and never retried.
type HTTPProvider struct {
	client       *http.Client
	baseURL      string
	apiKey       string
	baseCurrency string
}

type latestRatesResponse struct {
	Data map[string]decimal.Decimal `json:"data"`
}

func NewHTTPProvider(client *http.Client, baseURL string, apiKey string, baseCurrency string, timeout time.Duration) *HTTPProvider {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPProvider{
		client:       client,
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		baseCurrency: strings.ToUpper(baseCurrency),
	}
}

func (p *HTTPProvider) FetchRates(ctx context.Context, currencyCodes []string) (map[string]decimal.Decimal, error) {
	rates, err := p.fetch(ctx, currencyCodes)
	if err != nil {
		observability.RecordRateFetch(sourceHTTP, observability.OutcomeFailure)
		logger.Error("rate provider fetch failed", err, logger.Fields{
			"currencies": currencyCodes,
		})
		return nil, err
	}

	observability.RecordRateFetch(sourceHTTP, observability.OutcomeSuccess)
	return rates, nil
}

func (p *HTTPProvider) fetch(ctx context.Context, currencyCodes []string) (map[string]decimal.Decimal, error) {
	query := url.Values{}
	query.Set("apikey", p.apiKey)
	query.Set("base_currency", p.baseCurrency)
	query.Set("currencies", strings.Join(currencyCodes, ","))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v1/latest?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build rate request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call rate provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("rate provider returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var payload latestRatesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode rate response: %w", err)
	}

	wanted := make(map[string]struct{}, len(currencyCodes))
	for _, code := range currencyCodes {
		wanted[code] = struct{}{}
	}

	rates := make(map[string]decimal.Decimal, len(currencyCodes))
	for code, rate := range payload.Data {
		code = strings.ToUpper(code)
		if _, ok := wanted[code]; ok {
			rates[code] = rate
		}
	}
	return rates, nil
}
