package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/api-sage/banking-ledger/src/internal/adapter/http/models"
	"github.com/api-sage/banking-ledger/src/internal/adapter/repository/memory"
	"github.com/api-sage/banking-ledger/src/internal/commons"
	"github.com/api-sage/banking-ledger/src/internal/domain"
	"github.com/api-sage/banking-ledger/src/internal/security"
	"github.com/api-sage/banking-ledger/src/internal/usecase/services"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

const testSigningKey = "services-test-signing-key-0123456789abcdef"

type rateProviderStub struct {
	fetchRatesFn func(ctx context.Context, codes []string) (map[string]decimal.Decimal, error)
}

func (s rateProviderStub) FetchRates(ctx context.Context, codes []string) (map[string]decimal.Decimal, error) {
	if s.fetchRatesFn != nil {
		return s.fetchRatesFn(ctx, codes)
	}
	return map[string]decimal.Decimal{}, nil
}

// accountRepoStub defers to the wrapped store unless a func field is set.
type accountRepoStub struct {
	*memory.Store
	updateBalanceFn func(ctx context.Context, id string, delta decimal.Decimal) (domain.Account, error)
	listFn          func(ctx context.Context, query domain.AccountListQuery) ([]domain.Account, int, error)
}

func (s accountRepoStub) UpdateBalance(ctx context.Context, id string, delta decimal.Decimal) (domain.Account, error) {
	if s.updateBalanceFn != nil {
		return s.updateBalanceFn(ctx, id, delta)
	}
	return s.Store.UpdateBalance(ctx, id, delta)
}

func (s accountRepoStub) List(ctx context.Context, query domain.AccountListQuery) ([]domain.Account, int, error) {
	if s.listFn != nil {
		return s.listFn(ctx, query)
	}
	return s.Store.List(ctx, query)
}

type fixture struct {
	store  *memory.Store
	ledger *services.LedgerService
	auth   *services.AuthService
	tokens *security.TokenManager
}

func newFixture(t *testing.T, provider rateProviderStub, issueOnRegister bool) fixture {
	t.Helper()

	store := memory.NewStore()
	hasher := security.NewPasswordHasher(bcrypt.MinCost)
	tokens := security.NewTokenManager(testSigningKey, "banking-ledger", "clients", time.Hour)
	ledger := services.NewLedgerService(store, store, hasher, provider, 10)
	auth := services.NewAuthService(ledger, store, store, hasher, tokens, issueOnRegister)

	return fixture{store: store, ledger: ledger, auth: auth, tokens: tokens}
}

func (f fixture) register(t *testing.T, name string, username string, role string) models.AccountResponse {
	t.Helper()

	resp, err := f.ledger.CreateAccount(context.Background(), models.CreateAccountRequest{
		Name:     name,
		Username: username,
		Password: "correct-horse",
		Role:     role,
	})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return *resp.Data
}

func (f fixture) deposit(t *testing.T, accountID string, amount string) {
	t.Helper()

	if _, err := f.ledger.Deposit(context.Background(), models.BalanceRequest{
		AccountID: accountID,
		Amount:    decimal.RequireFromString(amount),
	}); err != nil {
		t.Fatalf("deposit %s: %v", amount, err)
	}
}

func (f fixture) balance(t *testing.T, accountID string) string {
	t.Helper()

	resp, err := f.ledger.GetAccount(context.Background(), accountID)
	if err != nil {
		t.Fatalf("get account %s: %v", accountID, err)
	}
	return resp.Data.Balance
}

func expectKind(t *testing.T, err error, want commons.ErrorKind) {
	t.Helper()

	if got := commons.KindOf(err); got != want {
		t.Fatalf("expected %s, got %s (%v)", want, got, err)
	}
}
