package controller_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/api-sage/banking-ledger/src/internal/adapter/http/controller"
	"github.com/api-sage/banking-ledger/src/internal/adapter/http/middleware"
	"github.com/api-sage/banking-ledger/src/internal/adapter/http/models"
	"github.com/api-sage/banking-ledger/src/internal/commons"
	"github.com/api-sage/banking-ledger/src/internal/domain"
	"github.com/api-sage/banking-ledger/src/internal/security"
	"github.com/go-chi/chi/v5"
)

const (
	ownAccountID   = "0b6f3c1e-2d4a-4e8b-9c7d-1a2b3c4d5e6f"
	otherAccountID = "f6e5d4c3-b2a1-4f0e-8d9c-7b6a5f4e3d2c"
)

type ledgerServiceStub struct {
	getAccountFn     func(ctx context.Context, accountID string) (commons.Response[models.AccountResponse], error)
	depositFn        func(ctx context.Context, req models.BalanceRequest) (commons.Response[models.BalanceResponse], error)
	withdrawFn       func(ctx context.Context, req models.BalanceRequest) (commons.Response[models.BalanceResponse], error)
	transferFn       func(ctx context.Context, req models.TransferRequest) (commons.Response[models.TransferResponse], error)
	convertBalanceFn func(ctx context.Context, req models.ConvertBalanceRequest) (commons.Response[models.ConvertBalanceResponse], error)
	listAccountsFn   func(ctx context.Context, req models.ListAccountsRequest) (commons.Response[models.ListAccountsResponse], error)
}

func (s ledgerServiceStub) CreateAccount(ctx context.Context, req models.CreateAccountRequest) (commons.Response[models.AccountResponse], error) {
	return commons.Response[models.AccountResponse]{}, nil
}

func (s ledgerServiceStub) GetAccount(ctx context.Context, accountID string) (commons.Response[models.AccountResponse], error) {
	if s.getAccountFn != nil {
		return s.getAccountFn(ctx, accountID)
	}
	return commons.SuccessResponse("account fetched successfully", models.AccountResponse{ID: accountID}), nil
}

func (s ledgerServiceStub) Deposit(ctx context.Context, req models.BalanceRequest) (commons.Response[models.BalanceResponse], error) {
	if s.depositFn != nil {
		return s.depositFn(ctx, req)
	}
	return commons.SuccessResponse("deposit successful", models.BalanceResponse{AccountID: req.AccountID}), nil
}

func (s ledgerServiceStub) Withdraw(ctx context.Context, req models.BalanceRequest) (commons.Response[models.BalanceResponse], error) {
	if s.withdrawFn != nil {
		return s.withdrawFn(ctx, req)
	}
	return commons.SuccessResponse("withdrawal successful", models.BalanceResponse{AccountID: req.AccountID}), nil
}

func (s ledgerServiceStub) Transfer(ctx context.Context, req models.TransferRequest) (commons.Response[models.TransferResponse], error) {
	if s.transferFn != nil {
		return s.transferFn(ctx, req)
	}
	return commons.SuccessResponse("transfer successful", models.TransferResponse{SenderID: req.SenderID}), nil
}

func (s ledgerServiceStub) ConvertBalance(ctx context.Context, req models.ConvertBalanceRequest) (commons.Response[models.ConvertBalanceResponse], error) {
	if s.convertBalanceFn != nil {
		return s.convertBalanceFn(ctx, req)
	}
	return commons.SuccessResponse("balance converted successfully", models.ConvertBalanceResponse{AccountID: req.AccountID}), nil
}

func (s ledgerServiceStub) ListAccounts(ctx context.Context, req models.ListAccountsRequest) (commons.Response[models.ListAccountsResponse], error) {
	if s.listAccountsFn != nil {
		return s.listAccountsFn(ctx, req)
	}
	return commons.SuccessResponse("accounts fetched successfully", models.ListAccountsResponse{}), nil
}

type authServiceStub struct {
	registerFn func(ctx context.Context, req models.CreateAccountRequest) (commons.Response[models.RegisterResponse], error)
	loginFn    func(ctx context.Context, req models.LoginRequest) (commons.Response[models.TokenResponse], error)
}

func (s authServiceStub) Register(ctx context.Context, req models.CreateAccountRequest) (commons.Response[models.RegisterResponse], error) {
	if s.registerFn != nil {
		return s.registerFn(ctx, req)
	}
	return commons.SuccessResponse("account registered successfully", models.RegisterResponse{}), nil
}

func (s authServiceStub) Login(ctx context.Context, req models.LoginRequest) (commons.Response[models.TokenResponse], error) {
	if s.loginFn != nil {
		return s.loginFn(ctx, req)
	}
	return commons.SuccessResponse("authentication successful", models.TokenResponse{}), nil
}

type harness struct {
	handler http.Handler
	tokens  *security.TokenManager
}

func newHarness(ledger ledgerServiceStub, auth authServiceStub, exposeDetails bool) harness {
	tokens := security.NewTokenManager("controller-test-signing-key-0123456789", "banking-ledger", "clients", time.Hour)

	r := chi.NewRouter()
	controller.NewAuthController(auth, exposeDetails).RegisterRoutes(r, nil)
	controller.NewAccountController(ledger, exposeDetails).RegisterRoutes(r, middleware.BearerAuth(tokens))

	return harness{handler: r, tokens: tokens}
}

func (h harness) do(t *testing.T, method string, path string, body string, role domain.Role) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		issued, err := h.tokens.Issue(domain.Credential{Username: "caller", Role: role, AccountID: ownAccountID}, "Caller")
		if err != nil {
			t.Fatalf("issue token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+issued.Token)
	}

	rr := httptest.NewRecorder()
	h.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) commons.Response[T] {
	t.Helper()

	var envelope commons.Response[T]
	if err := json.NewDecoder(rr.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return envelope
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind commons.ErrorKind
		want int
	}{
		{kind: commons.KindNotFound, want: http.StatusNotFound},
		{kind: commons.KindDuplicateUsername, want: http.StatusConflict},
		{kind: commons.KindInvalidAmount, want: http.StatusBadRequest},
		{kind: commons.KindInsufficientFunds, want: http.StatusBadRequest},
		{kind: commons.KindValidation, want: http.StatusBadRequest},
		{kind: commons.KindInvalidCredentials, want: http.StatusUnauthorized},
		{kind: commons.KindUnauthorized, want: http.StatusUnauthorized},
		{kind: commons.KindForbidden, want: http.StatusForbidden},
		{kind: commons.KindRateProviderUnavailable, want: http.StatusServiceUnavailable},
		{kind: commons.KindInternal, want: http.StatusInternalServerError},
		{kind: commons.ErrorKind("SOMETHING_NEW"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := controller.StatusFor(tt.kind); got != tt.want {
			t.Fatalf("expected %d for %s, got %d", tt.want, tt.kind, got)
		}
	}
}

func TestAccountController_DepositUsesPathAccount(t *testing.T) {
	var seen models.BalanceRequest
	h := newHarness(ledgerServiceStub{
		depositFn: func(_ context.Context, req models.BalanceRequest) (commons.Response[models.BalanceResponse], error) {
			seen = req
			return commons.SuccessResponse("deposit successful", models.BalanceResponse{AccountID: req.AccountID, Balance: "12.50"}), nil
		},
	}, authServiceStub{}, false)

	rr := h.do(t, http.MethodPost, "/api/v1/accounts/"+ownAccountID+"/deposits", `{"amount":"12.50"}`, domain.RoleUser)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
	if seen.AccountID != ownAccountID || seen.Amount.String() != "12.5" {
		t.Fatalf("unexpected request forwarded %+v", seen)
	}
	if envelope := decode[models.BalanceResponse](t, rr); envelope.Data.Balance != "12.50" {
		t.Fatalf("expected balance 12.50, got %+v", envelope.Data)
	}
}

func TestAccountController_ErrorKindSelectsStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "insufficient", err: commons.NewError(commons.KindInsufficientFunds, "Insufficient funds", nil), want: http.StatusBadRequest},
		{name: "not found", err: commons.NotFound("Account not found", nil), want: http.StatusNotFound},
		{name: "invalid amount", err: commons.NewError(commons.KindInvalidAmount, "amount must be greater than zero", nil), want: http.StatusBadRequest},
		{name: "internal", err: commons.InternalError(errors.New("disk full")), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(ledgerServiceStub{
				withdrawFn: func(context.Context, models.BalanceRequest) (commons.Response[models.BalanceResponse], error) {
					return commons.Failure[models.BalanceResponse](tt.err)
				},
			}, authServiceStub{}, false)

			rr := h.do(t, http.MethodPost, "/api/v1/accounts/"+ownAccountID+"/withdrawals", `{"amount":5}`, domain.RoleUser)
			if rr.Code != tt.want {
				t.Fatalf("expected status %d, got %d", tt.want, rr.Code)
			}

			envelope := decode[models.BalanceResponse](t, rr)
			if envelope.Success || envelope.Code != commons.KindOf(tt.err) {
				t.Fatalf("expected failed envelope with code %s, got %+v", commons.KindOf(tt.err), envelope)
			}
		})
	}
}

func TestAccountController_InternalDetailsOnlyInDevelopment(t *testing.T) {
	ledger := ledgerServiceStub{
		getAccountFn: func(context.Context, string) (commons.Response[models.AccountResponse], error) {
			return commons.Failure[models.AccountResponse](commons.InternalError(errors.New("pq: connection refused")))
		},
	}

	for _, expose := range []bool{false, true} {
		h := newHarness(ledger, authServiceStub{}, expose)
		rr := h.do(t, http.MethodGet, "/api/v1/accounts/"+ownAccountID, "", domain.RoleUser)

		envelope := decode[models.AccountResponse](t, rr)
		leaked := strings.Contains(strings.Join(envelope.Errors, " "), "connection refused")
		if leaked != expose {
			t.Fatalf("expected detail exposed=%v, got errors %v", expose, envelope.Errors)
		}
		if envelope.Message != "An unexpected error occurred" {
			t.Fatalf("expected generic message, got %q", envelope.Message)
		}
	}
}

func TestAccountController_UserCannotTouchAnotherAccount(t *testing.T) {
	h := newHarness(ledgerServiceStub{
		getAccountFn: func(context.Context, string) (commons.Response[models.AccountResponse], error) {
			t.Fatal("expected service not to be called")
			return commons.Response[models.AccountResponse]{}, nil
		},
		transferFn: func(context.Context, models.TransferRequest) (commons.Response[models.TransferResponse], error) {
			t.Fatal("expected service not to be called")
			return commons.Response[models.TransferResponse]{}, nil
		},
	}, authServiceStub{}, false)

	requests := []struct {
		method string
		path   string
		body   string
	}{
		{method: http.MethodGet, path: "/api/v1/accounts/" + otherAccountID},
		{method: http.MethodPost, path: "/api/v1/accounts/" + otherAccountID + "/deposits", body: `{"amount":1}`},
		{method: http.MethodPost, path: "/api/v1/accounts/" + otherAccountID + "/withdrawals", body: `{"amount":1}`},
		{method: http.MethodGet, path: "/api/v1/accounts/" + otherAccountID + "/balances?currency=EUR"},
		{method: http.MethodPost, path: "/api/v1/accounts/transfers", body: `{"senderId":"` + otherAccountID + `","receiverId":"` + ownAccountID + `","amount":1}`},
		{method: http.MethodGet, path: "/api/v1/accounts"},
	}

	for _, req := range requests {
		rr := h.do(t, req.method, req.path, req.body, domain.RoleUser)
		if rr.Code != http.StatusForbidden {
			t.Fatalf("%s %s: expected status %d, got %d", req.method, req.path, http.StatusForbidden, rr.Code)
		}
	}
}

func TestAccountController_AdminMayActOnAnyAccount(t *testing.T) {
	h := newHarness(ledgerServiceStub{}, authServiceStub{}, false)

	rr := h.do(t, http.MethodGet, "/api/v1/accounts/"+otherAccountID, "", domain.RoleAdmin)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
}

func TestAccountController_RequiresToken(t *testing.T) {
	h := newHarness(ledgerServiceStub{}, authServiceStub{}, false)

	rr := h.do(t, http.MethodGet, "/api/v1/accounts/"+ownAccountID, "", "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rr.Code)
	}
}

func TestAccountController_ListAccounts(t *testing.T) {
	var seen models.ListAccountsRequest
	h := newHarness(ledgerServiceStub{
		listAccountsFn: func(_ context.Context, req models.ListAccountsRequest) (commons.Response[models.ListAccountsResponse], error) {
			seen = req
			return commons.SuccessResponse("accounts fetched successfully", models.ListAccountsResponse{
				Accounts:   []models.AccountResponse{{ID: ownAccountID, Name: "Ada", Balance: "1.00"}},
				Pagination: domain.NewPaginationMetadata(11, 5, 2),
			}), nil
		},
	}, authServiceStub{}, false)

	rr := h.do(t, http.MethodGet, "/api/v1/accounts?name=Ada&pageNumber=2&pageSize=5&orderBy=balance&descending=true", "", domain.RoleAdmin)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if seen.Name != "Ada" || seen.PageNumber != 2 || seen.PageSize != 5 || seen.OrderBy != "balance" || !seen.Descending {
		t.Fatalf("unexpected query forwarded %+v", seen)
	}

	var header domain.PaginationMetadata
	if err := json.Unmarshal([]byte(rr.Header().Get("X-Pagination")), &header); err != nil {
		t.Fatalf("expected pagination header, got %q", rr.Header().Get("X-Pagination"))
	}
	if header.TotalItemCount != 11 || header.TotalPageCount != 3 || header.CurrentPage != 2 {
		t.Fatalf("unexpected pagination header %+v", header)
	}
}

func TestAccountController_ListAccountsBadQuery(t *testing.T) {
	h := newHarness(ledgerServiceStub{}, authServiceStub{}, false)

	rr := h.do(t, http.MethodGet, "/api/v1/accounts?pageSize=ten", "", domain.RoleAdmin)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
	if envelope := decode[models.ListAccountsResponse](t, rr); envelope.Code != commons.KindValidation {
		t.Fatalf("expected VALIDATION_ERROR, got %s", envelope.Code)
	}
}

func TestAccountController_ConvertBalanceJoinsCurrencyParams(t *testing.T) {
	var seen models.ConvertBalanceRequest
	h := newHarness(ledgerServiceStub{
		convertBalanceFn: func(_ context.Context, req models.ConvertBalanceRequest) (commons.Response[models.ConvertBalanceResponse], error) {
			seen = req
			return commons.Failure[models.ConvertBalanceResponse](commons.NewError(commons.KindRateProviderUnavailable, "Exchange rates are unavailable right now", nil))
		},
	}, authServiceStub{}, false)

	rr := h.do(t, http.MethodGet, "/api/v1/accounts/"+ownAccountID+"/balances?currency=EUR,GBP&currency=NGN", "", domain.RoleUser)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, rr.Code)
	}
	if seen.Currencies != "EUR,GBP,NGN" || seen.AccountID != ownAccountID {
		t.Fatalf("unexpected request forwarded %+v", seen)
	}
}

func TestAuthController_RegisterCreated(t *testing.T) {
	h := newHarness(ledgerServiceStub{}, authServiceStub{}, false)

	rr := h.do(t, http.MethodPost, "/api/v1/accounts/register", `{"name":"Ada","username":"ada.l","password":"pw"}`, "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, rr.Code)
	}
}

func TestAuthController_RejectsMalformedBody(t *testing.T) {
	h := newHarness(ledgerServiceStub{}, authServiceStub{
		loginFn: func(context.Context, models.LoginRequest) (commons.Response[models.TokenResponse], error) {
			t.Fatal("expected service not to be called")
			return commons.Response[models.TokenResponse]{}, nil
		},
	}, false)

	for _, body := range []string{"", "{", `{"username":"a","password":"b","extra":1}`} {
		rr := h.do(t, http.MethodPost, "/api/authentication/authenticate", body, "")
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("body %q: expected status %d, got %d", body, http.StatusBadRequest, rr.Code)
		}
		if envelope := decode[models.TokenResponse](t, rr); envelope.Message != "invalid request body" {
			t.Fatalf("body %q: expected invalid body message, got %q", body, envelope.Message)
		}
	}
}

func TestAuthController_InvalidCredentials(t *testing.T) {
	h := newHarness(ledgerServiceStub{}, authServiceStub{
		loginFn: func(context.Context, models.LoginRequest) (commons.Response[models.TokenResponse], error) {
			return commons.Failure[models.TokenResponse](commons.NewError(commons.KindInvalidCredentials, "Invalid username or password", nil))
		},
	}, false)

	rr := h.do(t, http.MethodPost, "/api/authentication/authenticate", `{"username":"ada.l","password":"nope"}`, "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rr.Code)
	}
}
