package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/api-sage/banking-ledger/src/internal/adapter/http/middleware"
	"github.com/api-sage/banking-ledger/src/internal/adapter/http/models"
	"github.com/api-sage/banking-ledger/src/internal/commons"
	"github.com/api-sage/banking-ledger/src/internal/domain"
	"github.com/api-sage/banking-ledger/src/internal/usecase/service_interfaces"
	"github.com/go-chi/chi/v5"
)

const paginationHeader = "X-Pagination"

type AccountController struct {
	service service_interfaces.LedgerService
	responder
}

func NewAccountController(service service_interfaces.LedgerService, exposeDetails bool) *AccountController {
	return &AccountController{service: service, responder: responder{exposeDetails: exposeDetails}}
}

func (c *AccountController) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		if authMiddleware != nil {
			r.Use(authMiddleware)
		}

		r.With(middleware.RequireRole(domain.RoleAdmin)).Get("/api/v1/accounts", c.listAccounts)
		r.Post("/api/v1/accounts/transfers", c.transfer)
		r.Get("/api/v1/accounts/{accountId}", c.getAccount)
		r.Post("/api/v1/accounts/{accountId}/deposits", c.deposit)
		r.Post("/api/v1/accounts/{accountId}/withdrawals", c.withdraw)
		r.Get("/api/v1/accounts/{accountId}/balances", c.convertBalance)
	})
}

func (c *AccountController) getAccount(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	accountID := chi.URLParam(r, "accountId")
	if !c.authorize(w, r, start, accountID) {
		return
	}

	response, err := c.service.GetAccount(r.Context(), accountID)
	result(c.responder, w, r, start, http.StatusOK, response, err)
}

func (c *AccountController) deposit(w http.ResponseWriter, r *http.Request) {
	c.balanceChange(w, r, c.service.Deposit)
}

func (c *AccountController) withdraw(w http.ResponseWriter, r *http.Request) {
	c.balanceChange(w, r, c.service.Withdraw)
}

func (c *AccountController) balanceChange(
	w http.ResponseWriter,
	r *http.Request,
	apply func(ctx context.Context, req models.BalanceRequest) (commons.Response[models.BalanceResponse], error),
) {
	start := time.Now()
	logRequest(r, nil)

	accountID := chi.URLParam(r, "accountId")
	if !c.authorize(w, r, start, accountID) {
		return
	}

	var req models.BalanceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		logError(r, err, nil)
		reject[models.BalanceResponse](w, r, start, err)
		return
	}
	req.AccountID = accountID
	logRequest(r, req)

	response, err := apply(r.Context(), req)
	result(c.responder, w, r, start, http.StatusOK, response, err)
}

func (c *AccountController) transfer(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	var req models.TransferRequest
	if err := decodeJSON(w, r, &req); err != nil {
		logError(r, err, nil)
		reject[models.TransferResponse](w, r, start, err)
		return
	}
	logRequest(r, req)

	if !c.authorize(w, r, start, req.SenderID) {
		return
	}

	response, err := c.service.Transfer(r.Context(), req)
	result(c.responder, w, r, start, http.StatusOK, response, err)
}

func (c *AccountController) convertBalance(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	accountID := chi.URLParam(r, "accountId")
	if !c.authorize(w, r, start, accountID) {
		return
	}

	req := models.ConvertBalanceRequest{
		AccountID:  accountID,
		Currencies: strings.Join(r.URL.Query()["currency"], ","),
	}

	response, err := c.service.ConvertBalance(r.Context(), req)
	result(c.responder, w, r, start, http.StatusOK, response, err)
}

func (c *AccountController) listAccounts(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	req, err := listAccountsRequest(r)
	if err != nil {
		logError(r, err, nil)
		reject[models.ListAccountsResponse](w, r, start, err)
		return
	}

	response, err := c.service.ListAccounts(r.Context(), req)
	if err == nil && response.Data != nil {
		if header, marshalErr := json.Marshal(response.Data.Pagination); marshalErr == nil {
			w.Header().Set(paginationHeader, string(header))
		}
	}
	result(c.responder, w, r, start, http.StatusOK, response, err)
}

// authorize writes 403 and returns false when the caller may not act on
// accountID.
func (c *AccountController) authorize(w http.ResponseWriter, r *http.Request, start time.Time, accountID string) bool {
	principal, ok := middleware.PrincipalFrom(r.Context())
	if ok && middleware.CanAccessAccount(principal, accountID) {
		return true
	}

	err := commons.NewError(commons.KindForbidden, "You are not allowed to perform this action", nil)
	if !ok {
		err = commons.NewError(commons.KindUnauthorized, "Authentication required", nil)
	}
	logError(r, err, nil)
	reject[struct{}](w, r, start, err)
	return false
}

func listAccountsRequest(r *http.Request) (models.ListAccountsRequest, error) {
	query := r.URL.Query()
	req := models.ListAccountsRequest{
		Name:    query.Get("name"),
		OrderBy: query.Get("orderBy"),
	}

	var errs []string
	if raw := query.Get("pageNumber"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, "pageNumber must be an integer")
		}
		req.PageNumber = value
	}
	if raw := query.Get("pageSize"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, "pageSize must be an integer")
		}
		req.PageSize = value
	}
	if raw := query.Get("descending"); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			errs = append(errs, "descending must be true or false")
		}
		req.Descending = value
	}

	if len(errs) > 0 {
		return req, commons.ValidationError(strings.Join(errs, "; "))
	}
	return req, nil
}
