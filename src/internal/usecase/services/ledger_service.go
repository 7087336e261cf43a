package services

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/api-sage/banking-ledger/src/internal/adapter/http/models"
	"github.com/api-sage/banking-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/banking-ledger/src/internal/commons"
	"github.com/api-sage/banking-ledger/src/internal/domain"
	"github.com/api-sage/banking-ledger/src/internal/logger"
	"github.com/api-sage/banking-ledger/src/internal/usecase/service_interfaces"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Verify that LedgerService implements the service_interfaces.LedgerService interface
var _ service_interfaces.LedgerService = (*LedgerService)(nil)

const (
	DefaultPageSize    = 5
	DefaultMaxPageSize = 10
	amountScale        = 2
)

const (
	opCreateAccount  = "create_account"
	opGetAccount     = "get_account"
	opDeposit        = "deposit"
	opWithdraw       = "withdraw"
	opTransfer       = "transfer"
	opConvertBalance = "convert_balance"
	opListAccounts   = "list_accounts"
)

type LedgerService struct {
	accountRepo    repo_interfaces.AccountRepository
	credentialRepo repo_interfaces.CredentialRepository
	hasher         service_interfaces.PasswordHasher
	rateProvider   domain.ExchangeRateProvider
	maxPageSize    int
}

func NewLedgerService(
	accountRepo repo_interfaces.AccountRepository,
	credentialRepo repo_interfaces.CredentialRepository,
	hasher service_interfaces.PasswordHasher,
	rateProvider domain.ExchangeRateProvider,
	maxPageSize int,
) *LedgerService {
	if maxPageSize <= 0 {
		maxPageSize = DefaultMaxPageSize
	}
	return &LedgerService{
		accountRepo:    accountRepo,
		credentialRepo: credentialRepo,
		hasher:         hasher,
		rateProvider:   rateProvider,
		maxPageSize:    maxPageSize,
	}
}

func (s *LedgerService) CreateAccount(ctx context.Context, req models.CreateAccountRequest) (commons.Response[models.AccountResponse], error) {
	logger.Info("ledger service create account request", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		return failed[models.AccountResponse](opCreateAccount, commons.ValidationError(err.Error()), nil)
	}

	username := strings.TrimSpace(req.Username)
	role, _ := models.ParseRole(req.Role)
	fields := logger.Fields{"username": username}

	if _, err := s.credentialRepo.GetByUsername(ctx, username); err == nil {
		return failed[models.AccountResponse](opCreateAccount, commons.NewError(commons.KindDuplicateUsername, "Username already exists", nil), fields)
	} else if !errors.Is(err, commons.ErrRecordNotFound) {
		return failed[models.AccountResponse](opCreateAccount, commons.InternalError(err), fields)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return failed[models.AccountResponse](opCreateAccount, commons.InternalError(err), fields)
	}

	account := domain.Account{
		ID:      uuid.NewString(),
		Name:    strings.TrimSpace(req.Name),
		Balance: decimal.Zero,
	}
	credential := domain.Credential{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		AccountID:    account.ID,
	}

	created, err := s.accountRepo.Create(ctx, account, credential)
	if err != nil {
		return failed[models.AccountResponse](opCreateAccount, translateStoreError(err, "Account not found"), fields)
	}

	response := models.NewAccountResponse(created.View())
	logger.Info("ledger service create account success", logger.Fields{
		"accountId": response.ID,
		"username":  username,
		"role":      string(role),
	})
	succeeded(opCreateAccount)

	return commons.SuccessResponse("account created successfully", response), nil
}

func (s *LedgerService) GetAccount(ctx context.Context, accountID string) (commons.Response[models.AccountResponse], error) {
	logger.Info("ledger service get account request", logger.Fields{
		"accountId": accountID,
	})

	if err := models.ValidateAccountID("accountId", accountID); err != nil {
		return failed[models.AccountResponse](opGetAccount, commons.ValidationError(err.Error()), nil)
	}

	account, err := s.accountRepo.GetByID(ctx, normalizeID(accountID))
	if err != nil {
		return failed[models.AccountResponse](opGetAccount, translateStoreError(err, "Account not found"), logger.Fields{
			"accountId": accountID,
		})
	}

	succeeded(opGetAccount)
	return commons.SuccessResponse("account fetched successfully", models.NewAccountResponse(account.View())), nil
}

func (s *LedgerService) Deposit(ctx context.Context, req models.BalanceRequest) (commons.Response[models.BalanceResponse], error) {
	logger.Info("ledger service deposit request", logger.Fields{
		"accountId": req.AccountID,
		"amount":    req.Amount.String(),
	})

	return s.applyBalanceChange(ctx, opDeposit, req, req.Amount, "deposit successful")
}

func (s *LedgerService) Withdraw(ctx context.Context, req models.BalanceRequest) (commons.Response[models.BalanceResponse], error) {
	logger.Info("ledger service withdraw request", logger.Fields{
		"accountId": req.AccountID,
		"amount":    req.Amount.String(),
	})

	return s.applyBalanceChange(ctx, opWithdraw, req, req.Amount.Neg(), "withdrawal successful")
}

func (s *LedgerService) applyBalanceChange(ctx context.Context, operation string, req models.BalanceRequest, delta decimal.Decimal, message string) (commons.Response[models.BalanceResponse], error) {
	if err := req.Validate(); err != nil {
		return failed[models.BalanceResponse](operation, commons.ValidationError(err.Error()), nil)
	}
	if err := validateAmount(req.Amount); err != nil {
		return failed[models.BalanceResponse](operation, err, logger.Fields{"accountId": req.AccountID})
	}

	accountID := normalizeID(req.AccountID)
	updated, err := s.accountRepo.UpdateBalance(ctx, accountID, delta)
	if err != nil {
		return failed[models.BalanceResponse](operation, translateStoreError(err, "Account not found"), logger.Fields{
			"accountId": accountID,
			"amount":    req.Amount.String(),
		})
	}

	response := models.BalanceResponse{
		AccountID: updated.ID,
		Balance:   models.FormatAmount(updated.Balance),
	}
	logger.Info("ledger service "+operation+" success", logger.Fields{
		"accountId": response.AccountID,
		"balance":   response.Balance,
	})
	succeeded(operation)

	return commons.SuccessResponse(message, response), nil
}

func (s *LedgerService) Transfer(ctx context.Context, req models.TransferRequest) (commons.Response[models.TransferResponse], error) {
	logger.Info("ledger service transfer request", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		return failed[models.TransferResponse](opTransfer, commons.ValidationError(err.Error()), nil)
	}
	if err := validateAmount(req.Amount); err != nil {
		return failed[models.TransferResponse](opTransfer, err, nil)
	}

	intent := domain.TransferIntent{
		SenderID:   normalizeID(req.SenderID),
		ReceiverID: normalizeID(req.ReceiverID),
		Amount:     req.Amount,
	}
	fields := logger.Fields{
		"senderId":   intent.SenderID,
		"receiverId": intent.ReceiverID,
		"amount":     intent.Amount.String(),
	}
	if intent.SenderID == intent.ReceiverID {
		return failed[models.TransferResponse](opTransfer, translateStoreError(commons.ErrSameAccount, ""), fields)
	}

	sender, _, err := s.accountRepo.Transfer(ctx, intent)
	if err != nil {
		return failed[models.TransferResponse](opTransfer, translateStoreError(err, "Sender or receiver account not found"), fields)
	}

	response := models.TransferResponse{
		SenderID:      intent.SenderID,
		ReceiverID:    intent.ReceiverID,
		Amount:        models.FormatAmount(intent.Amount),
		SenderBalance: models.FormatAmount(sender.Balance),
	}
	logger.Info("ledger service transfer success", fields)
	succeeded(opTransfer)

	return commons.SuccessResponse("transfer successful", response), nil
}

func (s *LedgerService) ConvertBalance(ctx context.Context, req models.ConvertBalanceRequest) (commons.Response[models.ConvertBalanceResponse], error) {
	logger.Info("ledger service convert balance request", logger.Fields{
		"accountId":  req.AccountID,
		"currencies": req.Currencies,
	})

	if err := req.Validate(); err != nil {
		return failed[models.ConvertBalanceResponse](opConvertBalance, commons.ValidationError(err.Error()), nil)
	}
	codes, _ := req.CurrencyCodes()
	accountID := normalizeID(req.AccountID)
	fields := logger.Fields{"accountId": accountID, "currencies": codes}

	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return failed[models.ConvertBalanceResponse](opConvertBalance, translateStoreError(err, "Account not found"), fields)
	}

	rates, err := s.rateProvider.FetchRates(ctx, codes)
	if err != nil {
		return failed[models.ConvertBalanceResponse](opConvertBalance, commons.NewError(commons.KindRateProviderUnavailable, "Exchange rates are unavailable right now", err), fields)
	}
	if len(rates) == 0 {
		return failed[models.ConvertBalanceResponse](opConvertBalance, commons.NewError(commons.KindRateProviderUnavailable, "Exchange rates are unavailable right now", nil), fields)
	}

	response := models.ConvertBalanceResponse{
		AccountID:  account.ID,
		Balance:    models.FormatAmount(account.Balance),
		Converted:  make(map[string]string, len(codes)),
		Unresolved: []string{},
	}
	for _, code := range codes {
		rate, ok := rates[code]
		if !ok {
			response.Unresolved = append(response.Unresolved, code)
			continue
		}
		response.Converted[code] = models.FormatAmount(account.Balance.Mul(rate).Round(amountScale))
	}

	logger.Info("ledger service convert balance success", logger.Fields{
		"accountId":  response.AccountID,
		"converted":  len(response.Converted),
		"unresolved": response.Unresolved,
	})
	succeeded(opConvertBalance)

	return commons.SuccessResponse("balance converted successfully", response), nil
}

func (s *LedgerService) ListAccounts(ctx context.Context, req models.ListAccountsRequest) (commons.Response[models.ListAccountsResponse], error) {
	logger.Info("ledger service list accounts request", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	query := s.listQuery(req)

	accounts, total, err := s.accountRepo.List(ctx, query)
	if err != nil {
		return failed[models.ListAccountsResponse](opListAccounts, commons.InternalError(err), nil)
	}

	response := models.ListAccountsResponse{
		Accounts:   make([]models.AccountResponse, 0, len(accounts)),
		Pagination: domain.NewPaginationMetadata(total, query.PageSize, query.Page),
	}
	for _, account := range accounts {
		response.Accounts = append(response.Accounts, models.NewAccountResponse(account.View()))
	}

	logger.Info("ledger service list accounts success", logger.Fields{
		"count": len(response.Accounts),
		"total": total,
	})
	succeeded(opListAccounts)

	return commons.SuccessResponse("accounts fetched successfully", response), nil
}

// listQuery clamps paging and maps the requested order onto a known field.
func (s *LedgerService) listQuery(req models.ListAccountsRequest) domain.AccountListQuery {
	page := req.PageNumber
	if page < 1 {
		page = 1
	}

	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > s.maxPageSize {
		pageSize = s.maxPageSize
	}
	// The offset (page-1)*pageSize must stay representable.
	if maxPage := math.MaxInt / pageSize; page > maxPage {
		page = maxPage
	}

	sortField := domain.AccountSortByName
	if strings.EqualFold(strings.TrimSpace(req.OrderBy), string(domain.AccountSortByBalance)) {
		sortField = domain.AccountSortByBalance
	}

	return domain.AccountListQuery{
		Name:       strings.TrimSpace(req.Name),
		Page:       page,
		PageSize:   pageSize,
		SortField:  sortField,
		Descending: req.Descending,
	}
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return commons.NewError(commons.KindInvalidAmount, "amount must be greater than zero", nil)
	}
	if !amount.Equal(amount.Round(amountScale)) {
		return commons.NewError(commons.KindInvalidAmount, "amount must have at most 2 decimal places", nil)
	}
	if amount.GreaterThan(domain.MaxBalance) {
		return commons.NewError(commons.KindInvalidAmount, "amount exceeds the maximum supported value", nil)
	}
	return nil
}

// normalizeID renders an already validated UUID in canonical lower case form.
func normalizeID(raw string) string {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return strings.TrimSpace(raw)
	}
	return id.String()
}
