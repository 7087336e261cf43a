package service_interfaces

import (
	"context"

	"github.com/api-sage/banking-ledger/src/internal/adapter/http/models"
	"github.com/api-sage/banking-ledger/src/internal/commons"
)

type LedgerService interface {
	CreateAccount(ctx context.Context, req models.CreateAccountRequest) (commons.Response[models.AccountResponse], error)
	GetAccount(ctx context.Context, accountID string) (commons.Response[models.AccountResponse], error)
	Deposit(ctx context.Context, req models.BalanceRequest) (commons.Response[models.BalanceResponse], error)
	Withdraw(ctx context.Context, req models.BalanceRequest) (commons.Response[models.BalanceResponse], error)
	Transfer(ctx context.Context, req models.TransferRequest) (commons.Response[models.TransferResponse], error)
	ConvertBalance(ctx context.Context, req models.ConvertBalanceRequest) (commons.Response[models.ConvertBalanceResponse], error)
	ListAccounts(ctx context.Context, req models.ListAccountsRequest) (commons.Response[models.ListAccountsResponse], error)
}
