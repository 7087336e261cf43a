package repo_interfaces

import (
	"context"

	"github.com/api-sage/banking-ledger/src/internal/domain"
	"github.com/shopspring/decimal"
)

type AccountRepository interface {
	// Create persists the account and its credential as one unit. It returns
	// commons.ErrDuplicateRecord when the username is already taken.
	Create(ctx context.Context, account domain.Account, credential domain.Credential) (domain.Account, error)
	GetByID(ctx context.Context, id string) (domain.Account, error)
	// UpdateBalance applies delta atomically and refuses any change that
	// would leave the balance negative (commons.ErrInsufficientBalance).
	UpdateBalance(ctx context.Context, id string, delta decimal.Decimal) (domain.Account, error)
	// Transfer debits the sender and credits the receiver as one unit.
	Transfer(ctx context.Context, intent domain.TransferIntent) (domain.Account, domain.Account, error)
	List(ctx context.Context, query domain.AccountListQuery) ([]domain.Account, int, error)
}
