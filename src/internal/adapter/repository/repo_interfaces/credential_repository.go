package repo_interfaces

import (
	"context"

	"github.com/api-sage/banking-ledger/src/internal/domain"
)

type CredentialRepository interface {
	GetByUsername(ctx context.Context, username string) (domain.Credential, error)
}
