package service_interfaces

import (
	"context"

	"github.com/api-sage/banking-ledger/src/internal/adapter/http/models"
	"github.com/api-sage/banking-ledger/src/internal/commons"
	"github.com/api-sage/banking-ledger/src/internal/domain"
	"github.com/api-sage/banking-ledger/src/internal/security"
)

type AuthService interface {
	Register(ctx context.Context, req models.CreateAccountRequest) (commons.Response[models.RegisterResponse], error)
	Login(ctx context.Context, req models.LoginRequest) (commons.Response[models.TokenResponse], error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash string, password string) error
	CompareDummy(password string)
}

type TokenIssuer interface {
	Issue(credential domain.Credential, displayName string) (security.IssuedToken, error)
}
