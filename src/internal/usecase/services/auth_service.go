package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/api-sage/banking-ledger/src/internal/adapter/http/models"
	"github.com/api-sage/banking-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/banking-ledger/src/internal/commons"
	"github.com/api-sage/banking-ledger/src/internal/domain"
	"github.com/api-sage/banking-ledger/src/internal/logger"
	"github.com/api-sage/banking-ledger/src/internal/observability"
	"github.com/api-sage/banking-ledger/src/internal/security"
	"github.com/api-sage/banking-ledger/src/internal/usecase/service_interfaces"
)

// Verify that AuthService implements the service_interfaces.AuthService interface
var _ service_interfaces.AuthService = (*AuthService)(nil)

const tokenType = "Bearer"

type AuthService struct {
	ledger               service_interfaces.LedgerService
	accountRepo          repo_interfaces.AccountRepository
	credentialRepo       repo_interfaces.CredentialRepository
	hasher               service_interfaces.PasswordHasher
	tokens               service_interfaces.TokenIssuer
	issueTokenOnRegister bool
}

func NewAuthService(
	ledger service_interfaces.LedgerService,
	accountRepo repo_interfaces.AccountRepository,
	credentialRepo repo_interfaces.CredentialRepository,
	hasher service_interfaces.PasswordHasher,
	tokens service_interfaces.TokenIssuer,
	issueTokenOnRegister bool,
) *AuthService {
	return &AuthService{
		ledger:               ledger,
		accountRepo:          accountRepo,
		credentialRepo:       credentialRepo,
		hasher:               hasher,
		tokens:               tokens,
		issueTokenOnRegister: issueTokenOnRegister,
	}
}

func (s *AuthService) Register(ctx context.Context, req models.CreateAccountRequest) (commons.Response[models.RegisterResponse], error) {
	created, err := s.ledger.CreateAccount(ctx, req)
	if err != nil {
		response := commons.Response[models.RegisterResponse]{
			Success: created.Success,
			Message: created.Message,
			Code:    created.Code,
			Errors:  created.Errors,
		}
		return response, err
	}

	response := models.RegisterResponse{Account: *created.Data}
	if !s.issueTokenOnRegister {
		return commons.SuccessResponse("account registered successfully", response), nil
	}

	role, _ := models.ParseRole(req.Role)
	credential := domain.Credential{
		Username:  strings.TrimSpace(req.Username),
		Role:      role,
		AccountID: response.Account.ID,
	}
	issued, err := s.tokens.Issue(credential, response.Account.Name)
	if err != nil {
		logger.Error("auth service register issue token failed", err, logger.Fields{
			"username": credential.Username,
		})
		return commons.Failure[models.RegisterResponse](commons.InternalError(err))
	}

	token := newTokenResponse(issued)
	response.Token = &token
	return commons.SuccessResponse("account registered successfully", response), nil
}

func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (commons.Response[models.TokenResponse], error) {
	logger.Info("auth service login request", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		observability.RecordLogin(observability.OutcomeFailure)
		return commons.Failure[models.TokenResponse](commons.ValidationError(err.Error()))
	}

	username := strings.TrimSpace(req.Username)
	fields := logger.Fields{"username": username}

	credential, err := s.credentialRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, commons.ErrRecordNotFound) {
			s.hasher.CompareDummy(req.Password)
			return s.rejectLogin(fields)
		}
		return s.loginFault(err, fields)
	}

	if err := s.hasher.Compare(credential.PasswordHash, req.Password); err != nil {
		if errors.Is(err, security.ErrPasswordMismatch) {
			return s.rejectLogin(fields)
		}
		return s.loginFault(err, fields)
	}

	account, err := s.accountRepo.GetByID(ctx, credential.AccountID)
	if err != nil {
		return s.loginFault(err, fields)
	}

	issued, err := s.tokens.Issue(credential, account.Name)
	if err != nil {
		return s.loginFault(err, fields)
	}

	logger.Info("auth service login success", logger.Fields{
		"username":  username,
		"role":      string(credential.Role),
		"accountId": credential.AccountID,
	})
	observability.RecordLogin(observability.OutcomeSuccess)

	return commons.SuccessResponse("authentication successful", newTokenResponse(issued)), nil
}

func (s *AuthService) rejectLogin(fields logger.Fields) (commons.Response[models.TokenResponse], error) {
	logger.Info("auth service login rejected", fields)
	observability.RecordLogin(observability.OutcomeFailure)
	return commons.Failure[models.TokenResponse](commons.NewError(commons.KindInvalidCredentials, "Invalid username or password", nil))
}

func (s *AuthService) loginFault(err error, fields logger.Fields) (commons.Response[models.TokenResponse], error) {
	logger.Error("auth service login failed", err, fields)
	observability.RecordLogin(observability.OutcomeFailure)
	return commons.Failure[models.TokenResponse](commons.InternalError(err))
}

func newTokenResponse(issued security.IssuedToken) models.TokenResponse {
	return models.TokenResponse{
		Token:     issued.Token,
		TokenType: tokenType,
		ExpiresAt: issued.ExpiresAt.UTC().Format(time.RFC3339),
	}
}
