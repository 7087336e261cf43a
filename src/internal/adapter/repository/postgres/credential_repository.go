package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/api-sage/banking-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/banking-ledger/src/internal/commons"
	"github.com/api-sage/banking-ledger/src/internal/domain"
	"github.com/api-sage/banking-ledger/src/internal/logger"
)

var _ repo_interfaces.CredentialRepository = (*CredentialRepository)(nil)

type CredentialRepository struct {
	db *sql.DB
}

func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

func (r *CredentialRepository) GetByUsername(ctx context.Context, username string) (domain.Credential, error) {
	const query = `
SELECT username, password_hash, role, account_id, created_at
FROM credentials
WHERE username = $1`

	var credential domain.Credential
	var role string
	if err := r.db.QueryRowContext(ctx, query, username).Scan(
		&credential.Username,
		&credential.PasswordHash,
		&role,
		&credential.AccountID,
		&credential.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Credential{}, commons.ErrRecordNotFound
		}
		logger.Error("credential repository get by username failed", err, logger.Fields{
			"username": username,
		})
		return domain.Credential{}, fmt.Errorf("get credential by username: %w", err)
	}

	credential.Role = domain.Role(role)
	return credential, nil
}
