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
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

var _ repo_interfaces.AccountRepository = (*AccountRepository)(nil)

const accountColumns = `id, name, balance, created_at, updated_at`

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (domain.Account, error) {
	var account domain.Account
	err := row.Scan(
		&account.ID,
		&account.Name,
		&account.Balance,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	return account, err
}

func (r *AccountRepository) Create(ctx context.Context, account domain.Account, credential domain.Credential) (created domain.Account, err error) {
	logger.Info("account repository create", logger.Fields{
		"name":     account.Name,
		"username": credential.Username,
	})

	if account.ID == "" {
		account.ID = uuid.NewString()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("account repository begin tx failed", err, nil)
		return domain.Account{}, fmt.Errorf("begin create account transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertAccount = `
INSERT INTO accounts (id, name, balance)
VALUES ($1, $2, $3)
RETURNING ` + accountColumns

	created, err = scanAccount(tx.QueryRowContext(ctx, insertAccount, account.ID, account.Name, account.Balance))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Account{}, commons.ErrDuplicateRecord
		}
		logger.Error("account repository insert account failed", err, logger.Fields{
			"accountId": account.ID,
		})
		return domain.Account{}, fmt.Errorf("create account: %w", err)
	}

	const insertCredential = `
INSERT INTO credentials (username, password_hash, role, account_id)
VALUES ($1, $2, $3, $4)`

	if _, err = execRequiredRows(ctx, tx, insertCredential, credential.Username, credential.PasswordHash, string(credential.Role), created.ID); err != nil {
		if isUniqueViolation(err) {
			logger.Info("account repository create duplicate username", logger.Fields{
				"username": credential.Username,
			})
			err = commons.ErrDuplicateRecord
			return domain.Account{}, err
		}
		logger.Error("account repository insert credential failed", err, logger.Fields{
			"username": credential.Username,
		})
		return domain.Account{}, fmt.Errorf("create credential: %w", err)
	}

	if err = tx.Commit(); err != nil {
		logger.Error("account repository commit tx failed", err, nil)
		return domain.Account{}, fmt.Errorf("commit create account transaction: %w", err)
	}

	logger.Info("account repository create success", logger.Fields{
		"accountId": created.ID,
	})
	return created, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (domain.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Account{}, commons.ErrRecordNotFound
		}
		logger.Error("account repository get failed", err, logger.Fields{
			"accountId": id,
		})
		return domain.Account{}, fmt.Errorf("get account by id: %w", err)
	}

	return account, nil
}

func (r *AccountRepository) UpdateBalance(ctx context.Context, id string, delta decimal.Decimal) (domain.Account, error) {
	logger.Info("account repository update balance", logger.Fields{
		"accountId": id,
		"delta":     delta.String(),
	})

	const query = `
UPDATE accounts
SET balance = balance + $2::numeric,
    updated_at = NOW()
WHERE id = $1
  AND balance + $2::numeric >= 0
  AND balance + $2::numeric <= $3::numeric
RETURNING ` + accountColumns

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, id, delta, domain.MaxBalance))
	if err == nil {
		return account, nil
	}
	if isNumericOverflow(err) {
		return domain.Account{}, commons.ErrBalanceLimit
	}
	if !errors.Is(err, sql.ErrNoRows) {
		logger.Error("account repository update balance failed", err, logger.Fields{
			"accountId": id,
		})
		return domain.Account{}, fmt.Errorf("update account balance: %w", err)
	}

	current, getErr := r.GetByID(ctx, id)
	if getErr != nil {
		return domain.Account{}, getErr
	}
	if current.Balance.Add(delta).IsNegative() {
		return domain.Account{}, commons.ErrInsufficientBalance
	}
	return domain.Account{}, commons.ErrBalanceLimit
}

func (r *AccountRepository) Transfer(ctx context.Context, intent domain.TransferIntent) (sender domain.Account, receiver domain.Account, err error) {
	logger.Info("account repository transfer", logger.Fields{
		"senderId":   intent.SenderID,
		"receiverId": intent.ReceiverID,
		"amount":     intent.Amount.String(),
	})

	if intent.SenderID == intent.ReceiverID {
		return domain.Account{}, domain.Account{}, commons.ErrSameAccount
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("account repository begin tx failed", err, nil)
		return domain.Account{}, domain.Account{}, fmt.Errorf("begin transfer transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Both rows are locked in id order so opposing transfers cannot deadlock.
	const lockQuery = `
SELECT id, balance
FROM accounts
WHERE id = ANY($1::uuid[])
ORDER BY id
FOR UPDATE`

	rows, err := tx.QueryContext(ctx, lockQuery, pq.Array([]string{intent.SenderID, intent.ReceiverID}))
	if err != nil {
		return domain.Account{}, domain.Account{}, fmt.Errorf("lock transfer accounts: %w", err)
	}
	balances := make(map[string]decimal.Decimal, 2)
	for rows.Next() {
		var id string
		var balance decimal.Decimal
		if err = rows.Scan(&id, &balance); err != nil {
			_ = rows.Close()
			return domain.Account{}, domain.Account{}, fmt.Errorf("scan transfer account: %w", err)
		}
		balances[id] = balance
	}
	if err = rows.Close(); err != nil {
		return domain.Account{}, domain.Account{}, fmt.Errorf("close transfer accounts: %w", err)
	}
	if err = rows.Err(); err != nil {
		return domain.Account{}, domain.Account{}, fmt.Errorf("iterate transfer accounts: %w", err)
	}

	senderBalance, senderFound := balances[intent.SenderID]
	receiverBalance, receiverFound := balances[intent.ReceiverID]
	if !senderFound || !receiverFound {
		err = commons.ErrRecordNotFound
		return domain.Account{}, domain.Account{}, err
	}
	if senderBalance.LessThan(intent.Amount) {
		err = commons.ErrInsufficientBalance
		return domain.Account{}, domain.Account{}, err
	}
	if receiverBalance.Add(intent.Amount).GreaterThan(domain.MaxBalance) {
		err = commons.ErrBalanceLimit
		return domain.Account{}, domain.Account{}, err
	}

	const debitQuery = `
UPDATE accounts
SET balance = balance - $2::numeric,
    updated_at = NOW()
WHERE id = $1
  AND balance >= $2::numeric
RETURNING ` + accountColumns
	if sender, err = scanAccount(tx.QueryRowContext(ctx, debitQuery, intent.SenderID, intent.Amount)); err != nil {
		return domain.Account{}, domain.Account{}, fmt.Errorf("debit sender: %w", err)
	}

	const creditQuery = `
UPDATE accounts
SET balance = balance + $2::numeric,
    updated_at = NOW()
WHERE id = $1
RETURNING ` + accountColumns
	if receiver, err = scanAccount(tx.QueryRowContext(ctx, creditQuery, intent.ReceiverID, intent.Amount)); err != nil {
		if isNumericOverflow(err) {
			err = commons.ErrBalanceLimit
			return domain.Account{}, domain.Account{}, err
		}
		return domain.Account{}, domain.Account{}, fmt.Errorf("credit receiver: %w", err)
	}

	if err = tx.Commit(); err != nil {
		logger.Error("account repository commit tx failed", err, nil)
		return domain.Account{}, domain.Account{}, fmt.Errorf("commit transfer transaction: %w", err)
	}

	logger.Info("account repository transfer success", logger.Fields{
		"senderId":   sender.ID,
		"receiverId": receiver.ID,
	})
	return sender, receiver, nil
}

func (r *AccountRepository) List(ctx context.Context, query domain.AccountListQuery) ([]domain.Account, int, error) {
	const countQuery = `SELECT COUNT(1) FROM accounts WHERE ($1 = '' OR name = $1)`

	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, query.Name).Scan(&total); err != nil {
		logger.Error("account repository count failed", err, nil)
		return nil, 0, fmt.Errorf("count accounts: %w", err)
	}

	listQuery := `SELECT ` + accountColumns + `
FROM accounts
WHERE ($1 = '' OR name = $1)
ORDER BY ` + orderClause(query) + `
LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, listQuery, query.Name, query.PageSize, query.Offset())
	if err != nil {
		logger.Error("account repository list failed", err, nil)
		return nil, 0, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]domain.Account, 0, min(max(query.PageSize, 0), total))
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate accounts: %w", err)
	}

	return accounts, total, nil
}

// orderClause only ever emits whitelisted column names.
func orderClause(query domain.AccountListQuery) string {
	column := "name"
	if query.SortField == domain.AccountSortByBalance {
		column = "balance"
	}
	direction := "ASC"
	if query.Descending {
		direction = "DESC"
	}
	return column + " " + direction + ", id ASC"
}
