package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/api-sage/banking-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/banking-ledger/src/internal/commons"
	"github.com/api-sage/banking-ledger/src/internal/domain"
	"github.com/api-sage/banking-ledger/src/internal/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var _ repo_interfaces.AccountRepository = (*Store)(nil)
var _ repo_interfaces.CredentialRepository = (*Store)(nil)

const accountColumns = `id, name, balance, created_at, updated_at`

// balanceWidth is len(domain.MaxBalance.StringFixed(2)).
const balanceWidth = 21

// Store is a single-file ledger. It keeps one pooled connection so every
// write transaction is serialized by the pool itself.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	for _, stmt := range Migrations() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply sqlite schema: %w", err)
		}
	}

	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Create(ctx context.Context, account domain.Account, credential domain.Credential) (created domain.Account, err error) {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	now := s.now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Account{}, fmt.Errorf("begin create account transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO accounts (id, name, balance, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		account.ID, account.Name, formatBalance(account.Balance), formatTime(now), formatTime(now),
	); err != nil {
		if isUniqueViolation(err) {
			return domain.Account{}, commons.ErrDuplicateRecord
		}
		return domain.Account{}, fmt.Errorf("create account: %w", err)
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO credentials (username, password_hash, role, account_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		credential.Username, credential.PasswordHash, string(credential.Role), account.ID, formatTime(now),
	); err != nil {
		if isUniqueViolation(err) {
			logger.Info("sqlite store create duplicate username", logger.Fields{
				"username": credential.Username,
			})
			return domain.Account{}, commons.ErrDuplicateRecord
		}
		return domain.Account{}, fmt.Errorf("create credential: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return domain.Account{}, fmt.Errorf("commit create account transaction: %w", err)
	}

	return account, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (domain.Account, error) {
	return getAccount(ctx, s.db, id)
}

func (s *Store) GetByUsername(ctx context.Context, username string) (domain.Credential, error) {
	var credential domain.Credential
	var role, createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT username, password_hash, role, account_id, created_at FROM credentials WHERE username = ?`,
		username,
	).Scan(&credential.Username, &credential.PasswordHash, &role, &credential.AccountID, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Credential{}, commons.ErrRecordNotFound
		}
		return domain.Credential{}, fmt.Errorf("get credential by username: %w", err)
	}

	credential.Role = domain.Role(role)
	credential.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return domain.Credential{}, err
	}
	return credential, nil
}

func (s *Store) UpdateBalance(ctx context.Context, id string, delta decimal.Decimal) (updated domain.Account, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Account{}, fmt.Errorf("begin update balance transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	updated, err = applyDelta(ctx, tx, id, delta, s.now().UTC())
	if err != nil {
		return domain.Account{}, err
	}

	if err = tx.Commit(); err != nil {
		return domain.Account{}, fmt.Errorf("commit update balance transaction: %w", err)
	}
	return updated, nil
}

func (s *Store) Transfer(ctx context.Context, intent domain.TransferIntent) (sender domain.Account, receiver domain.Account, err error) {
	if intent.SenderID == intent.ReceiverID {
		return domain.Account{}, domain.Account{}, commons.ErrSameAccount
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Account{}, domain.Account{}, fmt.Errorf("begin transfer transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = getAccount(ctx, tx, intent.ReceiverID); err != nil {
		return domain.Account{}, domain.Account{}, err
	}

	now := s.now().UTC()
	if sender, err = applyDelta(ctx, tx, intent.SenderID, intent.Amount.Neg(), now); err != nil {
		return domain.Account{}, domain.Account{}, err
	}
	if receiver, err = applyDelta(ctx, tx, intent.ReceiverID, intent.Amount, now); err != nil {
		return domain.Account{}, domain.Account{}, err
	}

	if err = tx.Commit(); err != nil {
		return domain.Account{}, domain.Account{}, fmt.Errorf("commit transfer transaction: %w", err)
	}
	return sender, receiver, nil
}

func (s *Store) List(ctx context.Context, query domain.AccountListQuery) ([]domain.Account, int, error) {
	name := strings.TrimSpace(query.Name)

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM accounts WHERE (? = '' OR name = ?)`, name, name,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count accounts: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE (? = '' OR name = ?) ORDER BY `+orderClause(query)+` LIMIT ? OFFSET ?`,
		name, name, query.PageSize, query.Offset(),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]domain.Account, 0, min(max(query.PageSize, 0), total))
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, 0, err
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate accounts: %w", err)
	}

	return accounts, total, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

func getAccount(ctx context.Context, q queryer, id string) (domain.Account, error) {
	account, err := scanAccount(q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Account{}, commons.ErrRecordNotFound
		}
		return domain.Account{}, err
	}
	return account, nil
}

func applyDelta(ctx context.Context, tx *sql.Tx, id string, delta decimal.Decimal, now time.Time) (domain.Account, error) {
	account, err := getAccount(ctx, tx, id)
	if err != nil {
		return domain.Account{}, err
	}

	next := account.Balance.Add(delta)
	if next.IsNegative() {
		return domain.Account{}, commons.ErrInsufficientBalance
	}
	if next.GreaterThan(domain.MaxBalance) {
		return domain.Account{}, commons.ErrBalanceLimit
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE accounts SET balance = ?, updated_at = ? WHERE id = ?`,
		formatBalance(next), formatTime(now), id,
	); err != nil {
		return domain.Account{}, fmt.Errorf("update account balance: %w", err)
	}

	account.Balance = next
	account.UpdatedAt = now
	return account, nil
}

func scanAccount(row rowScanner) (domain.Account, error) {
	var account domain.Account
	var balance, createdAt, updatedAt string
	if err := row.Scan(&account.ID, &account.Name, &balance, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Account{}, err
		}
		return domain.Account{}, fmt.Errorf("scan account: %w", err)
	}

	var err error
	if account.Balance, err = decimal.NewFromString(balance); err != nil {
		return domain.Account{}, fmt.Errorf("parse account balance: %w", err)
	}
	if account.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.Account{}, err
	}
	if account.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return domain.Account{}, err
	}
	return account, nil
}

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

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		return strings.Contains(sqliteErr.Error(), "UNIQUE constraint failed")
	default:
		return false
	}
}

// formatBalance renders a balance zero padded to a fixed width so that
// text order on the balance column matches numeric order.
func formatBalance(balance decimal.Decimal) string {
	fixed := balance.StringFixed(2)
	if pad := balanceWidth - len(fixed); pad > 0 {
		return strings.Repeat("0", pad) + fixed
	}
	return fixed
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", raw, err)
	}
	return t, nil
}
