package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/api-sage/banking-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/banking-ledger/src/internal/commons"
	"github.com/api-sage/banking-ledger/src/internal/domain"
	"github.com/api-sage/banking-ledger/src/internal/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var _ repo_interfaces.AccountRepository = (*Store)(nil)
var _ repo_interfaces.CredentialRepository = (*Store)(nil)

// accountEntry serializes every read-modify-write on one account.
type accountEntry struct {
	mu      sync.Mutex
	account domain.Account
}

func (e *accountEntry) snapshot() domain.Account {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.account
}

// Store keeps accounts and credentials in process memory. The index lock
// guards the maps only; balances are guarded by each entry's own lock.
type Store struct {
	mu          sync.RWMutex
	accounts    map[string]*accountEntry
	credentials map[string]domain.Credential
	now         func() time.Time
}

func NewStore() *Store {
	return &Store{
		accounts:    make(map[string]*accountEntry),
		credentials: make(map[string]domain.Credential),
		now:         time.Now,
	}
}

func (s *Store) Create(ctx context.Context, account domain.Account, credential domain.Credential) (domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return domain.Account{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.credentials[credential.Username]; exists {
		logger.Info("memory store create duplicate username", logger.Fields{
			"username": credential.Username,
		})
		return domain.Account{}, commons.ErrDuplicateRecord
	}

	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	if _, exists := s.accounts[account.ID]; exists {
		return domain.Account{}, commons.ErrDuplicateRecord
	}

	now := s.now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now
	credential.AccountID = account.ID
	credential.CreatedAt = now

	s.accounts[account.ID] = &accountEntry{account: account}
	s.credentials[credential.Username] = credential

	return account, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return domain.Account{}, err
	}

	entry, ok := s.entry(id)
	if !ok {
		return domain.Account{}, commons.ErrRecordNotFound
	}
	return entry.snapshot(), nil
}

func (s *Store) GetByUsername(ctx context.Context, username string) (domain.Credential, error) {
	if err := ctx.Err(); err != nil {
		return domain.Credential{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	credential, ok := s.credentials[username]
	if !ok {
		return domain.Credential{}, commons.ErrRecordNotFound
	}
	return credential, nil
}

func (s *Store) UpdateBalance(ctx context.Context, id string, delta decimal.Decimal) (domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return domain.Account{}, err
	}

	entry, ok := s.entry(id)
	if !ok {
		return domain.Account{}, commons.ErrRecordNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	next := entry.account.Balance.Add(delta)
	if next.IsNegative() {
		return domain.Account{}, commons.ErrInsufficientBalance
	}
	if next.GreaterThan(domain.MaxBalance) {
		return domain.Account{}, commons.ErrBalanceLimit
	}

	entry.account.Balance = next
	entry.account.UpdatedAt = s.now().UTC()
	return entry.account, nil
}

func (s *Store) Transfer(ctx context.Context, intent domain.TransferIntent) (domain.Account, domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return domain.Account{}, domain.Account{}, err
	}
	if intent.SenderID == intent.ReceiverID {
		return domain.Account{}, domain.Account{}, commons.ErrSameAccount
	}

	sender, ok := s.entry(intent.SenderID)
	if !ok {
		return domain.Account{}, domain.Account{}, commons.ErrRecordNotFound
	}
	receiver, ok := s.entry(intent.ReceiverID)
	if !ok {
		return domain.Account{}, domain.Account{}, commons.ErrRecordNotFound
	}

	first, second := sender, receiver
	if intent.ReceiverID < intent.SenderID {
		first, second = receiver, sender
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	if sender.account.Balance.LessThan(intent.Amount) {
		return domain.Account{}, domain.Account{}, commons.ErrInsufficientBalance
	}
	if receiver.account.Balance.Add(intent.Amount).GreaterThan(domain.MaxBalance) {
		return domain.Account{}, domain.Account{}, commons.ErrBalanceLimit
	}

	now := s.now().UTC()
	sender.account.Balance = sender.account.Balance.Sub(intent.Amount)
	sender.account.UpdatedAt = now
	receiver.account.Balance = receiver.account.Balance.Add(intent.Amount)
	receiver.account.UpdatedAt = now

	return sender.account, receiver.account, nil
}

func (s *Store) List(ctx context.Context, query domain.AccountListQuery) ([]domain.Account, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	s.mu.RLock()
	entries := make([]*accountEntry, 0, len(s.accounts))
	for _, entry := range s.accounts {
		entries = append(entries, entry)
	}
	s.mu.RUnlock()

	name := strings.TrimSpace(query.Name)
	matched := make([]domain.Account, 0, len(entries))
	for _, entry := range entries {
		account := entry.snapshot()
		if name != "" && account.Name != name {
			continue
		}
		matched = append(matched, account)
	}

	sort.Slice(matched, func(i, j int) bool {
		return less(matched[i], matched[j], query.SortField, query.Descending)
	})

	total := len(matched)
	start := query.Offset()
	if start < 0 || start >= total {
		return []domain.Account{}, total, nil
	}
	end := total
	if query.PageSize > 0 && query.PageSize < total-start {
		end = start + query.PageSize
	}

	return matched[start:end], total, nil
}

func (s *Store) entry(id string) (*accountEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.accounts[id]
	return entry, ok
}

// less orders by the chosen field and breaks ties by ascending id.
func less(a domain.Account, b domain.Account, field domain.AccountSortField, descending bool) bool {
	var cmp int
	switch field {
	case domain.AccountSortByBalance:
		cmp = a.Balance.Cmp(b.Balance)
	default:
		cmp = strings.Compare(a.Name, b.Name)
	}
	if descending {
		cmp = -cmp
	}
	if cmp != 0 {
		return cmp < 0
	}
	return a.ID < b.ID
}
