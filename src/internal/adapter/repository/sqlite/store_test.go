package sqlite

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"sync"
	"testing"

	"github.com/api-sage/banking-ledger/src/internal/commons"
	"github.com/api-sage/banking-ledger/src/internal/domain"
	"github.com/shopspring/decimal"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedAccount(t *testing.T, store *Store, name string, username string, balance string) domain.Account {
	t.Helper()

	account, err := store.Create(context.Background(), domain.Account{Name: name, Balance: decimal.Zero}, domain.Credential{
		Username:     username,
		PasswordHash: "hash",
		Role:         domain.RoleUser,
	})
	if err != nil {
		t.Fatalf("Create(%s) error: %v", username, err)
	}
	if balance != "0" {
		account, err = store.UpdateBalance(context.Background(), account.ID, decimal.RequireFromString(balance))
		if err != nil {
			t.Fatalf("UpdateBalance(%s) error: %v", username, err)
		}
	}
	return account
}

func TestStore_CreateAndLookup(t *testing.T) {
	store := newTestStore(t)
	account := seedAccount(t, store, "Ada Lovelace", "ada.l", "0")

	got, err := store.GetByID(context.Background(), account.ID)
	if err != nil {
		t.Fatalf("GetByID() error: %v", err)
	}
	if got.Name != "Ada Lovelace" || !got.Balance.IsZero() {
		t.Errorf("GetByID() = %+v, want Ada Lovelace with zero balance", got)
	}

	credential, err := store.GetByUsername(context.Background(), "ada.l")
	if err != nil {
		t.Fatalf("GetByUsername() error: %v", err)
	}
	if credential.AccountID != account.ID || credential.Role != domain.RoleUser {
		t.Errorf("GetByUsername() = %+v, want account %s role User", credential, account.ID)
	}

	if _, err := store.GetByUsername(context.Background(), "nobody"); !errors.Is(err, commons.ErrRecordNotFound) {
		t.Errorf("GetByUsername(nobody) error = %v, want ErrRecordNotFound", err)
	}
}

func TestStore_CreateDuplicateUsernameRollsBack(t *testing.T) {
	store := newTestStore(t)
	seedAccount(t, store, "Ada Lovelace", "ada.l", "0")

	_, err := store.Create(context.Background(), domain.Account{Name: "Imposter"}, domain.Credential{
		Username:     "ada.l",
		PasswordHash: "hash",
		Role:         domain.RoleUser,
	})
	if !errors.Is(err, commons.ErrDuplicateRecord) {
		t.Fatalf("Create() error = %v, want ErrDuplicateRecord", err)
	}

	_, total, err := store.List(context.Background(), domain.AccountListQuery{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if total != 1 {
		t.Errorf("total = %d, want 1 (orphan account must not remain)", total)
	}
}

func TestStore_UpdateBalance(t *testing.T) {
	store := newTestStore(t)
	account := seedAccount(t, store, "Ada Lovelace", "ada.l", "100.25")

	if !account.Balance.Equal(decimal.RequireFromString("100.25")) {
		t.Fatalf("balance = %s, want 100.25", account.Balance)
	}

	if _, err := store.UpdateBalance(context.Background(), account.ID, decimal.NewFromInt(-101)); !errors.Is(err, commons.ErrInsufficientBalance) {
		t.Fatalf("UpdateBalance() error = %v, want ErrInsufficientBalance", err)
	}
	if _, err := store.UpdateBalance(context.Background(), "missing", decimal.NewFromInt(1)); !errors.Is(err, commons.ErrRecordNotFound) {
		t.Fatalf("UpdateBalance(missing) error = %v, want ErrRecordNotFound", err)
	}

	got, _ := store.GetByID(context.Background(), account.ID)
	if !got.Balance.Equal(decimal.RequireFromString("100.25")) {
		t.Errorf("balance = %s, want unchanged 100.25", got.Balance)
	}
}

func TestStore_ConcurrentWithdrawals(t *testing.T) {
	store := newTestStore(t)
	account := seedAccount(t, store, "Ada Lovelace", "ada.l", "100")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = store.UpdateBalance(context.Background(), account.ID, decimal.NewFromInt(-60))
		}(i)
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			if !errors.Is(err, commons.ErrInsufficientBalance) {
				t.Fatalf("unexpected error: %v", err)
			}
			failures++
		}
	}
	if failures != 1 {
		t.Fatalf("failures = %d, want 1", failures)
	}

	got, _ := store.GetByID(context.Background(), account.ID)
	if !got.Balance.Equal(decimal.NewFromInt(40)) {
		t.Errorf("balance = %s, want 40", got.Balance)
	}
}

func TestStore_Transfer(t *testing.T) {
	store := newTestStore(t)
	sender := seedAccount(t, store, "Ada Lovelace", "ada.l", "50")
	receiver := seedAccount(t, store, "Alan Turing", "alan.t", "5")

	updatedSender, updatedReceiver, err := store.Transfer(context.Background(), domain.TransferIntent{
		SenderID:   sender.ID,
		ReceiverID: receiver.ID,
		Amount:     decimal.NewFromInt(20),
	})
	if err != nil {
		t.Fatalf("Transfer() error: %v", err)
	}
	if !updatedSender.Balance.Equal(decimal.NewFromInt(30)) || !updatedReceiver.Balance.Equal(decimal.NewFromInt(25)) {
		t.Errorf("balances = %s / %s, want 30 / 25", updatedSender.Balance, updatedReceiver.Balance)
	}

	_, _, err = store.Transfer(context.Background(), domain.TransferIntent{
		SenderID:   sender.ID,
		ReceiverID: receiver.ID,
		Amount:     decimal.NewFromInt(31),
	})
	if !errors.Is(err, commons.ErrInsufficientBalance) {
		t.Fatalf("Transfer() error = %v, want ErrInsufficientBalance", err)
	}

	_, _, err = store.Transfer(context.Background(), domain.TransferIntent{
		SenderID:   sender.ID,
		ReceiverID: "missing",
		Amount:     decimal.NewFromInt(1),
	})
	if !errors.Is(err, commons.ErrRecordNotFound) {
		t.Fatalf("Transfer() error = %v, want ErrRecordNotFound", err)
	}

	gotSender, _ := store.GetByID(context.Background(), sender.ID)
	gotReceiver, _ := store.GetByID(context.Background(), receiver.ID)
	if !gotSender.Balance.Equal(decimal.NewFromInt(30)) || !gotReceiver.Balance.Equal(decimal.NewFromInt(25)) {
		t.Errorf("balances after failures = %s / %s, want 30 / 25", gotSender.Balance, gotReceiver.Balance)
	}
}

func TestStore_List(t *testing.T) {
	store := newTestStore(t)
	seedAccount(t, store, "Carol", "carol.c", "9.5")
	seedAccount(t, store, "Alice", "alice.a", "100")
	seedAccount(t, store, "Bob", "bob.b1", "20")

	tests := []struct {
		name      string
		query     domain.AccountListQuery
		wantNames []string
		wantTotal int
	}{
		{
			name:      "name ascending",
			query:     domain.AccountListQuery{Page: 1, PageSize: 10, SortField: domain.AccountSortByName},
			wantNames: []string{"Alice", "Bob", "Carol"},
			wantTotal: 3,
		},
		{
			name:      "balance ascending is numeric",
			query:     domain.AccountListQuery{Page: 1, PageSize: 10, SortField: domain.AccountSortByBalance},
			wantNames: []string{"Carol", "Bob", "Alice"},
			wantTotal: 3,
		},
		{
			name:      "second page",
			query:     domain.AccountListQuery{Page: 2, PageSize: 2, SortField: domain.AccountSortByName},
			wantNames: []string{"Carol"},
			wantTotal: 3,
		},
		{
			name:      "name filter",
			query:     domain.AccountListQuery{Name: "Bob", Page: 1, PageSize: 10},
			wantNames: []string{"Bob"},
			wantTotal: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accounts, total, err := store.List(context.Background(), tt.query)
			if err != nil {
				t.Fatalf("List() error: %v", err)
			}
			if total != tt.wantTotal {
				t.Errorf("total = %d, want %d", total, tt.wantTotal)
			}
			if len(accounts) != len(tt.wantNames) {
				t.Fatalf("len = %d, want %d", len(accounts), len(tt.wantNames))
			}
			for i, want := range tt.wantNames {
				if accounts[i].Name != want {
					t.Errorf("accounts[%d] = %s, want %s", i, accounts[i].Name, want)
				}
			}
		})
	}
}

func TestStore_TransferRejectsSameAccount(t *testing.T) {
	store := newTestStore(t)
	account := seedAccount(t, store, "Ada Lovelace", "ada.l", "50")

	_, _, err := store.Transfer(context.Background(), domain.TransferIntent{
		SenderID:   account.ID,
		ReceiverID: account.ID,
		Amount:     decimal.NewFromInt(20),
	})
	if !errors.Is(err, commons.ErrSameAccount) {
		t.Fatalf("Transfer() error = %v, want ErrSameAccount", err)
	}

	got, _ := store.GetByID(context.Background(), account.ID)
	if !got.Balance.Equal(decimal.NewFromInt(50)) {
		t.Errorf("balance = %s, want 50", got.Balance)
	}
}

func TestStore_BalanceLimit(t *testing.T) {
	store := newTestStore(t)
	rich := seedAccount(t, store, "Ada Lovelace", "ada.l", domain.MaxBalance.String())
	sender := seedAccount(t, store, "Alan Turing", "alan.t", "10")

	if !rich.Balance.Equal(domain.MaxBalance) {
		t.Fatalf("balance = %s, want %s", rich.Balance, domain.MaxBalance)
	}
	if _, err := store.UpdateBalance(context.Background(), rich.ID, decimal.RequireFromString("0.01")); !errors.Is(err, commons.ErrBalanceLimit) {
		t.Fatalf("UpdateBalance() error = %v, want ErrBalanceLimit", err)
	}
	_, _, err := store.Transfer(context.Background(), domain.TransferIntent{SenderID: sender.ID, ReceiverID: rich.ID, Amount: decimal.NewFromInt(1)})
	if !errors.Is(err, commons.ErrBalanceLimit) {
		t.Fatalf("Transfer() error = %v, want ErrBalanceLimit", err)
	}

	gotSender, _ := store.GetByID(context.Background(), sender.ID)
	if !gotSender.Balance.Equal(decimal.NewFromInt(10)) {
		t.Errorf("sender balance = %s, want 10 after rollback", gotSender.Balance)
	}
}

func TestStore_ListOrdersLargeBalancesExactly(t *testing.T) {
	store := newTestStore(t)
	seedAccount(t, store, "Two", "two.t", "999999999999999.02")
	seedAccount(t, store, "One", "one.o", "999999999999999.01")
	seedAccount(t, store, "Three", "three.t", "999999999999999.03")
	seedAccount(t, store, "Small", "small.s", "7.5")

	accounts, _, err := store.List(context.Background(), domain.AccountListQuery{Page: 1, PageSize: 10, SortField: domain.AccountSortByBalance})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	want := []string{"Small", "One", "Two", "Three"}
	for i, name := range want {
		if accounts[i].Name != name {
			t.Errorf("accounts[%d] = %s, want %s", i, accounts[i].Name, name)
		}
	}
	if !accounts[1].Balance.Equal(decimal.RequireFromString("999999999999999.01")) {
		t.Errorf("balance = %s, want 999999999999999.01", accounts[1].Balance)
	}
}

func TestStore_ListHugePage(t *testing.T) {
	store := newTestStore(t)
	seedAccount(t, store, "Alice", "alice.a", "1")

	accounts, total, err := store.List(context.Background(), domain.AccountListQuery{Page: math.MaxInt, PageSize: 10})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if total != 1 || len(accounts) != 0 {
		t.Errorf("got %d accounts of %d, want 0 of 1", len(accounts), total)
	}
}

func TestFormatBalance(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "0", want: "000000000000000000.00"},
		{in: "9.5", want: "000000000000000009.50"},
		{in: "999999999999999999.99", want: "999999999999999999.99"},
	}
	for _, tt := range tests {
		if got := formatBalance(decimal.RequireFromString(tt.in)); got != tt.want {
			t.Errorf("formatBalance(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
	if got := orderClause(domain.AccountListQuery{SortField: domain.AccountSortByBalance, Descending: true}); got != "balance DESC, id ASC" {
		t.Errorf("orderClause() = %q, want balance DESC, id ASC", got)
	}
}
