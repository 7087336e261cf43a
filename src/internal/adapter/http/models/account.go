package models

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/api-sage/banking-ledger/src/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const maxPasswordBytes = 72

type CreateAccountRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

func (r CreateAccountRequest) Validate() error {
	var errs []string

	name := strings.TrimSpace(r.Name)
	if n := utf8.RuneCountInString(name); n < 2 || n > 50 {
		errs = append(errs, "name must be between 2 and 50 characters")
	}

	username := strings.TrimSpace(r.Username)
	if n := utf8.RuneCountInString(username); n < 5 || n > 15 {
		errs = append(errs, "username must be between 5 and 15 characters")
	}

	if r.Password == "" {
		errs = append(errs, "password is required")
	} else if len(r.Password) > maxPasswordBytes {
		errs = append(errs, "password must be at most 72 bytes")
	}

	if _, ok := ParseRole(r.Role); !ok {
		errs = append(errs, "role must be one of Admin, User")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// ParseRole accepts Admin or User in any letter case; empty means User.
func ParseRole(raw string) (domain.Role, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return domain.RoleUser, true
	case "user":
		return domain.RoleUser, true
	case "admin":
		return domain.RoleAdmin, true
	default:
		return "", false
	}
}

type AccountResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Balance string `json:"balance"`
}

func NewAccountResponse(view domain.AccountView) AccountResponse {
	return AccountResponse{
		ID:      view.ID,
		Name:    view.Name,
		Balance: FormatAmount(view.Balance),
	}
}

// FormatAmount renders an amount with exactly two decimals.
func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

type BalanceRequest struct {
	AccountID string          `json:"-"`
	Amount    decimal.Decimal `json:"amount"`
}

func (r BalanceRequest) Validate() error {
	return ValidateAccountID("accountId", r.AccountID)
}

type BalanceResponse struct {
	AccountID string `json:"accountId"`
	Balance   string `json:"balance"`
}

type TransferRequest struct {
	SenderID   string          `json:"senderId"`
	ReceiverID string          `json:"receiverId"`
	Amount     decimal.Decimal `json:"amount"`
}

func (r TransferRequest) Validate() error {
	var errs []string

	if err := ValidateAccountID("senderId", r.SenderID); err != nil {
		errs = append(errs, err.Error())
	}
	if err := ValidateAccountID("receiverId", r.ReceiverID); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) == 0 && strings.EqualFold(strings.TrimSpace(r.SenderID), strings.TrimSpace(r.ReceiverID)) {
		errs = append(errs, "senderId and receiverId must be different accounts")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

type TransferResponse struct {
	SenderID      string `json:"senderId"`
	ReceiverID    string `json:"receiverId"`
	Amount        string `json:"amount"`
	SenderBalance string `json:"senderBalance"`
}

type ConvertBalanceRequest struct {
	AccountID  string
	Currencies string
}

// CurrencyCodes splits, trims, upper-cases and de-duplicates the comma
// separated list while keeping the caller's order.
func (r ConvertBalanceRequest) CurrencyCodes() ([]string, error) {
	var codes []string
	var errs []string
	seen := make(map[string]struct{})

	for _, part := range strings.Split(r.Currencies, ",") {
		code := strings.ToUpper(strings.TrimSpace(part))
		if code == "" {
			continue
		}
		if !isCurrencyCode(code) {
			errs = append(errs, "currency "+code+" must be 3 letters")
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}

	if len(errs) > 0 {
		return nil, errors.New(strings.Join(errs, "; "))
	}
	if len(codes) == 0 {
		return nil, errors.New("currency is required")
	}
	return codes, nil
}

func (r ConvertBalanceRequest) Validate() error {
	var errs []string
	if err := ValidateAccountID("accountId", r.AccountID); err != nil {
		errs = append(errs, err.Error())
	}
	if _, err := r.CurrencyCodes(); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

type ConvertBalanceResponse struct {
	AccountID  string            `json:"accountId"`
	Balance    string            `json:"balance"`
	Converted  map[string]string `json:"converted"`
	Unresolved []string          `json:"unresolved"`
}

type ListAccountsRequest struct {
	Name       string
	PageNumber int
	PageSize   int
	OrderBy    string
	Descending bool
}

type ListAccountsResponse struct {
	Accounts   []AccountResponse         `json:"accounts"`
	Pagination domain.PaginationMetadata `json:"pagination"`
}

func ValidateAccountID(field string, raw string) error {
	id := strings.TrimSpace(raw)
	if id == "" {
		return errors.New(field + " is required")
	}
	if _, err := uuid.Parse(id); err != nil {
		return errors.New(field + " must be a valid UUID")
	}
	return nil
}

func isCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, ch := range code {
		if ch < 'A' || ch > 'Z' {
			return false
		}
	}
	return true
}
