package domain

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// MaxBalance is the largest balance a NUMERIC(20, 2) column can hold.
var MaxBalance = decimal.RequireFromString("999999999999999999.99")

type Account struct {
	ID        string
	Name      string
	Balance   decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AccountView is the read-only projection of an Account handed to callers.
type AccountView struct {
	ID      string
	Name    string
	Balance decimal.Decimal
}

func (a Account) View() AccountView {
	return AccountView{
		ID:      a.ID,
		Name:    a.Name,
		Balance: a.Balance,
	}
}

type AccountSortField string

const (
	AccountSortByName    AccountSortField = "name"
	AccountSortByBalance AccountSortField = "balance"
)

type AccountListQuery struct {
	Name       string
	Page       int
	PageSize   int
	SortField  AccountSortField
	Descending bool
}

// Offset is the number of rows skipped before the requested page.
func (q AccountListQuery) Offset() int {
	if q.Page < 1 || q.PageSize < 1 {
		return 0
	}
	if q.Page-1 > math.MaxInt/q.PageSize {
		return math.MaxInt
	}
	return (q.Page - 1) * q.PageSize
}

type PaginationMetadata struct {
	TotalItemCount int `json:"totalItemCount"`
	TotalPageCount int `json:"totalPageCount"`
	PageSize       int `json:"pageSize"`
	CurrentPage    int `json:"currentPage"`
}

func NewPaginationMetadata(totalItemCount int, pageSize int, currentPage int) PaginationMetadata {
	totalPages := 0
	if pageSize > 0 {
		totalPages = (totalItemCount + pageSize - 1) / pageSize
	}

	return PaginationMetadata{
		TotalItemCount: totalItemCount,
		TotalPageCount: totalPages,
		PageSize:       pageSize,
		CurrentPage:    currentPage,
	}
}
