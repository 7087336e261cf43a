package services

import (
	"errors"
	"strings"

	"github.com/api-sage/banking-ledger/src/internal/commons"
	"github.com/api-sage/banking-ledger/src/internal/logger"
	"github.com/api-sage/banking-ledger/src/internal/observability"
)

// failed logs err, counts it against operation and builds the failed
// envelope. Internal faults are logged at error level; business outcomes at
// info level.
func failed[T any](operation string, err error, fields logger.Fields) (commons.Response[T], error) {
	kind := commons.KindOf(err)
	if kind == commons.KindInternal {
		logger.Error("ledger "+operation+" failed", err, fields)
	} else {
		merged := logger.Fields{"kind": string(kind), "reason": err.Error()}
		for k, v := range fields {
			merged[k] = v
		}
		logger.Info("ledger "+operation+" rejected", merged)
	}

	observability.RecordOperation(operation, strings.ToLower(string(kind)))
	return commons.Failure[T](err)
}

func succeeded(operation string) {
	observability.RecordOperation(operation, observability.OutcomeSuccess)
}

// translateStoreError turns a repository sentinel into a kinded error.
func translateStoreError(err error, notFoundMessage string) error {
	switch {
	case errors.Is(err, commons.ErrRecordNotFound):
		return commons.NotFound(notFoundMessage, err)
	case errors.Is(err, commons.ErrInsufficientBalance):
		return commons.NewError(commons.KindInsufficientFunds, "Insufficient funds", err)
	case errors.Is(err, commons.ErrSameAccount):
		return commons.ValidationError("senderId and receiverId must be different accounts")
	case errors.Is(err, commons.ErrBalanceLimit):
		return commons.NewError(commons.KindInvalidAmount, "Resulting balance exceeds the maximum supported value", err)
	case errors.Is(err, commons.ErrDuplicateRecord):
		return commons.NewError(commons.KindDuplicateUsername, "Username already exists", err)
	default:
		return commons.InternalError(err)
	}
}
