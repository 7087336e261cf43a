package domain

import "github.com/shopspring/decimal"

// TransferIntent lives for a single ledger call and is never persisted.
type TransferIntent struct {
	SenderID   string
	ReceiverID string
	Amount     decimal.Decimal
}
