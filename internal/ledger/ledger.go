// Package ledger reads the external ledger's projection of payments and
// refunds. The connector never writes here directly; the ledger is fed by the
// event stream and consulted for parity checks before a charge is expunged.
package ledger

import (
	"context"
	"errors"
)

// ErrNotFound indicates the ledger holds no transaction for the external id.
var ErrNotFound = errors.New("transaction not found in ledger")

// State is the ledger's view of a transaction's external state.
type State struct {
	Status   string `json:"status"`
	Finished bool   `json:"finished"`
}

// Transaction is the ledger's projection of a payment or refund. Refunds are
// transactions in their own right, linked by ParentTransactionID.
type Transaction struct {
	TransactionID        string `json:"transaction_id"`
	ParentTransactionID  string `json:"parent_transaction_id,omitempty"`
	Amount               int64  `json:"amount"`
	Description          string `json:"description"`
	Reference            string `json:"reference"`
	Language             string `json:"language"`
	Email                string `json:"email"`
	ReturnURL            string `json:"return_url"`
	GatewayTransactionID string `json:"gateway_transaction_id"`
	State                State  `json:"state"`
}

// Reader fetches ledger transactions by external id.
type Reader interface {
	GetTransaction(ctx context.Context, externalID string) (Transaction, error)
}
