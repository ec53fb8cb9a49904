package lnclient

import (
	"context"
)

const DEFAULT_INVOICE_EXPIRY = 86400

type Transaction struct {
	Type            string
	Invoice         string
	Description     string
	DescriptionHash string
	Preimage        string
	PaymentHash     string
	Amount          int64
	CreatedAt       int64
	ExpiresAt       *int64
	SettledAt       *int64
	Metadata        map[string]interface{}
}

type NodeInfo struct {
	Alias       string
	Color       string
	Pubkey      string
	Network     string
	BlockHeight uint32
	BlockHash   string
}

// LNClient is the part of a lightning node the switch service needs: creating
// invoices and observing them. Settled invoices are reported through the event
// publisher given to the implementation.
type LNClient interface {
	MakeInvoice(ctx context.Context, amount int64, description string, descriptionHash string, expiry int64) (transaction *Transaction, err error)
	LookupInvoice(ctx context.Context, paymentHash string) (transaction *Transaction, err error)
	GetInfo(ctx context.Context) (info *NodeInfo, err error)
	Shutdown() error
}
