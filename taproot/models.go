package taproot

import (
	"context"
	"fmt"
)

const (
	ErrCodeNotAvailable   = "TAPROOT_NOT_AVAILABLE"
	ErrCodeCheckFailed    = "TAPROOT_CHECK_FAILED"
	ErrCodeInvalidAssetID = "INVALID_ASSET_ID"
	ErrCodeInvalidAmount  = "INVALID_AMOUNT"
	ErrCodeRFQFailed      = "RFQ_CREATION_FAILED"
)

// Integration is the taproot assets capability. Exactly one implementation is
// chosen at startup.
type Integration interface {
	IsAvailable(ctx context.Context) (bool, *Error)
	CreateRFQInvoice(ctx context.Context, req *RFQInvoiceRequest) (*RFQInvoice, *Error)
}

type RFQInvoiceRequest struct {
	AssetID     string
	Amount      uint64
	Description string
	WalletID    string
	UserID      string
	AdminKey    string
	Extra       map[string]interface{}
	PeerPubkey  *string
	Expiry      *uint64
}

type RFQInvoice struct {
	PaymentHash    string `json:"payment_hash"`
	PaymentRequest string `json:"payment_request"`
	CheckingID     string `json:"checking_id"`
	IsRFQ          bool   `json:"is_rfq"`
}

type Error struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

type extension struct {
	ID     string `json:"id"`
	Active bool   `json:"active"`
}

type invoiceRequest struct {
	AssetID     string                 `json:"asset_id"`
	Amount      uint64                 `json:"amount"`
	Description string                 `json:"description"`
	Expiry      *uint64                `json:"expiry,omitempty"`
	PeerPubkey  *string                `json:"peer_pubkey,omitempty"`
	Extra       map[string]interface{} `json:"extra,omitempty"`
}

type invoiceResponse struct {
	PaymentHash    string `json:"payment_hash"`
	PaymentRequest string `json:"payment_request"`
	CheckingID     string `json:"checking_id"`
}
