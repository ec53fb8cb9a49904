package api

import (
	"context"
	"time"

	"github.com/flokiorg/bitcoinswitch/db"
)

type API interface {
	CreateSwitch(ctx context.Context, wallet *db.Wallet, req *CreateSwitchRequest) (*Switch, error)
	UpdateSwitch(ctx context.Context, wallet *db.Wallet, id string, req *CreateSwitchRequest) (*Switch, error)
	GetSwitch(ctx context.Context, wallet *db.Wallet, id string) (*Switch, error)
	ListSwitches(ctx context.Context, wallet *db.Wallet) ([]Switch, error)
	DeleteSwitch(ctx context.Context, wallet *db.Wallet, id string) error
	TriggerSwitch(ctx context.Context, wallet *db.Wallet, id string, pin int) (string, error)
	ListPayments(ctx context.Context, wallet *db.Wallet) ([]SwitchPayment, error)
	GetPublicSwitch(ctx context.Context, id string) (*PublicSwitch, error)
	GetPinQRCode(ctx context.Context, id string, pin int) ([]byte, error)
	GetWalletInfo(ctx context.Context, wallet *db.Wallet) (*WalletInfoResponse, error)
	ListTransactions(ctx context.Context, wallet *db.Wallet) ([]Transaction, error)
	GetCurrencies(ctx context.Context) ([]string, error)
	LnurlParams(ctx context.Context, switchID string, req *LnurlParamsRequest) (*LnurlPayResponse, error)
	LnurlCallback(ctx context.Context, paymentID string, req *LnurlCallbackRequest) (*LnurlCallbackResponse, error)
}

type PinConfig = db.PinConfig

type CreateSwitchRequest struct {
	Title      string      `json:"title"`
	Wallet     string      `json:"wallet"`
	Currency   string      `json:"currency"`
	Switches   []PinConfig `json:"switches"`
	Password   *string     `json:"password"`
	Disabled   bool        `json:"disabled"`
	Disposable *bool       `json:"disposable"`
	Npub       *string     `json:"npub"`
}

type Switch struct {
	ID         string      `json:"id"`
	Key        string      `json:"key"`
	Title      string      `json:"title"`
	Wallet     string      `json:"wallet"`
	Currency   string      `json:"currency"`
	Switches   []PinConfig `json:"switches"`
	Password   *string     `json:"password"`
	Disabled   bool        `json:"disabled"`
	Disposable bool        `json:"disposable"`
	Npub       *string     `json:"npub"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

type PublicPin struct {
	Pin           int      `json:"pin"`
	Amount        float64  `json:"amount"`
	Duration      int      `json:"duration"`
	Comment       bool     `json:"comment"`
	Variable      bool     `json:"variable"`
	Label         *string  `json:"label,omitempty"`
	AcceptsAssets bool     `json:"accepts_assets"`
	AcceptedAsset []string `json:"accepted_asset_ids"`
	Lnurl         string   `json:"lnurl"`
}

// PublicSwitch is what payers may see of a switch: no keys, no password.
type PublicSwitch struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Currency    string      `json:"currency"`
	Disabled    bool        `json:"disabled"`
	HasPassword bool        `json:"has_password"`
	Connected   bool        `json:"connected"`
	Switches    []PublicPin `json:"switches"`
}

type SwitchPayment struct {
	ID             string     `json:"id"`
	SwitchID       string     `json:"switch_id"`
	Pin            int        `json:"pin"`
	AmountMsat     uint64     `json:"amount_msat"`
	PaymentHash    string     `json:"payment_hash"`
	Comment        *string    `json:"comment"`
	IsAssetPayment bool       `json:"is_asset_payment"`
	AssetID        *string    `json:"asset_id"`
	AssetAmount    *uint64    `json:"asset_amount"`
	QuotedRate     *float64   `json:"quoted_rate"`
	QuotedAt       *time.Time `json:"quoted_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type WalletInfoResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	BalanceMsat int64  `json:"balance_msat"`
}

type Transaction struct {
	PaymentHash    string     `json:"payment_hash"`
	PaymentRequest string     `json:"payment_request"`
	AmountMsat     uint64     `json:"amount_msat"`
	State          string     `json:"state"`
	Description    string     `json:"description"`
	CreatedAt      time.Time  `json:"created_at"`
	ExpiresAt      *time.Time `json:"expires_at"`
	SettledAt      *time.Time `json:"settled_at"`
}

// LnurlParamsRequest carries the query of the first LNURL step. Amount,
// Duration, Variable and Comment are optional; when present they must match
// the pin configuration.
type LnurlParamsRequest struct {
	Pin      string
	Amount   string
	Duration string
	Variable string
	Comment  string
}

type LnurlCallbackRequest struct {
	Amount  string
	Comment string
	AssetID string
}

type LnurlPayResponse struct {
	Tag            string `json:"tag"`
	Callback       string `json:"callback"`
	MinSendable    uint64 `json:"minSendable"`
	MaxSendable    uint64 `json:"maxSendable"`
	Metadata       string `json:"metadata"`
	CommentAllowed int    `json:"commentAllowed,omitempty"`
}

type SuccessAction struct {
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

type LnurlCallbackResponse struct {
	Pr            string         `json:"pr"`
	Routes        []interface{}  `json:"routes"`
	SuccessAction *SuccessAction `json:"successAction"`
}
