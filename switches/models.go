package switches

import (
	"errors"
	"fmt"

	"github.com/flokiorg/bitcoinswitch/db"
)

type Switch = db.Switch
type SwitchPayment = db.SwitchPayment
type PinConfig = db.PinConfig

type CreateSwitchRequest struct {
	Title      string
	Wallet     string
	Currency   string
	Switches   []PinConfig
	Password   *string
	Disabled   bool
	Disposable *bool
	Npub       *string
}

type CreatePaymentRequest struct {
	SwitchID       string
	Pin            int
	AmountMsat     uint64
	PaymentHash    string
	Payload        string
	Comment        *string
	IsAssetPayment bool
	AssetID        *string
	AssetAmount    *uint64
	QuotedRate     *float64
}

type NotFoundError struct {
	Entity string
	ID     string
}

func (err *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", err.Entity, err.ID)
}

func IsNotFound(err error) bool {
	var notFound *NotFoundError
	return errors.As(err, &notFound)
}

// FindPin returns the first pin config with the given pin number.
func FindPin(sw *Switch, pin int) (*PinConfig, bool) {
	for i := range sw.Switches {
		if sw.Switches[i].Pin == pin {
			return &sw.Switches[i], true
		}
	}
	return nil, false
}
