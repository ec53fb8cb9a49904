package switches

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/flokiorg/bitcoinswitch/constants"
	"github.com/flokiorg/bitcoinswitch/rates"
)

// PriceMsat converts a pin amount in the switch currency to millisatoshis.
func PriceMsat(ctx context.Context, fiatService rates.FiatService, currency string, amount float64) (uint64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("invalid amount %v", amount)
	}
	if currency == "" || strings.EqualFold(currency, constants.SAT_CURRENCY) {
		return uint64(math.Round(amount * 1000)), nil
	}
	sats, err := fiatService.FiatAmountToSats(ctx, amount, currency)
	if err != nil {
		return 0, fmt.Errorf("failed to convert %v %s to sats: %w", amount, currency, err)
	}
	return sats * 1000, nil
}
