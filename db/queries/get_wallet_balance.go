package queries

import (
	"gorm.io/gorm"

	"github.com/flokiorg/bitcoinswitch/constants"
)

// GetWalletBalance sums the settled incoming transactions of a wallet, in msat.
func GetWalletBalance(tx *gorm.DB, walletID string) int64 {
	var received struct {
		Sum int64
	}
	tx.
		Table("transactions").
		Select("SUM(amount_msat) as sum").
		Where("wallet_id = ? AND type = ? AND state = ?", walletID, constants.TRANSACTION_TYPE_INCOMING, constants.TRANSACTION_STATE_SETTLED).
		Scan(&received)

	return received.Sum
}
