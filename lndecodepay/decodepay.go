package decodepay

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/lightningnetwork/lnd/zpay32"
)

// Decodepay decodes a BOLT11 invoice of any bitcoin network. The network is
// taken from the human readable prefix.
func Decodepay(bolt11 string) (Bolt11, error) {
	bolt11 = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(bolt11)), "lightning:")
	if len(bolt11) < 2 {
		return Bolt11{}, errors.New("bolt11 too short")
	}

	firstNumber := strings.IndexAny(bolt11, "1234567890")
	if firstNumber < 2 {
		return Bolt11{}, errors.New("invalid bolt11 invoice")
	}

	chainPrefix := bolt11[2:firstNumber]
	chain := &chaincfg.Params{
		Bech32HRPSegwit: chainPrefix,
	}

	inv, err := zpay32.Decode(bolt11, chain)
	if err != nil {
		return Bolt11{}, fmt.Errorf("zpay32 decoding failed: %w", err)
	}

	var msat int64
	if inv.MilliSat != nil {
		msat = int64(*inv.MilliSat)
	}

	var desc string
	if inv.Description != nil {
		desc = *inv.Description
	}

	var deschash string
	if inv.DescriptionHash != nil {
		dh := *inv.DescriptionHash
		deschash = hex.EncodeToString(dh[:])
	}

	var paymentHash string
	if inv.PaymentHash != nil {
		paymentHash = hex.EncodeToString(inv.PaymentHash[:])
	}

	var payee string
	if inv.Destination != nil {
		payee = hex.EncodeToString(inv.Destination.SerializeCompressed())
	}

	return Bolt11{
		MSat:            msat,
		PaymentHash:     paymentHash,
		Description:     desc,
		DescriptionHash: deschash,
		Payee:           payee,
		CreatedAt:       int(inv.Timestamp.Unix()),
		Expiry:          int(inv.Expiry() / time.Second),
		Currency:        inv.Net.Bech32HRPSegwit,
	}, nil
}

type Bolt11 struct {
	Currency        string `json:"currency"`
	CreatedAt       int    `json:"created_at"`
	Expiry          int    `json:"expiry"`
	Payee           string `json:"payee"`
	MSat            int64  `json:"msatoshi"`
	Description     string `json:"description,omitempty"`
	DescriptionHash string `json:"description_hash,omitempty"`
	PaymentHash     string `json:"payment_hash"`
}
