package utils

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

const lnurlHRP = "lnurl"

// EncodeLNURL bech32-encodes url as an uppercase LNURL string.
func EncodeLNURL(url string) (string, error) {
	converted, err := bech32.ConvertBits([]byte(url), 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("failed to convert url: %w", err)
	}
	encoded, err := bech32.Encode(lnurlHRP, converted)
	if err != nil {
		return "", fmt.Errorf("failed to encode lnurl: %w", err)
	}
	return strings.ToUpper(encoded), nil
}

// DecodeLNURL returns the url an LNURL string points to. LNURLs are longer than
// the 90 characters bech32 normally allows.
func DecodeLNURL(lnurl string) (string, error) {
	hrp, data, err := bech32.DecodeNoLimit(strings.ToLower(lnurl))
	if err != nil {
		return "", fmt.Errorf("failed to decode lnurl: %w", err)
	}
	if hrp != lnurlHRP {
		return "", fmt.Errorf("unexpected lnurl prefix %s", hrp)
	}
	converted, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", fmt.Errorf("failed to convert lnurl: %w", err)
	}
	return string(converted), nil
}
