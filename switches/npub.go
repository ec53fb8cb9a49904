package switches

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/nbd-wtf/go-nostr/nip19"
)

// PublicKeyHex normalizes a nostr public key given as npub or 64 char hex.
func PublicKeyHex(publicKey string) (string, error) {
	publicKey = strings.TrimSpace(publicKey)
	if strings.HasPrefix(publicKey, "npub") {
		prefix, value, err := nip19.Decode(publicKey)
		if err != nil {
			return "", fmt.Errorf("invalid npub %s: %w", publicKey, err)
		}
		if prefix != "npub" {
			return "", fmt.Errorf("invalid npub %s: unexpected prefix %s", publicKey, prefix)
		}
		key, ok := value.(string)
		if !ok {
			return "", fmt.Errorf("invalid npub %s", publicKey)
		}
		return key, nil
	}

	decoded, err := hex.DecodeString(publicKey)
	if err != nil || len(decoded) != 32 {
		return "", fmt.Errorf("invalid public key %s", publicKey)
	}
	return strings.ToLower(publicKey), nil
}
