package utils

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// filters values from a slice
func Filter[T any](s []T, f func(T) bool) []T {
	var r []T
	for _, v := range s {
		if f(v) {
			r = append(r, v)
		}
	}
	return r
}

// NewShortID returns a random 22 character url-safe identifier.
func NewShortID() string {
	id := uuid.New()
	return base64.RawURLEncoding.EncodeToString(id[:])
}

// NewApiKey returns a random 32 character hex key.
func NewApiKey() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// ParseHostPort parses a host string which may or may not contain a port.
// If the port is missing, it returns the host and 0 as port.
func ParseHostPort(input string) (host string, port uint16, err error) {
	if input == "" {
		return "", 0, fmt.Errorf("host cannot be empty")
	}

	h, pStr, err := net.SplitHostPort(input)
	if err != nil {
		if strings.Contains(err.Error(), "missing port") {
			return input, 0, nil
		}
		return "", 0, err
	}

	p, err := strconv.Atoi(pStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port: %w", err)
	}

	if p < 0 || p > 65535 {
		return "", 0, fmt.Errorf("invalid port number: %d", p)
	}

	return h, uint16(p), nil
}
