package core

import (
	"strings"
	"time"
)

// Identity is the authenticated principal bound to a wallet address.
type Identity struct {
	Address   string    // lower-case hex, no 0x prefix; unique and immutable
	Nonce     string    // single-use token, never blank once persisted
	Email     string    // placeholder contact, populated by provisioning defaults
	Secret    string    // placeholder credential, populated by provisioning defaults
	CreatedAt time.Time
}

// NormalizeAddress lower-cases a wallet address and strips the 0x prefix so
// that addresses differing only in case or prefix compare equal.
func NormalizeAddress(address string) string {
	address = strings.ToLower(strings.TrimSpace(address))
	return strings.TrimPrefix(address, "0x")
}
