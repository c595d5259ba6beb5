package service

// Config carries the deployment policy for wallet authentication. It is
// constructed once at startup and passed explicitly; there is no package
// level state.
type Config struct {
	// AllowedNetworks is the ordered set of network identifiers accepted in
	// signed messages. Empty means any network is accepted. Membership is
	// checked case-insensitively.
	AllowedNetworks []string

	// Request parameter names under which the three credential fields are
	// expected at the transport boundary.
	AddressParam   string
	MessageParam   string
	SignatureParam string

	// Identity-record column names used by the SQL store.
	AddressAttribute string
	NonceAttribute   string
}

// DefaultConfig returns the conventional parameter and attribute names with
// an empty allow-list.
func DefaultConfig() Config {
	return Config{
		AddressParam:     "metamask_address",
		MessageParam:     "metamask_message",
		SignatureParam:   "metamask_signature",
		AddressAttribute: "eth_address",
		NonceAttribute:   "metamask_nonce",
	}
}
