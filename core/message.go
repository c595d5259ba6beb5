package core

import (
	"strings"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// NormalizeMessage returns the canonical form of a signed-message payload.
// Wallets commonly hex-encode the personal_sign payload; a 0x-prefixed input
// is decoded as hex-encoded UTF-8 so verification operates on the bytes the
// wallet actually signed. If decoding fails for any reason the raw input is
// used verbatim. Never errors.
func NormalizeMessage(raw string) string {
	if !strings.HasPrefix(raw, "0x") {
		return raw
	}
	decoded, err := hexutil.Decode(raw)
	if err != nil || !utf8.Valid(decoded) {
		return raw
	}
	return string(decoded)
}

// Message is the parsed view of the conventional comma-separated login
// payload: title, timestamp, nonce, network. The network identifier is always
// the last field. Nonce and timestamp are surfaced for applications that
// layer replay checks on top; the default policy does not verify them.
type Message struct {
	Title     string
	Timestamp string
	Nonce     string
	Network   string
}

// ParseMessage splits a canonical message into its conventional fields.
// It reports false when the message has fewer than four fields.
func ParseMessage(canonical string) (Message, bool) {
	fields := strings.Split(canonical, ",")
	if len(fields) < 4 {
		return Message{}, false
	}
	return Message{
		Title:     strings.TrimSpace(fields[0]),
		Timestamp: strings.TrimSpace(fields[1]),
		Nonce:     strings.TrimSpace(fields[2]),
		Network:   strings.TrimSpace(fields[len(fields)-1]),
	}, true
}

// Policy is the message acceptance policy: an allow-list of network
// identifiers a deployment accepts signed messages for.
type Policy struct {
	AllowedNetworks []string
}

// Accept reports whether a canonical message passes the network allow-list.
// An empty allow-list accepts any message. Otherwise the message must parse
// into at least four comma-separated fields and its last field must name one
// of the allowed networks, compared case-insensitively.
func (p Policy) Accept(canonical string) bool {
	if len(p.AllowedNetworks) == 0 {
		return true
	}
	msg, ok := ParseMessage(canonical)
	if !ok {
		return false
	}
	for _, allowed := range p.AllowedNetworks {
		if strings.EqualFold(strings.TrimSpace(allowed), msg.Network) {
			return true
		}
	}
	return false
}
