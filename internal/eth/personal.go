// Package eth implements the personal_sign (EIP-191) signature scheme:
// prefixed Keccak-256 hashing, secp256k1 public-key recovery and address
// derivation.
package eth

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrSignatureLength is returned when a decoded signature is not 65 bytes.
var ErrSignatureLength = errors.New("signature must be 65 bytes (r||s||v)")

// PersonalSignHash returns the EIP-191 hash of a message:
// keccak256("\x19Ethereum Signed Message:\n" + len(msg) + msg).
func PersonalSignHash(message []byte) []byte {
	prefix := fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(message))
	return crypto.Keccak256([]byte(prefix), message)
}

// DecodeSignature decodes a 0x-prefixed hex signature into 65 raw bytes.
func DecodeSignature(signature string) ([]byte, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return nil, fmt.Errorf("decode signature: %w", err)
	}
	if len(sig) != 65 {
		return nil, ErrSignatureLength
	}
	return sig, nil
}

// NormalizeSignature returns a copy of sig with the recovery id V converted
// to the 0/1 form expected by secp256k1 recovery. Wallets emit V as 27/28;
// both forms are accepted.
func NormalizeSignature(sig []byte) ([]byte, error) {
	if len(sig) != 65 {
		return nil, ErrSignatureLength
	}
	out := make([]byte, 65)
	copy(out, sig)
	switch v := out[64]; {
	case v == 27 || v == 28:
		out[64] = v - 27
	case v == 0 || v == 1:
	default:
		return nil, fmt.Errorf("unsupported recovery id: %d", v)
	}
	return out, nil
}

// RecoverAddress recovers the address that produced a personal_sign signature
// over message. The returned address is checksummed; callers normalize before
// comparison.
func RecoverAddress(message, sig []byte) (common.Address, error) {
	normalized, err := NormalizeSignature(sig)
	if err != nil {
		return common.Address{}, err
	}
	pub, err := crypto.SigToPub(PersonalSignHash(message), normalized)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// SignPersonal signs a message with the personal_sign scheme and returns a
// 65-byte r||s||v signature with V in the wallet convention (27/28).
func SignPersonal(message []byte, key *ecdsa.PrivateKey) ([]byte, error) {
	sig, err := crypto.Sign(PersonalSignHash(message), key)
	if err != nil {
		return nil, err
	}
	if sig[64] < 27 {
		sig[64] += 27
	}
	return sig, nil
}
