// Package voucher issues the signed authorization a claimer embeds in the
// on-chain claim call. The digest layout is a frozen contract with the
// on-chain verifier: any drift in field order, width or encoding silently
// kills every claim.
package voucher

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/onepulse/onepulse-claims/src/ClaimsApi/claimerr"
)

// NonceReader reads the contract-owned claim nonce for an account.
type NonceReader interface {
	Nonce(ctx context.Context, account common.Address) (*big.Int, error)
}

// Voucher is the issuance output. Single-use by construction: the contract
// consumes the nonce on execution. Never persisted here.
type Voucher struct {
	Signature hexutil.Bytes `json:"signature"`
	Nonce     uint64        `json:"nonce"`
	ChainID   int64         `json:"chainId"`
}

// Issuer signs claim digests with a server-held key used for nothing else.
type Issuer struct {
	key *ecdsa.PrivateKey
}

// NewIssuer loads the signing key. Callers treat an error as fatal at
// process start; a running instance without a key is useless.
func NewIssuer(keyHex string) (*Issuer, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(keyHex), "0x")
	if trimmed == "" {
		return nil, fmt.Errorf("claim signer key not configured")
	}
	key, err := ethcrypto.HexToECDSA(trimmed)
	if err != nil {
		return nil, fmt.Errorf("load claim signer key: %w", err)
	}
	return &Issuer{key: key}, nil
}

// SignerAddress is the address the contract trusts signatures from.
func (i *Issuer) SignerAddress() common.Address {
	return ethcrypto.PubkeyToAddress(i.key.PublicKey)
}

// Digest computes the packed claim digest:
// keccak256(claimer ‖ uint256(socialId) ‖ uint256(nonce) ‖ uint256(deadline) ‖ contract)
// with addresses as 20 raw bytes and integers as 32-byte big-endian words,
// then wraps it in the EIP-191 signed-message prefix the contract recovers
// against.
func Digest(claimer common.Address, socialID uint64, nonce *big.Int, deadline int64, contract common.Address) []byte {
	packed := make([]byte, 0, 20+32+32+32+20)
	packed = append(packed, claimer.Bytes()...)
	packed = append(packed, common.LeftPadBytes(new(big.Int).SetUint64(socialID).Bytes(), 32)...)
	packed = append(packed, common.LeftPadBytes(nonce.Bytes(), 32)...)
	packed = append(packed, common.LeftPadBytes(new(big.Int).SetInt64(deadline).Bytes(), 32)...)
	packed = append(packed, contract.Bytes()...)

	inner := ethcrypto.Keccak256(packed)
	return ethcrypto.Keccak256([]byte("\x19Ethereum Signed Message:\n32"), inner)
}

// Issue fetches the claimer's current on-chain nonce and signs the claim
// tuple. The nonce is read at call time, every time: two rapid calls for the
// same claimer both get the then-current nonce and the contract arbitrates
// which voucher is consumed. A nonce read failure is retryable and never
// signed around.
func (i *Issuer) Issue(ctx context.Context, nonces NonceReader, claimer common.Address, socialID uint64, deadline int64, contract common.Address, chainID int64) (Voucher, error) {
	if deadline <= time.Now().Unix() {
		return Voucher{}, claimerr.New(claimerr.Validation, "deadline must be in the future")
	}

	nonce, err := nonces.Nonce(ctx, claimer)
	if err != nil {
		return Voucher{}, claimerr.Wrap(claimerr.Upstream, "nonce unavailable", err)
	}

	digest := Digest(claimer, socialID, nonce, deadline, contract)
	sig, err := ethcrypto.Sign(digest, i.key)
	if err != nil {
		return Voucher{}, claimerr.Wrap(claimerr.Upstream, "signing failed", err)
	}
	// ecrecover in the contract expects the legacy 27/28 recovery id.
	sig[64] += 27

	return Voucher{Signature: sig, Nonce: nonce.Uint64(), ChainID: chainID}, nil
}

// RecoverSigner returns the address that produced sig over the given claim
// tuple. Used in tests and key-rotation checks.
func RecoverSigner(claimer common.Address, socialID uint64, nonce *big.Int, deadline int64, contract common.Address, sig []byte) (common.Address, error) {
	if len(sig) != 65 {
		return common.Address{}, fmt.Errorf("signature must be 65 bytes, got %d", len(sig))
	}
	adjusted := make([]byte, 65)
	copy(adjusted, sig)
	if adjusted[64] >= 27 {
		adjusted[64] -= 27
	}
	pub, err := ethcrypto.SigToPub(Digest(claimer, socialID, nonce, deadline, contract), adjusted)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover pubkey: %w", err)
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}
