// Package settle verifies reported claim transactions against the chain and
// advances the shared daily counter. Client-asserted success is never
// trusted: every step below re-checks on-chain state.
package settle

import (
	"bytes"
	"context"
	"errors"
	"log"
	"regexp"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/onepulse/onepulse-claims/src/ClaimsApi/claimerr"
	"github.com/onepulse/onepulse-claims/src/ClaimsApi/data"
	"github.com/onepulse/onepulse-claims/src/ClaimsApi/evm"
)

var txHashPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// Result is the outcome of a verified confirmation.
type Result struct {
	Count            int64
	Allowed          bool
	AlreadyProcessed bool
}

// Confirmer runs the settlement checks for one reported transaction hash.
type Confirmer struct {
	Registry *evm.Registry
	Store    data.Store
	Limit    int64
}

// Confirm verifies the transaction and, on first acceptance, atomically
// increments the day's counter. Re-confirming an accepted hash returns the
// current count without a second increment.
//
// The checks bind destination and function selector but not the decoded call
// arguments, so a reported hash is not cryptographically tied to this
// specific claimer or voucher. The contract's per-identity claimed flag is
// the ledger of record; this counter is a rate-limit/analytics signal.
func (c *Confirmer) Confirm(ctx context.Context, txHash, claimer string, chainID int64) (Result, error) {
	if !txHashPattern.MatchString(txHash) {
		return Result{}, claimerr.New(claimerr.Validation, "invalid transaction hash")
	}
	if !common.IsHexAddress(claimer) {
		return Result{}, claimerr.New(claimerr.Validation, "invalid claimer address")
	}
	chain, err := c.Registry.Chain(chainID)
	if err != nil {
		return Result{}, claimerr.Wrap(claimerr.Validation, "unsupported chain", err)
	}

	hash := common.HexToHash(txHash)

	var receipt *gethtypes.Receipt
	err = chain.Do(ctx, func(ctx context.Context) error {
		var fetchErr error
		receipt, fetchErr = chain.Client.TransactionReceipt(ctx, hash)
		return fetchErr
	})
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return Result{}, claimerr.Wrap(claimerr.NotFound, "transaction not found on-chain", err)
		}
		return Result{}, claimerr.Wrap(claimerr.Upstream, "receipt fetch failed", err)
	}
	if receipt.Status != gethtypes.ReceiptStatusSuccessful {
		return Result{}, claimerr.New(claimerr.OnChainFailure, "transaction failed on-chain")
	}

	var tx *gethtypes.Transaction
	err = chain.Do(ctx, func(ctx context.Context) error {
		var fetchErr error
		tx, _, fetchErr = chain.Client.TransactionByHash(ctx, hash)
		return fetchErr
	})
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return Result{}, claimerr.Wrap(claimerr.NotFound, "transaction not found on-chain", err)
		}
		return Result{}, claimerr.Wrap(claimerr.Upstream, "transaction fetch failed", err)
	}

	// Address comparison happens on parsed values, so a hash aimed at the
	// right contract with different letter casing still matches, and a
	// decoy contract never does.
	if tx.To() == nil || *tx.To() != chain.Contract {
		log.Printf("confirm rejected: tx %s on chain %d targets %v, want %s (claimer %s)",
			txHash, chainID, tx.To(), chain.Contract.Hex(), claimer)
		return Result{}, claimerr.New(claimerr.VerificationMismatch, "transaction is not to the rewards contract")
	}
	if len(tx.Data()) < 4 || !bytes.HasPrefix(tx.Data(), evm.ClaimSelector) {
		log.Printf("confirm rejected: tx %s on chain %d did not call claim (claimer %s)",
			txHash, chainID, claimer)
		return Result{}, claimerr.New(claimerr.VerificationMismatch, "transaction did not call the claim function")
	}

	// The mark is keyed on the parsed hash, not the client's string: two
	// case-variants of one hash must hit the same key or the counter can
	// be inflated by replaying a single real claim.
	now := time.Now()
	first, err := data.MarkTransactionProcessed(ctx, c.Store, hash.Hex())
	if err != nil {
		return Result{}, claimerr.Wrap(claimerr.Upstream, "idempotency check failed", err)
	}
	if !first {
		count, err := data.DailyClaimsCount(ctx, c.Store, chainID, now)
		if err != nil {
			return Result{}, claimerr.Wrap(claimerr.Upstream, "counter read failed", err)
		}
		return Result{Count: count, Allowed: true, AlreadyProcessed: true}, nil
	}

	count, err := data.IncrementDailyClaims(ctx, c.Store, chainID, now)
	if err != nil {
		return Result{}, claimerr.Wrap(claimerr.Upstream, "counter increment failed", err)
	}

	log.Printf("confirmed claim tx %s on chain %d for %s, daily count %d", txHash, chainID, claimer, count)
	return Result{Count: count, Allowed: count <= c.Limit}, nil
}
