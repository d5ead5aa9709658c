package evm

import (
	"context"
	"errors"
	"log"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/jpillora/backoff"
)

// Client is the subset of the Ethereum RPC this service uses.
type Client interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error)
	TransactionByHash(ctx context.Context, txHash common.Hash) (*gethtypes.Transaction, bool, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

const callTimeout = 10 * time.Second

// dialFirst tries each RPC URL in order and returns the first client whose
// reported chain id matches the expected one.
func dialFirst(ctx context.Context, name string, chainID int64, urls []string) (Client, error) {
	var lastErr error
	for _, url := range urls {
		client, err := ethclient.DialContext(ctx, url)
		if err != nil {
			log.Printf("Failed to connect to %s RPC %s: %v", name, url, err)
			lastErr = err
			continue
		}

		checkCtx, cancel := context.WithTimeout(ctx, callTimeout)
		got, err := client.ChainID(checkCtx)
		cancel()
		if err != nil {
			log.Printf("Chain id check failed for %s RPC %s: %v", name, url, err)
			client.Close()
			lastErr = err
			continue
		}
		if got.Int64() != chainID {
			log.Printf("RPC %s reports chain %d, want %d for %s", url, got.Int64(), chainID, name)
			client.Close()
			lastErr = errors.New("rpc chain id mismatch")
			continue
		}

		log.Printf("Connected to %s via %s", name, url)
		return client, nil
	}
	if lastErr == nil {
		lastErr = errors.New("no rpc urls configured")
	}
	return nil, lastErr
}

// Do runs fn against the chain's client under the chain's retry policy.
func (c *Chain) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return withRetry(ctx, c.Retry, fn)
}

// withRetry runs fn under the chain's retry policy with exponential backoff
// and a bounded per-attempt timeout. ethereum.NotFound is never retried here:
// a missing receipt means the transaction is still pending and the caller is
// the one who should come back later.
func withRetry(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) error) error {
	b := &backoff.Backoff{
		Min:    policy.BaseDelay,
		Max:    10 * time.Second,
		Factor: 2,
		Jitter: true,
	}

	attempts := policy.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		attemptCtx, cancel := context.WithTimeout(ctx, callTimeout)
		err = fn(attemptCtx)
		cancel()
		if err == nil || errors.Is(err, ethereum.NotFound) {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
		if i < attempts-1 {
			select {
			case <-time.After(b.Duration()):
			case <-ctx.Done():
				return err
			}
		}
	}
	return err
}
