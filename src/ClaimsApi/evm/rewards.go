package evm

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// The DailyRewards contract surface this service touches. The claim
// entrypoint itself is only ever called by clients; we need its selector to
// recognize settlement transactions.
const rewardsABIJSON = `[
  {"type":"function","name":"canClaimToday","stateMutability":"view",
   "inputs":[{"name":"claimer","type":"address"},{"name":"socialId","type":"uint256"}],
   "outputs":[
     {"name":"ok","type":"bool"},
     {"name":"socialIdBlacklisted","type":"bool"},
     {"name":"socialIdClaimedToday","type":"bool"},
     {"name":"claimerClaimedToday","type":"bool"},
     {"name":"hasPerformedActionToday","type":"bool"},
     {"name":"reward","type":"uint256"},
     {"name":"vaultBalance","type":"uint256"},
     {"name":"minReserve","type":"uint256"}]},
  {"type":"function","name":"userInfo","stateMutability":"view",
   "inputs":[{"name":"account","type":"address"}],
   "outputs":[{"name":"lastClaimDay","type":"uint256"},{"name":"nonce","type":"uint256"}]},
  {"type":"function","name":"getVaultStatus","stateMutability":"view",
   "inputs":[],
   "outputs":[{"name":"balance","type":"uint256"},{"name":"minReserve","type":"uint256"},{"name":"available","type":"uint256"}]},
  {"type":"function","name":"claim","stateMutability":"nonpayable",
   "inputs":[
     {"name":"recipient","type":"address"},
     {"name":"socialId","type":"uint256"},
     {"name":"nonce","type":"uint256"},
     {"name":"deadline","type":"uint256"},
     {"name":"signature","type":"bytes"}],
   "outputs":[]}
]`

var rewardsABI = mustParseABI(rewardsABIJSON)

// ClaimSelector is the 4-byte selector of claim(address,uint256,uint256,uint256,bytes).
var ClaimSelector = rewardsABI.Methods["claim"].ID

func mustParseABI(src string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(src))
	if err != nil {
		panic(fmt.Sprintf("rewards abi: %v", err))
	}
	return parsed
}

// ClaimStatus is the contract's own eligibility view for one claimer.
type ClaimStatus struct {
	OK                      bool
	SocialIDBlacklisted     bool
	SocialIDClaimedToday    bool
	ClaimerClaimedToday     bool
	HasPerformedActionToday bool
	Reward                  *big.Int
	VaultBalance            *big.Int
	MinReserve              *big.Int
}

// Rewards reads the DailyRewards contract on one chain, applying that
// chain's retry policy to every call.
type Rewards struct {
	chain *Chain
}

func NewRewards(chain *Chain) *Rewards {
	return &Rewards{chain: chain}
}

func (r *Rewards) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	input, err := rewardsABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	var output []byte
	err = withRetry(ctx, r.chain.Retry, func(ctx context.Context) error {
		var callErr error
		output, callErr = r.chain.Client.CallContract(ctx, ethereum.CallMsg{
			To:   &r.chain.Contract,
			Data: input,
		}, nil)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("call %s on chain %d: %w", method, r.chain.ID, err)
	}

	values, err := rewardsABI.Unpack(method, output)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

// Status reads canClaimToday for the claimer/socialId pair.
func (r *Rewards) Status(ctx context.Context, claimer common.Address, socialID uint64) (ClaimStatus, error) {
	values, err := r.call(ctx, "canClaimToday", claimer, new(big.Int).SetUint64(socialID))
	if err != nil {
		return ClaimStatus{}, err
	}
	if len(values) != 8 {
		return ClaimStatus{}, fmt.Errorf("canClaimToday: unexpected output arity %d", len(values))
	}
	return ClaimStatus{
		OK:                      values[0].(bool),
		SocialIDBlacklisted:     values[1].(bool),
		SocialIDClaimedToday:    values[2].(bool),
		ClaimerClaimedToday:     values[3].(bool),
		HasPerformedActionToday: values[4].(bool),
		Reward:                  values[5].(*big.Int),
		VaultBalance:            values[6].(*big.Int),
		MinReserve:              values[7].(*big.Int),
	}, nil
}

// Nonce reads the contract-owned claim nonce for an account. The value is
// fetched live on every call: the contract advances it when a voucher is
// consumed, and a cached nonce would silently produce dead vouchers.
func (r *Rewards) Nonce(ctx context.Context, account common.Address) (*big.Int, error) {
	values, err := r.call(ctx, "userInfo", account)
	if err != nil {
		return nil, err
	}
	if len(values) != 2 {
		return nil, fmt.Errorf("userInfo: unexpected output arity %d", len(values))
	}
	return values[1].(*big.Int), nil
}

// VaultStatus reads the reward vault balance and floor.
func (r *Rewards) VaultStatus(ctx context.Context) (balance, minReserve, available *big.Int, err error) {
	values, err := r.call(ctx, "getVaultStatus")
	if err != nil {
		return nil, nil, nil, err
	}
	if len(values) != 3 {
		return nil, nil, nil, fmt.Errorf("getVaultStatus: unexpected output arity %d", len(values))
	}
	return values[0].(*big.Int), values[1].(*big.Int), values[2].(*big.Int), nil
}
