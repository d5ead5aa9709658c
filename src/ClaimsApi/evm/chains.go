package evm

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/onepulse/onepulse-claims/src/ClaimsApi/types"
	"gorm.io/gorm"
)

// RetryPolicy bounds chain reads. Networks with slower block propagation get
// more attempts and a longer base delay via their networks row, not via
// hardcoded special cases.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
}

// Chain is one supported network with a live RPC client and the rewards
// contract deployed on it.
type Chain struct {
	ID       int64
	Name     string
	Contract common.Address
	Symbol   string
	Retry    RetryPolicy
	Client   Client
}

// Registry is the exhaustive chain-id lookup. An id it does not know is an
// error, never a fallback to some default network: a voucher scoped to the
// wrong chain must be impossible to issue.
type Registry struct {
	chains map[int64]*Chain
}

func NewRegistry(chains ...*Chain) *Registry {
	r := &Registry{chains: make(map[int64]*Chain, len(chains))}
	for _, c := range chains {
		r.chains[c.ID] = c
	}
	return r
}

// Chain resolves a chain id or fails with a typed error.
func (r *Registry) Chain(id int64) (*Chain, error) {
	c, ok := r.chains[id]
	if !ok {
		return nil, fmt.Errorf("unsupported chain id %d", id)
	}
	return c, nil
}

// IDs lists the registered chain ids.
func (r *Registry) IDs() []int64 {
	ids := make([]int64, 0, len(r.chains))
	for id := range r.chains {
		ids = append(ids, id)
	}
	return ids
}

// LoadRegistry builds the registry from the networks table, dialing each
// active network through its configured RPC endpoints.
func LoadRegistry(ctx context.Context, db *gorm.DB) (*Registry, error) {
	var networks []types.Network
	if err := db.Where("active = ?", true).Find(&networks).Error; err != nil {
		return nil, fmt.Errorf("load networks: %w", err)
	}
	if len(networks) == 0 {
		return nil, fmt.Errorf("no active networks configured")
	}

	chains := make([]*Chain, 0, len(networks))
	for _, net := range networks {
		if !common.IsHexAddress(net.ContractAddress) {
			return nil, fmt.Errorf("network %s: bad contract address %q", net.Name, net.ContractAddress)
		}

		var rpcs []types.NetworkRPC
		if err := db.Where("network_id = ? AND active = ?", net.ID, true).Find(&rpcs).Error; err != nil {
			return nil, fmt.Errorf("load rpcs for %s: %w", net.Name, err)
		}
		urls := make([]string, 0, len(rpcs))
		for _, rpc := range rpcs {
			urls = append(urls, rpc.URL)
		}

		client, err := dialFirst(ctx, net.Name, net.ChainID, urls)
		if err != nil {
			return nil, fmt.Errorf("connect %s: %w", net.Name, err)
		}

		chains = append(chains, &Chain{
			ID:       net.ChainID,
			Name:     net.Name,
			Contract: common.HexToAddress(net.ContractAddress),
			Symbol:   net.RewardSymbol,
			Retry: RetryPolicy{
				Attempts:  net.RetryAttempts,
				BaseDelay: time.Duration(net.RetryBaseMS) * time.Millisecond,
			},
			Client: client,
		})
	}

	return NewRegistry(chains...), nil
}
