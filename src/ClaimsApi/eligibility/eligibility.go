package eligibility

import (
	"context"
	"log"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/onepulse/onepulse-claims/src/ClaimsApi/claimerr"
	"github.com/onepulse/onepulse-claims/src/ClaimsApi/data"
	"github.com/onepulse/onepulse-claims/src/ClaimsApi/evm"
)

// Snapshot is one fresh evaluation of externally-sourced facts. It is never
// cached beyond the request that produced it.
type Snapshot struct {
	Blacklisted             bool     `json:"blacklisted"`
	AlreadyClaimedToday     bool     `json:"alreadyClaimedToday"`
	HasPerformedActionToday bool     `json:"hasPerformedActionToday"`
	VaultBalance            *big.Int `json:"vaultBalance"`
	MinReserve              *big.Int `json:"minReserve"`
	RewardAmount            *big.Int `json:"rewardAmount"`
	GlobalClaimsToday       int64    `json:"globalClaimsToday"`
	GlobalDailyLimit        int64    `json:"globalDailyLimit"`

	// Anti-bot inputs. ReputationKnown is false when the provider was
	// unreachable or unconfigured; evaluation then falls back to the
	// streak path instead of failing.
	ReputationScore float64 `json:"reputationScore"`
	ReputationKnown bool    `json:"-"`
	CurrentStreak   int     `json:"currentStreak"`
}

// Rules are the operator-tunable knobs of the anti-bot heuristic.
type Rules struct {
	ReputationThreshold float64
	MinStreakDays       int
}

// Decide computes claim eligibility from a snapshot. Pure: no I/O, no side
// effects, safe under arbitrary concurrency.
func Decide(s Snapshot, r Rules) bool {
	if s.Blacklisted || s.AlreadyClaimedToday || !s.HasPerformedActionToday {
		return false
	}
	if s.VaultBalance == nil || s.MinReserve == nil || s.VaultBalance.Cmp(s.MinReserve) <= 0 {
		return false
	}
	if s.GlobalClaimsToday >= s.GlobalDailyLimit {
		return false
	}
	// Low-reputation identities qualify only through a consecutive-day
	// streak; established identities skip the streak check.
	if s.ReputationKnown && s.ReputationScore >= r.ReputationThreshold {
		return true
	}
	return s.CurrentStreak >= r.MinStreakDays
}

// ValidateRequest checks the raw claim coordinates before any chain or
// store access happens.
func ValidateRequest(claimer string, socialID uint64, chainID int64) error {
	if !common.IsHexAddress(claimer) {
		return claimerr.New(claimerr.Validation, "invalid claimer address")
	}
	if socialID == 0 {
		return claimerr.New(claimerr.Validation, "socialId must be a positive integer")
	}
	if chainID <= 0 {
		return claimerr.New(claimerr.Validation, "chainId must be a positive integer")
	}
	return nil
}

// ScoreReader is the reputation provider surface used here.
type ScoreReader interface {
	Score(ctx context.Context, socialID uint64) (float64, error)
}

// ActionReader is the read-only social-action lookup.
type ActionReader interface {
	ActionToday(address string, chainID int64, now time.Time) (bool, error)
	Streak(address string, chainID int64) (int, error)
}

// Evaluator assembles snapshots from the chain, the counters and the social
// store. Stateless: everything shared lives behind the injected handles.
type Evaluator struct {
	Registry *evm.Registry
	Counters data.Store
	Social   ActionReader
	Scores   ScoreReader // may be nil
	Rules    Rules
	Limit    int64
}

// Evaluate builds a fresh snapshot for (claimer, socialId, chainId).
func (e *Evaluator) Evaluate(ctx context.Context, claimer string, socialID uint64, chainID int64) (Snapshot, error) {
	if err := ValidateRequest(claimer, socialID, chainID); err != nil {
		return Snapshot{}, err
	}
	chain, err := e.Registry.Chain(chainID)
	if err != nil {
		return Snapshot{}, claimerr.Wrap(claimerr.Validation, "unsupported chain", err)
	}
	if data.ChainPaused(chainID) {
		return Snapshot{}, claimerr.New(claimerr.NotEligible, "claims paused on this chain")
	}

	now := time.Now()
	addr := common.HexToAddress(claimer)

	status, err := evm.NewRewards(chain).Status(ctx, addr, socialID)
	if err != nil {
		return Snapshot{}, claimerr.Wrap(claimerr.Upstream, "chain read failed", err)
	}

	globalCount, err := data.DailyClaimsCount(ctx, e.Counters, chainID, now)
	if err != nil {
		return Snapshot{}, claimerr.Wrap(claimerr.Upstream, "counter read failed", err)
	}

	actionToday, err := e.Social.ActionToday(claimer, chainID, now)
	if err != nil {
		return Snapshot{}, claimerr.Wrap(claimerr.Upstream, "social store read failed", err)
	}
	streak, err := e.Social.Streak(claimer, chainID)
	if err != nil {
		return Snapshot{}, claimerr.Wrap(claimerr.Upstream, "social store read failed", err)
	}

	snap := Snapshot{
		Blacklisted:             status.SocialIDBlacklisted,
		AlreadyClaimedToday:     status.SocialIDClaimedToday || status.ClaimerClaimedToday,
		HasPerformedActionToday: actionToday || status.HasPerformedActionToday,
		VaultBalance:            status.VaultBalance,
		MinReserve:              status.MinReserve,
		RewardAmount:            status.Reward,
		GlobalClaimsToday:       globalCount,
		GlobalDailyLimit:        e.Limit,
		CurrentStreak:           streak,
	}

	if e.Scores != nil {
		score, err := e.Scores.Score(ctx, socialID)
		if err != nil {
			// Degrade to the streak path rather than failing the whole
			// evaluation on a provider hiccup.
			log.Printf("reputation lookup failed for social id %d: %v", socialID, err)
		} else {
			snap.ReputationScore = score
			snap.ReputationKnown = true
		}
	}

	return snap, nil
}
