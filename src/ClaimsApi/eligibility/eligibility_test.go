package eligibility

import (
	"context"
	"math/big"
	"testing"

	"github.com/onepulse/onepulse-claims/src/ClaimsApi/claimerr"
	"github.com/onepulse/onepulse-claims/src/ClaimsApi/evm"
)

func eligibleSnapshot() Snapshot {
	return Snapshot{
		AlreadyClaimedToday:     false,
		HasPerformedActionToday: true,
		VaultBalance:            big.NewInt(1000),
		MinReserve:              big.NewInt(100),
		RewardAmount:            big.NewInt(10),
		GlobalClaimsToday:       5,
		GlobalDailyLimit:        1000,
		ReputationScore:         0.9,
		ReputationKnown:         true,
		CurrentStreak:           0,
	}
}

func TestDecide(t *testing.T) {
	rules := Rules{ReputationThreshold: 0.6, MinStreakDays: 3}

	cases := []struct {
		name   string
		mutate func(*Snapshot)
		want   bool
	}{
		{"reputable identity qualifies", func(s *Snapshot) {}, true},
		{"blacklisted never qualifies", func(s *Snapshot) { s.Blacklisted = true }, false},
		{"already claimed today", func(s *Snapshot) { s.AlreadyClaimedToday = true }, false},
		{"no action performed today", func(s *Snapshot) { s.HasPerformedActionToday = false }, false},
		{"vault at reserve floor", func(s *Snapshot) { s.VaultBalance = big.NewInt(100) }, false},
		{"vault below reserve floor", func(s *Snapshot) { s.VaultBalance = big.NewInt(50) }, false},
		{"vault balance missing", func(s *Snapshot) { s.VaultBalance = nil }, false},
		{"global limit reached", func(s *Snapshot) { s.GlobalClaimsToday = 1000 }, false},
		{"low reputation no streak", func(s *Snapshot) { s.ReputationScore = 0.2 }, false},
		{"low reputation with streak", func(s *Snapshot) {
			s.ReputationScore = 0.2
			s.CurrentStreak = 3
		}, true},
		{"reputation at threshold", func(s *Snapshot) { s.ReputationScore = 0.6 }, true},
		{"unknown reputation falls back to streak", func(s *Snapshot) {
			s.ReputationKnown = false
			s.ReputationScore = 0.9
			s.CurrentStreak = 2
		}, false},
		{"unknown reputation streak qualifies", func(s *Snapshot) {
			s.ReputationKnown = false
			s.CurrentStreak = 4
		}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			snap := eligibleSnapshot()
			tc.mutate(&snap)
			if got := Decide(snap, rules); got != tc.want {
				t.Fatalf("Decide = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDecideIsPure(t *testing.T) {
	rules := Rules{ReputationThreshold: 0.6, MinStreakDays: 3}
	snap := eligibleSnapshot()
	before := *snap.VaultBalance

	for i := 0; i < 3; i++ {
		if !Decide(snap, rules) {
			t.Fatalf("repeated Decide call %d changed outcome", i)
		}
	}
	if snap.VaultBalance.Cmp(&before) != 0 {
		t.Fatalf("Decide mutated the snapshot")
	}
}

func TestValidateRequest(t *testing.T) {
	good := "0x1111111111111111111111111111111111111111"

	if err := ValidateRequest(good, 42, 8453); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}
	if err := ValidateRequest("nope", 42, 8453); claimerr.KindOf(err) != claimerr.Validation {
		t.Fatalf("bad address kind = %v, want Validation", claimerr.KindOf(err))
	}
	if err := ValidateRequest(good, 0, 8453); claimerr.KindOf(err) != claimerr.Validation {
		t.Fatalf("zero social id kind = %v, want Validation", claimerr.KindOf(err))
	}
	if err := ValidateRequest(good, 42, 0); claimerr.KindOf(err) != claimerr.Validation {
		t.Fatalf("zero chain id kind = %v, want Validation", claimerr.KindOf(err))
	}
}

func TestEvaluateRejectsBeforeAnyIO(t *testing.T) {
	e := &Evaluator{Registry: evm.NewRegistry(), Limit: 1000}

	_, err := e.Evaluate(context.Background(), "not-an-address", 42, 8453)
	if claimerr.KindOf(err) != claimerr.Validation {
		t.Fatalf("bad address kind = %v, want Validation", claimerr.KindOf(err))
	}

	_, err = e.Evaluate(context.Background(), "0x1111111111111111111111111111111111111111", 42, 8453)
	if claimerr.KindOf(err) != claimerr.Validation {
		t.Fatalf("unknown chain kind = %v, want Validation", claimerr.KindOf(err))
	}
}
