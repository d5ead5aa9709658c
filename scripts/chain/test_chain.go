package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/onepulse/onepulse-claims/src/ClaimsApi/evm"
)

func main() {
	rpcURL := os.Getenv("RPC_URL")
	if rpcURL == "" {
		rpcURL = "https://mainnet.base.org"
	}
	contract := os.Getenv("CONTRACT_ADDRESS")
	if !common.IsHexAddress(contract) {
		log.Fatalf("CONTRACT_ADDRESS must be a hex address, got %q", contract)
	}
	claimer := common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8") // dev account

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer client.Close()

	chainID, err := client.ChainID(ctx)
	if err != nil {
		log.Fatalf("Error reading chain id: %v", err)
	}

	chain := &evm.Chain{
		ID:       chainID.Int64(),
		Name:     "smoke",
		Contract: common.HexToAddress(contract),
		Retry:    evm.RetryPolicy{Attempts: 3, BaseDelay: 500 * time.Millisecond},
		Client:   client,
	}
	rewards := evm.NewRewards(chain)

	balance, minReserve, available, err := rewards.VaultStatus(ctx)
	if err != nil {
		log.Fatalf("Error reading vault status: %v", err)
	}
	log.Printf("Vault on chain %d:", chain.ID)
	log.Printf("  Balance: %s", balance)
	log.Printf("  Min reserve: %s", minReserve)
	log.Printf("  Available: %s", available)

	status, err := rewards.Status(ctx, claimer, 1)
	if err != nil {
		log.Fatalf("Error reading claim status: %v", err)
	}
	log.Printf("Claim status for %s:", claimer.Hex())
	log.Printf("  OK: %v", status.OK)
	log.Printf("  Blacklisted: %v", status.SocialIDBlacklisted)
	log.Printf("  Claimed today: %v", status.SocialIDClaimedToday || status.ClaimerClaimedToday)
	log.Printf("  Action today: %v", status.HasPerformedActionToday)
	log.Printf("  Reward: %s", status.Reward)

	nonce, err := rewards.Nonce(ctx, claimer)
	if err != nil {
		log.Fatalf("Error reading nonce: %v", err)
	}
	log.Printf("  Nonce: %s", nonce)
}
