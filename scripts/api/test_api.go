// Minimal end‑to‑end integration test for the claims API.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

var (
	baseURL = getenv("API_URL", "http://localhost:8080/v1")
	claimer = getenv("CLAIMER", "0x70997970C51812dc3A010C7d01b50e0d17dc79C8") // dev account
	chainID = getenv("CHAIN_ID", "8453")
)

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func main() {
	checkStats()
	canClaim := checkEligibility()
	checkAuthorize(canClaim)
	checkConfirmPending()

	fmt.Println("✓ all endpoints passed")
}

func checkStats() {
	var resp struct {
		Count     int64 `json:"count"`
		Limit     int64 `json:"limit"`
		Remaining int64 `json:"remaining"`
	}
	doJSON("GET", "/claims/stats?chainId="+chainID, nil, &resp, http.StatusOK)
	if resp.Limit == 0 {
		log.Fatal("stats: zero daily limit")
	}
	log.Printf("stats: %d/%d claimed today", resp.Count, resp.Limit)
}

func checkEligibility() bool {
	var resp struct {
		CanClaim bool `json:"canClaim"`
		Snapshot struct {
			AlreadyClaimedToday     bool `json:"alreadyClaimedToday"`
			HasPerformedActionToday bool `json:"hasPerformedActionToday"`
		} `json:"snapshot"`
	}
	doJSON("GET", "/claims/eligibility?claimer="+claimer+"&socialId=1&chainId="+chainID,
		nil, &resp, http.StatusOK)
	log.Printf("eligibility: canClaim=%v alreadyClaimed=%v actionToday=%v",
		resp.CanClaim, resp.Snapshot.AlreadyClaimedToday, resp.Snapshot.HasPerformedActionToday)
	return resp.CanClaim
}

func checkAuthorize(eligible bool) {
	body := map[string]any{
		"claimer":  claimer,
		"socialId": 1,
		"deadline": nowPlus(300),
		"chainId":  atoi(chainID),
	}
	if !eligible {
		doJSON("POST", "/claims/authorize", body, nil, http.StatusForbidden)
		log.Printf("authorize: correctly refused for ineligible claimer")
		return
	}
	var resp struct {
		Signature string `json:"signature"`
		Nonce     uint64 `json:"nonce"`
	}
	doJSON("POST", "/claims/authorize", body, &resp, http.StatusOK)
	if resp.Signature == "" {
		log.Fatal("authorize: empty signature")
	}
	log.Printf("authorize: voucher issued, nonce %d", resp.Nonce)
}

// A well-formed hash that no chain has seen must come back retryable, not
// accepted and not treated as malformed.
func checkConfirmPending() {
	doJSON("POST", "/claims/confirm", map[string]any{
		"transactionHash": "0x" + strings.Repeat("ab", 32),
		"claimer":         claimer,
		"chainId":         atoi(chainID),
	}, nil, http.StatusNotFound)
	log.Printf("confirm: unknown hash correctly reported as not found")
}

// ----------------------------- helpers

func doJSON(method, path string, body, out any, want int) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			log.Fatalf("%s %s encode: %v", method, path, err)
		}
	}
	req, _ := http.NewRequest(method, baseURL+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()
	if res.StatusCode != want {
		log.Fatalf("%s %s: want %d got %d", method, path, want, res.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			log.Fatalf("%s %s decode: %v", method, path, err)
		}
	}
}

func nowPlus(secs int64) int64 {
	return time.Now().Unix() + secs
}

func atoi(s string) int64 {
	var n int64
	fmt.Sscanf(s, "%d", &n)
	return n
}
