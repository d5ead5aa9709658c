package webserver

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/onepulse/onepulse-claims/src/ClaimsApi/claimerr"
	"github.com/onepulse/onepulse-claims/src/ClaimsApi/config"
	"github.com/onepulse/onepulse-claims/src/ClaimsApi/data"
	"github.com/onepulse/onepulse-claims/src/ClaimsApi/eligibility"
	"github.com/onepulse/onepulse-claims/src/ClaimsApi/evm"
	"github.com/onepulse/onepulse-claims/src/ClaimsApi/settle"
	"github.com/onepulse/onepulse-claims/src/ClaimsApi/voucher"
)

// Evaluator produces a fresh eligibility snapshot per request.
type Evaluator interface {
	Evaluate(ctx context.Context, claimer string, socialID uint64, chainID int64) (eligibility.Snapshot, error)
}

// Authorizer issues a signed claim voucher.
type Authorizer interface {
	Authorize(ctx context.Context, claimer common.Address, socialID uint64, deadline, chainID int64) (voucher.Voucher, error)
}

// Confirmer verifies a reported settlement transaction.
type Confirmer interface {
	Confirm(ctx context.Context, txHash, claimer string, chainID int64) (settle.Result, error)
}

// Deps are the seams the handlers depend on; production wiring lives in
// api.go, tests plug in fakes.
type Deps struct {
	Evaluator  Evaluator
	Authorizer Authorizer
	Confirmer  Confirmer
	Store      data.Store
}

type Claims struct {
	cfg  config.Config
	deps Deps
}

func NewClaims(cfg config.Config, deps Deps) Claims {
	return Claims{cfg: cfg, deps: deps}
}

// ChainAuthorizer is the production Authorizer: resolve the chain, read the
// live nonce through it, sign with the server key.
type ChainAuthorizer struct {
	Registry *evm.Registry
	Issuer   *voucher.Issuer
}

func (a ChainAuthorizer) Authorize(ctx context.Context, claimer common.Address, socialID uint64, deadline, chainID int64) (voucher.Voucher, error) {
	chain, err := a.Registry.Chain(chainID)
	if err != nil {
		return voucher.Voucher{}, claimerr.Wrap(claimerr.Validation, "unsupported chain", err)
	}
	return a.Issuer.Issue(ctx, evm.NewRewards(chain), claimer, socialID, deadline, chain.Contract, chain.ID)
}

func respondError(c *gin.Context, op string, err error) {
	kind := claimerr.KindOf(err)
	log.Printf("[%s] %s: %v", c.GetString("reqid"), op, err)
	c.JSON(claimerr.Status(kind), gin.H{"err": claimerr.Message(err)})
}

// claimerAllowed applies the per-claimer bucket for one endpoint scope;
// exceeding it answers 429 with no other side effects. Issuance and
// confirmation carry different limits, so they must not share a bucket.
func (h Claims) claimerAllowed(c *gin.Context, scope, claimer string, limit int) bool {
	window := time.Duration(h.cfg.ClaimerRateWindowSecs) * time.Second
	allowed, _, err := data.RateLimit(c, h.deps.Store, "claimer:"+scope+":"+claimer, limit, window)
	if err != nil {
		respondError(c, "claimer rate limit", claimerr.Wrap(claimerr.Upstream, "rate limiter unavailable", err))
		return false
	}
	if !allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{"err": "too many requests for this claimer"})
		return false
	}
	return true
}

// tokenMatchesSocialID cross-checks the bearer token's subject against the
// request's social id when auth is enabled.
func (h Claims) tokenMatchesSocialID(c *gin.Context, socialID uint64) bool {
	if h.cfg.JWTSecret == "" {
		return true
	}
	sub := c.GetString("socialId")
	return sub == strconv.FormatUint(socialID, 10)
}

// Eligibility reports the full snapshot plus the decision so clients can
// render claim state without assembling contract reads themselves.
func (h Claims) Eligibility(c *gin.Context) {
	claimer := c.Query("claimer")
	socialID, _ := strconv.ParseUint(c.Query("socialId"), 10, 64)
	chainID, _ := strconv.ParseInt(c.Query("chainId"), 10, 64)

	snap, err := h.deps.Evaluator.Evaluate(c, claimer, socialID, chainID)
	if err != nil {
		respondError(c, "eligibility "+claimer, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"canClaim": eligibility.Decide(snap, eligibility.Rules{
			ReputationThreshold: h.cfg.ReputationThreshold,
			MinStreakDays:       h.cfg.MinStreakDays,
		}),
		"snapshot": snap,
	})
}

// Authorize validates the request, re-checks eligibility, and issues a
// voucher. Validation happens before any chain access: a malformed claimer
// never causes a chain call or a signature.
func (h Claims) Authorize(c *gin.Context) {
	var req struct {
		Claimer  string `json:"claimer" binding:"required"`
		SocialID uint64 `json:"socialId" binding:"required"`
		Deadline int64  `json:"deadline" binding:"required"`
		ChainID  int64  `json:"chainId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	if err := eligibility.ValidateRequest(req.Claimer, req.SocialID, req.ChainID); err != nil {
		respondError(c, "authorize validate", err)
		return
	}
	now := time.Now().Unix()
	if req.Deadline <= now {
		c.JSON(http.StatusBadRequest, gin.H{"err": "deadline must be in the future"})
		return
	}
	if req.Deadline > now+h.cfg.DeadlineHorizonSecs {
		c.JSON(http.StatusBadRequest, gin.H{"err": "deadline too far in the future"})
		return
	}
	if !h.tokenMatchesSocialID(c, req.SocialID) {
		c.JSON(http.StatusForbidden, gin.H{"err": "token does not match socialId"})
		return
	}
	if !h.claimerAllowed(c, "authorize", req.Claimer, h.cfg.ClaimerRateLimit) {
		return
	}

	// The contract re-validates signature and nonce on execution; this
	// check keeps ineligible identities from burning signer capacity.
	snap, err := h.deps.Evaluator.Evaluate(c, req.Claimer, req.SocialID, req.ChainID)
	if err != nil {
		respondError(c, "authorize evaluate "+req.Claimer, err)
		return
	}
	rules := eligibility.Rules{
		ReputationThreshold: h.cfg.ReputationThreshold,
		MinStreakDays:       h.cfg.MinStreakDays,
	}
	if !eligibility.Decide(snap, rules) {
		c.JSON(http.StatusForbidden, gin.H{"err": "not eligible to claim today"})
		return
	}

	v, err := h.deps.Authorizer.Authorize(c, common.HexToAddress(req.Claimer), req.SocialID, req.Deadline, req.ChainID)
	if err != nil {
		respondError(c, "authorize issue "+req.Claimer, err)
		return
	}

	log.Printf("[%s] issued voucher for %s social %d chain %d nonce %d",
		c.GetString("reqid"), req.Claimer, req.SocialID, req.ChainID, v.Nonce)
	c.JSON(http.StatusOK, v)
}

// Confirm verifies a reported settlement transaction and advances the daily
// counter exactly once per accepted hash.
func (h Claims) Confirm(c *gin.Context) {
	var req struct {
		TransactionHash string `json:"transactionHash" binding:"required"`
		Claimer         string `json:"claimer" binding:"required"`
		ChainID         int64  `json:"chainId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	if !h.claimerAllowed(c, "confirm", req.Claimer, h.cfg.ConfirmClaimerRateLimit) {
		return
	}

	res, err := h.deps.Confirmer.Confirm(c, req.TransactionHash, req.Claimer, req.ChainID)
	if err != nil {
		respondError(c, "confirm "+req.TransactionHash, err)
		return
	}

	msg := "claim confirmed and counter incremented"
	if res.AlreadyProcessed {
		msg = "claim already processed"
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": msg,
		"count":   res.Count,
		"allowed": res.Allowed,
	})
}

// Stats exposes the current day's counter for one chain.
func (h Claims) Stats(c *gin.Context) {
	chainID, err := strconv.ParseInt(c.Query("chainId"), 10, 64)
	if err != nil || chainID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"err": "chainId must be a positive integer"})
		return
	}

	count, err := data.DailyClaimsCount(c, h.deps.Store, chainID, time.Now())
	if err != nil {
		respondError(c, "stats", claimerr.Wrap(claimerr.Upstream, "counter read failed", err))
		return
	}

	remaining := h.cfg.DailyClaimLimit - count
	if remaining < 0 {
		remaining = 0
	}
	c.JSON(http.StatusOK, gin.H{
		"count":     count,
		"limit":     h.cfg.DailyClaimLimit,
		"remaining": remaining,
	})
}
