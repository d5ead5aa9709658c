package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/onepulse/onepulse-claims/src/ClaimsApi/config"
	"github.com/onepulse/onepulse-claims/src/ClaimsApi/data"
	"github.com/onepulse/onepulse-claims/src/ClaimsApi/eligibility"
	"github.com/onepulse/onepulse-claims/src/ClaimsApi/evm"
	"github.com/onepulse/onepulse-claims/src/ClaimsApi/reputation"
	"github.com/onepulse/onepulse-claims/src/ClaimsApi/settle"
	"github.com/onepulse/onepulse-claims/src/ClaimsApi/voucher"
	"github.com/onepulse/onepulse-claims/src/ClaimsApi/webserver"
)

func main() {
	db := data.MustMySQL(data.GetMySQLDSN())

	cfg := config.Load(db)
	rdb := data.MustRedis(cfg.RedisURL)

	// Missing signing key kills the process here, not on the first request.
	issuer, err := voucher.NewIssuer(cfg.SignerKey)
	if err != nil {
		log.Fatalf("issuer: %v", err)
	}
	log.Printf("Claim signer address: %s", issuer.SignerAddress().Hex())

	ctx, cancel := context.WithCancel(context.Background())

	dialCtx, dialCancel := context.WithTimeout(ctx, 30*time.Second)
	registry, err := evm.LoadRegistry(dialCtx, db)
	dialCancel()
	if err != nil {
		log.Fatalf("chains: %v", err)
	}
	log.Printf("Serving claims for chains %v", registry.IDs())

	var scores eligibility.ScoreReader
	if cfg.ReputationURL != "" {
		scores = reputation.NewClient(cfg.ReputationAPIKey, cfg.ReputationURL)
	} else {
		log.Printf("Warning: reputation provider not configured, streak rule applies to everyone")
	}

	rules := eligibility.Rules{
		ReputationThreshold: cfg.ReputationThreshold,
		MinStreakDays:       cfg.MinStreakDays,
	}
	evaluator := &eligibility.Evaluator{
		Registry: registry,
		Counters: rdb,
		Social:   data.NewSocialStats(db),
		Scores:   scores,
		Rules:    rules,
		Limit:    cfg.DailyClaimLimit,
	}
	confirmer := &settle.Confirmer{
		Registry: registry,
		Store:    rdb,
		Limit:    cfg.DailyClaimLimit,
	}

	go data.StartSettingsRefresh(ctx, db, time.Duration(cfg.SettingsRefreshSecs)*time.Second)

	router := webserver.New(cfg, webserver.Deps{
		Evaluator:  evaluator,
		Authorizer: webserver.ChainAuthorizer{Registry: registry, Issuer: issuer},
		Confirmer:  confirmer,
		Store:      rdb,
	})

	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Port)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http: %v", err)
		}
	}()

	log.Printf("Claims API listening on %s", cfg.Port)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	cancel()
	shutCtx, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()
	_ = httpSrv.Shutdown(shutCtx)
}
