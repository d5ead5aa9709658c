package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/onepulse/onepulse-claims/src/ClaimsApi/data"
	"gorm.io/gorm"
)

type Config struct {
	RedisURL  string
	Port      string
	JWTSecret string // optional; empty disables bearer auth on claim routes

	AllowedOrigins []string

	// Server-held signer key, hex encoded. Used for nothing but claim
	// vouchers; rotating it does not invalidate already-settled claims.
	SignerKey string

	ReputationURL    string
	ReputationAPIKey string

	DailyClaimLimit     int64
	DeadlineHorizonSecs int64 // max client-supplied deadline distance
	ReputationThreshold float64
	MinStreakDays       int

	// Issuance endpoint abuse limiters.
	IPRateLimit           int
	IPRateWindowSecs      int
	ClaimerRateLimit      int
	ClaimerRateWindowSecs int

	// Confirmation endpoint limiters (original service ran these tighter).
	ConfirmIPRateLimit      int
	ConfirmClaimerRateLimit int

	SettingsRefreshSecs int
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		if def == "" {
			log.Fatalf("missing env %s", key)
		}
		return def
	}
	return v
}

func getint(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("bad %s: %v", key, err)
	}
	return n
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getfloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Fatalf("bad %s: %v", key, err)
	}
	return f
}

// Load reads env first, then lets the settings table override operator
// tunables. The signer key is required: a process without it must not start.
func Load(db *gorm.DB) Config {
	if err := data.LoadSettings(db); err != nil {
		log.Printf("Failed to load settings: %v", err)
	}

	cfg := Config{
		RedisURL:  getenv("REDIS_URL", "redis://localhost:6379/0"),
		Port:      getenv("PORT", "8080"),
		JWTSecret: os.Getenv("CLAIMS_JWT_SECRET"),
		SignerKey: getenv("CLAIM_SIGNER_KEY", ""),

		AllowedOrigins: splitList(getenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,https://onepulse.app")),

		ReputationURL:    os.Getenv("REPUTATION_API_URL"),
		ReputationAPIKey: os.Getenv("REPUTATION_API_KEY"),

		DailyClaimLimit:     int64(getint("DAILY_CLAIM_LIMIT", 1000)),
		DeadlineHorizonSecs: int64(getint("DEADLINE_HORIZON_SECS", 3600)),
		ReputationThreshold: getfloat("REPUTATION_THRESHOLD", 0.6),
		MinStreakDays:       getint("MIN_STREAK_DAYS", 3),

		IPRateLimit:           getint("IP_RATE_LIMIT", 100),
		IPRateWindowSecs:      getint("IP_RATE_WINDOW_SECS", 60),
		ClaimerRateLimit:      getint("CLAIMER_RATE_LIMIT", 10),
		ClaimerRateWindowSecs: getint("CLAIMER_RATE_WINDOW_SECS", 60),

		ConfirmIPRateLimit:      getint("CONFIRM_IP_RATE_LIMIT", 10),
		ConfirmClaimerRateLimit: getint("CONFIRM_CLAIMER_RATE_LIMIT", 5),

		SettingsRefreshSecs: getint("SETTINGS_REFRESH_SECS", 60),
	}

	// Operator overrides from the settings table.
	if v := data.GetSetting("daily_claim_limit"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.DailyClaimLimit = n
		}
	}
	if v := data.GetSetting("reputation_threshold"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.ReputationThreshold = f
		}
	}
	if v := data.GetSetting("min_streak_days"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MinStreakDays = n
		}
	}

	return cfg
}
