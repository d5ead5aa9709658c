package data

import (
	"context"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/onepulse/onepulse-claims/src/ClaimsApi/types"
	"gorm.io/gorm"
)

var (
	settingsCache map[string]string
	settingsMu    sync.RWMutex
)

// LoadSettings loads all settings from database into cache
func LoadSettings(db *gorm.DB) error {
	var settings []types.Setting
	if err := db.Find(&settings).Error; err != nil {
		return err
	}

	settingsMu.Lock()
	defer settingsMu.Unlock()

	settingsCache = make(map[string]string)
	for _, s := range settings {
		settingsCache[s.Name] = s.Value
	}

	return nil
}

// GetSetting retrieves a setting value by name
func GetSetting(name string) string {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return settingsCache[name]
}

// RefreshSettings reloads settings from database
func RefreshSettings(db *gorm.DB) error {
	return LoadSettings(db)
}

// StartSettingsRefresh reloads the settings table on an interval so operator
// toggles (paused chains, cap changes) take effect without a restart.
func StartSettingsRefresh(ctx context.Context, db *gorm.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := RefreshSettings(db); err != nil {
				log.Printf("settings refresh: %v", err)
			}
		}
	}
}

// ChainPaused reports whether an operator has paused claims on a chain via
// the paused_chains setting (comma-separated chain ids).
func ChainPaused(chainID int64) bool {
	raw := GetSetting("paused_chains")
	if raw == "" {
		return false
	}
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err == nil && id == chainID {
			return true
		}
	}
	return false
}
