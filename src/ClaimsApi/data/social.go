package data

import (
	"errors"
	"strings"
	"time"

	"github.com/onepulse/onepulse-claims/src/ClaimsApi/types"
	"gorm.io/gorm"
)

// SocialStats is a read-only view over the table the real-time sync engine
// maintains. Nothing in this service ever writes to it.
type SocialStats struct {
	db *gorm.DB
}

func NewSocialStats(db *gorm.DB) *SocialStats {
	return &SocialStats{db: db}
}

// ActionToday reports whether the address performed the daily social action
// on the given chain today (UTC).
func (s *SocialStats) ActionToday(address string, chainID int64, now time.Time) (bool, error) {
	stat, err := s.lookup(address, chainID)
	if err != nil {
		return false, err
	}
	if stat == nil {
		return false, nil
	}
	return stat.LastActionDay == DayNumber(now), nil
}

// Streak returns the current consecutive-day streak for the address, zero
// when the address has never acted.
func (s *SocialStats) Streak(address string, chainID int64) (int, error) {
	stat, err := s.lookup(address, chainID)
	if err != nil {
		return 0, err
	}
	if stat == nil {
		return 0, nil
	}
	return stat.CurrentStreak, nil
}

func (s *SocialStats) lookup(address string, chainID int64) (*types.SocialStat, error) {
	var stat types.SocialStat
	err := s.db.First(&stat, "address = ? AND chain_id = ?", strings.ToLower(address), chainID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &stat, nil
}
