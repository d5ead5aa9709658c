package types

import "time"

// Supported networks. One row per chain the rewards contract is deployed on.
type Network struct {
	ID              uint8  `gorm:"primaryKey"`
	Name            string `gorm:"size:32;unique;not null"`
	ChainID         int64  `gorm:"unique;not null"`
	ContractAddress string `gorm:"size:64;not null"`
	RewardSymbol    string `gorm:"size:8;not null"`
	Active          bool   `gorm:"default:true"`
	// Chain reads retry with exponential backoff; some networks need more
	// headroom for block propagation than others.
	RetryAttempts int `gorm:"default:3"`
	RetryBaseMS   int `gorm:"default:500"`
}

// Network RPC endpoints, tried in order until one answers.
type NetworkRPC struct {
	ID        uint32 `gorm:"primaryKey"`
	NetworkID uint8  `gorm:"index;not null"`
	URL       string `gorm:"size:256;not null"`
	Active    bool   `gorm:"default:true"`
	Network   Network `gorm:"foreignKey:NetworkID;references:ID"`
}

// Settings
type Setting struct {
	ID    uint8  `gorm:"primaryKey"`
	Name  string `gorm:"size:32;not null"`
	Value string `gorm:"size:256;not null"`
}

// SocialStat mirrors the real-time action store. This service only ever
// reads it: the sync engine that writes it is a separate system.
type SocialStat struct {
	ID            uint64 `gorm:"primaryKey"`
	Address       string `gorm:"size:64;index:idx_social_addr_chain,unique;not null"`
	ChainID       int64  `gorm:"index:idx_social_addr_chain,unique;not null"`
	SocialID      uint64 `gorm:"index"`
	LastActionDay int64  `gorm:"default:0"`
	CurrentStreak int    `gorm:"default:0"`
	HighestStreak int    `gorm:"default:0"`
	AllTimeCount  int    `gorm:"default:0"`
	UpdatedAt     time.Time
}
