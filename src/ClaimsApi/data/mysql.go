package data

import (
	"errors"
	"log"
	"os"

	"github.com/onepulse/onepulse-claims/src/ClaimsApi/types"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GetMySQLDSN resolves the database DSN. The one place it is read from the
// environment; everything else takes the resolved value.
func GetMySQLDSN() string {
	if v := os.Getenv("MYSQL_DSN"); v != "" {
		return v
	}
	return "claims:claims@tcp(localhost:3306)/onepulse"
}

func MustMySQL(dsn string) *gorm.DB {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("mysql: %v", err)
	}

	if err := db.AutoMigrate(
		&types.Network{},
		&types.NetworkRPC{},
		&types.Setting{},
		&types.SocialStat{},
	); err != nil {
		log.Fatalf("mysql migrate: %v", err)
	}

	seedNetworks(db)

	return db
}

// seedNetworks inserts the supported chains on first boot. Contract
// addresses and RPC endpoints are operator data and stay empty until filled
// in; a network with no contract address is skipped by the registry loader
// because it stays inactive.
func seedNetworks(db *gorm.DB) {
	defaults := []types.Network{
		{ID: 1, Name: "base", ChainID: 8453, RewardSymbol: "USDC", Active: false, RetryAttempts: 3, RetryBaseMS: 500},
		{ID: 2, Name: "celo", ChainID: 42220, RewardSymbol: "cUSD", Active: false, RetryAttempts: 5, RetryBaseMS: 1000},
		{ID: 3, Name: "optimism", ChainID: 10, RewardSymbol: "USDC", Active: false, RetryAttempts: 3, RetryBaseMS: 500},
	}
	for _, net := range defaults {
		var existing types.Network
		err := db.First(&existing, "chain_id = ?", net.ChainID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := db.Create(&net).Error; err != nil {
				log.Printf("seed network %s: %v", net.Name, err)
			}
			continue
		}
		if err != nil {
			log.Printf("seed network %s: %v", net.Name, err)
		}
	}
}
