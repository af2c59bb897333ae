package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort        string
	FirestoreProject  string
	Environment       string
	ChainRPCURL       string
	ContractAddress   string
	SettlementKey     string
	SettlementTimeout time.Duration
	ReconcileInterval time.Duration
}

func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		FirestoreProject:  getEnv("FIRESTORE_PROJECT_ID", ""),
		Environment:       getEnv("ENVIRONMENT", "development"),
		ChainRPCURL:       getEnv("CHAIN_RPC_URL", "http://localhost:8545"),
		ContractAddress:   getEnv("CONTRACT_ADDRESS", ""),
		SettlementKey:     getEnv("SETTLEMENT_KEY", ""),
		SettlementTimeout: getEnvAsDuration("SETTLEMENT_TIMEOUT_SECONDS", 180*time.Second),
		ReconcileInterval: getEnvAsDuration("RECONCILE_INTERVAL_SECONDS", 60*time.Second),
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		seconds, err := strconv.ParseInt(value, 10, 64)
		if err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
