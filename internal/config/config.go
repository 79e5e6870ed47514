package config

import (
	"os"
	"strconv"
	"time"
)

// Config carries everything the service reads from the environment.
// godotenv loads .env in the entrypoints before Load is called.
type Config struct {
	Port     string
	RedisURL string

	PeamsubBaseURL string
	PeamsubAPIKey  string

	WepayBaseURL    string
	WepayMerchantID string
	WepayAPIKey     string

	Slip2GoBaseURL string
	Slip2GoToken   string

	// Receiver account slips must be paid to.
	ReceiverAccountType   string
	ReceiverAccountNumber string
	ReceiverNameTH        string
	ReceiverNameEN        string

	CatalogCacheTTL   time.Duration
	SettlementTimeout time.Duration
	LogLevel          string
}

func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		RedisURL: getEnv("REDIS_URL", "localhost:6379"),

		PeamsubBaseURL: getEnv("PEAMSUB_BASE_URL", "https://api.peamsub24hr.com"),
		PeamsubAPIKey:  os.Getenv("PEAMSUB_API_KEY"),

		WepayBaseURL:    getEnv("WEPAY_BASE_URL", "https://api.wepay.in.th"),
		WepayMerchantID: os.Getenv("WEPAY_MERCHANT_ID"),
		WepayAPIKey:     os.Getenv("WEPAY_API_KEY"),

		Slip2GoBaseURL: getEnv("SLIP2GO_BASE_URL", "https://connect.slip2go.com"),
		Slip2GoToken:   os.Getenv("SLIP2GO_TOKEN"),

		ReceiverAccountType:   getEnv("RECEIVER_ACCOUNT_TYPE", "BANKAC"),
		ReceiverAccountNumber: os.Getenv("RECEIVER_ACCOUNT_NUMBER"),
		ReceiverNameTH:        os.Getenv("RECEIVER_NAME_TH"),
		ReceiverNameEN:        os.Getenv("RECEIVER_NAME_EN"),

		CatalogCacheTTL:   getDuration("CATALOG_CACHE_TTL_SECONDS", 300),
		SettlementTimeout: getDuration("SETTLEMENT_TIMEOUT_SECONDS", 600),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallbackSeconds int) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return time.Duration(fallbackSeconds) * time.Second
}
