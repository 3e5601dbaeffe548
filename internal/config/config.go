package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port                       string
	AllowedOrigin              string
	DatabaseURL                string
	RedisAddr                  string
	RedisPassword              string
	RedisDB                    int
	AuthSecret                 string
	AccessTokenTTLMinutes      int
	TaxRatePercent             float64
	StandardShippingCents      int64
	ExpressShippingCents       int64
	FreeShippingThresholdCents int64
	CatalogCacheTTLSeconds     int
}

func Load() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	tokenTTL, err := strconv.Atoi(getEnv("ACCESS_TOKEN_TTL_MINUTES", "480"))
	if err != nil || tokenTTL < 1 {
		tokenTTL = 480
	}
	cacheTTL, err := strconv.Atoi(getEnv("CATALOG_CACHE_TTL_SECONDS", "30"))
	if err != nil || cacheTTL < 1 {
		cacheTTL = 30
	}
	taxRate, err := strconv.ParseFloat(getEnv("TAX_RATE_PERCENT", "16"), 64)
	if err != nil || taxRate < 0 || taxRate > 100 {
		taxRate = 16
	}

	cfg := Config{
		Port:                       getEnv("PORT", "8080"),
		AllowedOrigin:              getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:                os.Getenv("DATABASE_URL"),
		RedisAddr:                  os.Getenv("REDIS_ADDR"),
		RedisPassword:              os.Getenv("REDIS_PASSWORD"),
		RedisDB:                    redisDB,
		AuthSecret:                 strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes:      tokenTTL,
		TaxRatePercent:             taxRate,
		StandardShippingCents:      getEnvCents("SHIPPING_STANDARD_CENTS", 15000),
		ExpressShippingCents:       getEnvCents("SHIPPING_EXPRESS_CENTS", 25000),
		FreeShippingThresholdCents: getEnvCents("FREE_SHIPPING_THRESHOLD_CENTS", 99900),
		CatalogCacheTTLSeconds:     cacheTTL,
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func getEnvCents(key string, fallback int64) int64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(val, 10, 64)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}
