package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

func Config(key string) string {
	err := godotenv.Load(".env")
	if err != nil {
		log.Println("Warning: .env file not found, reading from system environment variables")
	}

	return os.Getenv(key)
}

// PlatformFeeConfig holds the fee split parameters. It is loaded once at
// startup and handed to the earnings ledger; the ledger never re-reads the
// environment.
type PlatformFeeConfig struct {
	FeePercentage float64
	MinimumFee    float64
	Currency      string
}

const (
	defaultFeePercentage = 0.15
	defaultMinimumFee    = 100.0
	defaultCurrency      = "NGN"
)

// LoadPlatformFeeConfig reads PLATFORM_FEE_PERCENTAGE (a percent, e.g. 15),
// MINIMUM_PLATFORM_FEE and PLATFORM_CURRENCY. Missing or malformed values
// fall back to the defaults.
func LoadPlatformFeeConfig() PlatformFeeConfig {
	cfg := PlatformFeeConfig{
		FeePercentage: defaultFeePercentage,
		MinimumFee:    defaultMinimumFee,
		Currency:      defaultCurrency,
	}

	if raw := Config("PLATFORM_FEE_PERCENTAGE"); raw != "" {
		pct, err := strconv.ParseFloat(raw, 64)
		if err != nil || pct < 0 || pct >= 100 {
			log.Printf("Warning: invalid PLATFORM_FEE_PERCENTAGE %q, using default", raw)
		} else {
			cfg.FeePercentage = pct / 100
		}
	}

	if raw := Config("MINIMUM_PLATFORM_FEE"); raw != "" {
		min, err := strconv.ParseFloat(raw, 64)
		if err != nil || min < 0 {
			log.Printf("Warning: invalid MINIMUM_PLATFORM_FEE %q, using default", raw)
		} else {
			cfg.MinimumFee = min
		}
	}

	if cur := Config("PLATFORM_CURRENCY"); cur != "" {
		cfg.Currency = cur
	}

	return cfg
}
