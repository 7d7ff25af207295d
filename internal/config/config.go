package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr string

	// DB
	Env    string // "dev" | "prod"
	DBPath string // e.g. "./data/doorlock.db"

	// OTP lifecycle
	OtpLength        int           // digits per code; floor of 6 keeps blind-guess odds <= 1e-6
	OtpTTL           time.Duration // validity window after issuance
	OtpSweepInterval time.Duration // 0 = background sweeper disabled

	// Query surface
	DefaultPageSize int
	MaxPageSize     int
}

func FromEnv() Config {
	addr := getenvDefault("DOORLOCK_HTTP_ADDR", ":8080")

	env := strings.ToLower(getenvDefault("DOORLOCK_ENV", "dev"))
	if env != "dev" && env != "prod" {
		// fail-soft: treat unknown as dev
		env = "dev"
	}

	dbPath := getenvDefault("DOORLOCK_DB_PATH", "./data/doorlock.db")

	otpLength := getenvInt("DOORLOCK_OTP_LENGTH", 8)
	if otpLength < 6 {
		otpLength = 6
	}

	otpTTL := getenvSeconds("DOORLOCK_OTP_TTL_SECONDS", 300)
	sweep := getenvSeconds("DOORLOCK_OTP_SWEEP_SECONDS", 60)

	defaultPage := getenvInt("DOORLOCK_DEFAULT_PAGE_SIZE", 50)
	maxPage := getenvInt("DOORLOCK_MAX_PAGE_SIZE", 200)
	if maxPage < defaultPage {
		maxPage = defaultPage
	}

	return Config{
		HTTPAddr: addr,
		Env:      env,
		DBPath:   dbPath,

		OtpLength:        otpLength,
		OtpTTL:           otpTTL,
		OtpSweepInterval: sweep,

		DefaultPageSize: defaultPage,
		MaxPageSize:     maxPage,
	}
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func getenvSeconds(key string, def int) time.Duration {
	return time.Duration(getenvInt(key, def)) * time.Second
}
