package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort     string
	DatabaseDSN  string
	JWTSecret    string
	CORSOrigins  string
	RedisAddress string // optional; without it submits rely on the unique index only
	LogLevel     string

	StoreName    string
	StoreAddress string
	StoreTaxID   string
}

const defaultDSN = "host=localhost user=postgres password=postgres dbname=lengolf port=5432 sslmode=disable"

func Load() *Config {
	// .env is optional; real env vars win.
	_ = godotenv.Load()

	cfg := &Config{
		HTTPPort:     getEnv("HTTP_PORT", "8080"),
		DatabaseDSN:  getEnv("DATABASE_DSN", defaultDSN),
		JWTSecret:    getEnv("JWT_SECRET", ""),
		CORSOrigins:  getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		RedisAddress: getEnv("REDIS_ADDRESS", ""),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		StoreName:    getEnv("STORE_NAME", "LENGOLF CO. LTD."),
		StoreAddress: getEnv("STORE_ADDRESS", ""),
		StoreTaxID:   getEnv("STORE_TAX_ID", ""),
	}

	if cfg.JWTSecret == "" {
		logg.Fatal("JWT_SECRET is not set")
	}
	if len(cfg.JWTSecret) < 32 {
		logg.Fatal("JWT_SECRET must be at least 32 characters")
	}
	if cfg.DatabaseDSN == defaultDSN {
		logg.Warn("DATABASE_DSN is using the local default")
	}

	SetLogLevel(cfg.LogLevel)
	return cfg
}

// PrinterConfig is what a closing terminal needs to reach the API and its
// receipt printer.
type PrinterConfig struct {
	APIURL   string
	APIToken string

	BLEAddress            string
	BLEServiceUUID        string
	BLECharacteristicUUID string

	USBVendorID  uint16
	USBProductID uint16

	PacingMS int
}

func LoadPrinter() *PrinterConfig {
	_ = godotenv.Load()

	return &PrinterConfig{
		APIURL:                getEnv("CLOSING_API_URL", "http://localhost:8080/api"),
		APIToken:              getEnv("CLOSING_API_TOKEN", ""),
		BLEAddress:            getEnv("PRINTER_BLE_ADDRESS", ""),
		BLEServiceUUID:        getEnv("PRINTER_BLE_SERVICE_UUID", "000018f0-0000-1000-8000-00805f9b34fb"),
		BLECharacteristicUUID: getEnv("PRINTER_BLE_CHARACTERISTIC_UUID", "00002af1-0000-1000-8000-00805f9b34fb"),
		USBVendorID:           getEnvUint16("PRINTER_USB_VID", 0x0416),
		USBProductID:          getEnvUint16("PRINTER_USB_PID", 0x5011),
		PacingMS:              getEnvInt("PRINTER_PACING_MS", 10),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logg.Warnf("%s=%q is not a number, using %d", key, v, def)
		return def
	}
	return n
}

// getEnvUint16 accepts decimal or 0x-prefixed hex, as USB ids are usually
// written in hex.
func getEnvUint16(key string, def uint16) uint16 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseUint(v, 0, 16)
	if err != nil {
		logg.Warnf("%s=%q is not a 16-bit id, using 0x%04x", key, v, def)
		return def
	}
	return uint16(n)
}
