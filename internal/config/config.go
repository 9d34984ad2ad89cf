package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

// Config holds runtime configuration sourced from env vars.
type Config struct {
	Port           string
	Env            string
	LogLevel       string
	JWTSecret      string
	JWTIssuer      string
	JWTTTL         time.Duration
	StoreDriver    string
	MongoURI       string
	MongoDatabase  string
	CORSOrigins    []string
	UploadDir      string
	UploadMaxBytes int64
	TextbeltKey    string
	TextbeltURL    string
}

// Load reads configuration from the environment. It fails when JWT_SECRET is
// missing so the server never starts without a signing key.
func Load() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "5001")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JWT_ISSUER", "clinic-api")
	v.SetDefault("JWT_TTL_HOURS", 720)
	v.SetDefault("STORE_DRIVER", DriverMongo)
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "clinic")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("UPLOAD_MAX_BYTES", 10<<20)
	v.SetDefault("TEXTBELT_URL", "https://textbelt.com/text")

	cfg := Config{
		Port:           strings.TrimSpace(v.GetString("PORT")),
		Env:            strings.TrimSpace(v.GetString("ENV")),
		LogLevel:       strings.TrimSpace(v.GetString("LOG_LEVEL")),
		JWTSecret:      strings.TrimSpace(v.GetString("JWT_SECRET")),
		JWTIssuer:      strings.TrimSpace(v.GetString("JWT_ISSUER")),
		StoreDriver:    strings.ToLower(strings.TrimSpace(v.GetString("STORE_DRIVER"))),
		MongoURI:       strings.TrimSpace(v.GetString("MONGO_URI")),
		MongoDatabase:  strings.TrimSpace(v.GetString("MONGO_DATABASE")),
		CORSOrigins:    parseCSV(v.GetString("CORS_ORIGINS")),
		UploadDir:      strings.TrimSpace(v.GetString("UPLOAD_DIR")),
		UploadMaxBytes: v.GetInt64("UPLOAD_MAX_BYTES"),
		TextbeltKey:    strings.TrimSpace(v.GetString("TEXTBELT_API_KEY")),
		TextbeltURL:    strings.TrimSpace(v.GetString("TEXTBELT_URL")),
	}

	if hours := v.GetInt("JWT_TTL_HOURS"); hours > 0 {
		cfg.JWTTTL = time.Duration(hours) * time.Hour
	} else {
		cfg.JWTTTL = 720 * time.Hour
	}
	if cfg.UploadMaxBytes <= 0 {
		cfg.UploadMaxBytes = 10 << 20
	}

	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}
	switch cfg.StoreDriver {
	case DriverMongo:
		if cfg.MongoURI == "" || cfg.MongoDatabase == "" {
			return Config{}, errors.New("MONGO_URI and MONGO_DATABASE are required for the mongo store")
		}
	case DriverMemory:
	default:
		return Config{}, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	return cfg, nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) IsDev() bool {
	return c.Env == "development"
}

func parseCSV(input string) []string {
	var out []string
	for _, part := range strings.Split(input, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
