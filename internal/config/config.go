package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"shopdesk/internal/logger"
)

// ErrMissingDatabaseURL is returned when DATABASE_URL is not set. The server refuses to start without it.
var ErrMissingDatabaseURL = errors.New("DATABASE_URL environment variable is required")

// ErrMissingJWTSecret is returned in release mode when JWT_SECRET is not set.
var ErrMissingJWTSecret = errors.New("JWT_SECRET environment variable is required in release mode")

const devJWTSecret = "default_super_secret_key" // development fallback only

// Server holds the runtime configuration of the API server
type Server struct {
	DatabaseURL string
	JWTSecret   string
	Port        string
	GinMode     string
	CORSOrigins []string
	Log         logger.LogConfig
	OpenAIKey   string // empty disables /api/chat
	OpenAIModel string
	SMTP        SMTP
}

// SMTP configures receipt mailing. An empty Host disables it.
type SMTP struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// LoadServer reads configs/.env (if present) and the process environment.
func LoadServer(envFile string) (*Server, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			log.Debug().Str("file", envFile).Msg("no env file found, using process environment")
		}
	}

	cfg := &Server{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173")),
		Log: logger.LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
			Output: getEnv("LOG_OUTPUT", "stdout"),
		},
		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIModel: os.Getenv("OPENAI_MODEL"),
		SMTP: SMTP{
			Host:     os.Getenv("SMTP_HOST"),
			User:     os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("SMTP_FROM"),
		},
	}

	port, err := strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}
	cfg.SMTP.Port = port

	if cfg.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}

	if cfg.JWTSecret == "" {
		if cfg.GinMode == "release" {
			return nil, ErrMissingJWTSecret
		}
		cfg.JWTSecret = devJWTSecret
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
