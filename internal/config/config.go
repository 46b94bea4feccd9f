package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

type Config struct {
	BotToken    string
	AdminID     int64
	APIBaseURL  string
	DBPath      string
	LogLevel    string
	Debug       bool
	HTTPTimeout time.Duration
}

func LoadConfig() (*Config, error) {
	botToken := os.Getenv("BOT_TOKEN")
	if botToken == "" {
		return nil, errors.New("BOT_TOKEN is required")
	}

	adminIDStr := os.Getenv("ADMIN_ID")
	if adminIDStr == "" {
		return nil, errors.New("ADMIN_ID is required")
	}
	adminID, err := strconv.ParseInt(adminIDStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ADMIN_ID: %w", err)
	}

	baseURL := strings.TrimRight(os.Getenv("API_BASE_URL"), "/")
	if baseURL == "" {
		return nil, errors.New("API_BASE_URL is required")
	}
	if u, err := url.Parse(baseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API_BASE_URL %q", baseURL)
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "wizard.db"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	debug := os.Getenv("DEBUG")
	if debug == "" {
		debug = "false"
	}

	timeout := 30 * time.Second
	if v := os.Getenv("HTTP_TIMEOUT"); v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("invalid HTTP_TIMEOUT %q", v)
		}
		timeout = parsed
	}

	return &Config{
		BotToken:    botToken,
		AdminID:     adminID,
		APIBaseURL:  baseURL,
		DBPath:      dbPath,
		LogLevel:    logLevel,
		Debug:       debug == "true",
		HTTPTimeout: timeout,
	}, nil
}
