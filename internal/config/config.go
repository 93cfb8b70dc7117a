package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App     AppConfig
	API     APIConfig
	Session SessionConfig
	Events  EventsConfig
	Report  ReportConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	DashboardSecret    string
}

// APIConfig points at the ChemViz backend.
type APIConfig struct {
	BaseURL        string
	TimeoutSeconds int
}

type SessionConfig struct {
	Store    string // "file", "redis" or "memory"
	FilePath string
	RedisURL string
}

type EventsConfig struct {
	Enabled bool
	NatsURL string
}

type ReportConfig struct {
	DownloadDir string
}

const (
	SessionStoreFile   = "file"
	SessionStoreRedis  = "redis"
	SessionStoreMemory = "memory"
)

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/chemviz.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
			DashboardSecret:    getEnv("DASHBOARD_SECRET", "change-me"),
		},
		API: APIConfig{
			BaseURL:        getEnv("CHEMVIZ_API_URL", "http://localhost:8000/api"),
			TimeoutSeconds: getEnvAsInt("CHEMVIZ_API_TIMEOUT", 60),
		},
		Session: SessionConfig{
			Store:    getEnv("SESSION_STORE", SessionStoreFile),
			FilePath: getEnv("SESSION_FILE", defaultSessionFile()),
			RedisURL: getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Events: EventsConfig{
			Enabled: getEnvAsBool("EVENTS_ENABLED", false),
			NatsURL: getEnv("NATS_URL", "nats://localhost:4222"),
		},
		Report: ReportConfig{
			DownloadDir: getEnv("REPORT_DOWNLOAD_DIR", "."),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func defaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".chemviz-session.json"
	}
	return filepath.Join(home, ".chemviz", "session.json")
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}
