// internal/config/config.go

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	NATS        NATSConfig
	Media       MediaConfig
	Geocoder    GeocoderConfig
	Session     SessionConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CorsOrigins     []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
	SSLMode      string
}

// NATSConfig holds NATS configuration
type NATSConfig struct {
	URL            string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectTimeout time.Duration
	ChangeSubject  string
}

// MediaConfig holds image storage configuration
type MediaConfig struct {
	MongoURI string
	Database string
	// BaseURL is the public prefix under which stored objects are served,
	// e.g. http://localhost:8080/media
	BaseURL string
}

// GeocoderConfig holds geocoding provider configuration.
// An empty APIKey is not an error: the resolver degrades to its offline
// fallback table.
type GeocoderConfig struct {
	APIKey   string
	Endpoint string
	Timeout  time.Duration
}

// SessionConfig holds admin session configuration.
// Missing admin credentials disable the admin surface rather than failing
// startup.
type SessionConfig struct {
	AdminUsername string
	AdminPassword string
	Secret        string
	TTL           time.Duration
}

// Load loads configuration from environment variables
func Load() (Config, error) {
	config := Config{
		Environment: getEnv("APP_ENV", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			CorsOrigins:     getEnvAsSlice("SERVER_CORS_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Database:     getEnv("DB_NAME", "casaview"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsDuration("DB_MAX_LIFETIME", 5*time.Minute),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
		},
		NATS: NATSConfig{
			URL:            getEnv("NATS_URL", "nats://localhost:4222"),
			MaxReconnects:  getEnvAsInt("NATS_MAX_RECONNECTS", 10),
			ReconnectWait:  getEnvAsDuration("NATS_RECONNECT_WAIT", 1*time.Second),
			ConnectTimeout: getEnvAsDuration("NATS_CONNECT_TIMEOUT", 2*time.Second),
			ChangeSubject:  getEnv("NATS_CHANGE_SUBJECT", "listings.changed"),
		},
		Media: MediaConfig{
			MongoURI: getEnv("MEDIA_MONGO_URI", "mongodb://localhost:27017"),
			Database: getEnv("MEDIA_DB", "casaview_media"),
			BaseURL:  getEnv("MEDIA_BASE_URL", "http://localhost:8080/media"),
		},
		Geocoder: GeocoderConfig{
			APIKey:   getEnv("MAPS_API_KEY", ""),
			Endpoint: getEnv("MAPS_ENDPOINT", "https://maps.googleapis.com/maps/api/geocode/json"),
			Timeout:  getEnvAsDuration("GEOCODE_TIMEOUT", 5*time.Second),
		},
		Session: SessionConfig{
			AdminUsername: getEnv("ADMIN_USERNAME", ""),
			AdminPassword: getEnv("ADMIN_PASSWORD", ""),
			Secret:        getEnv("SESSION_SECRET", "dev-session-secret"),
			TTL:           getEnvAsDuration("SESSION_TTL", 24*time.Hour),
		},
	}

	return config, validate(config)
}

// validate checks if config is valid
func validate(config Config) error {
	if config.Session.Secret == "dev-session-secret" && config.Environment != "development" {
		return fmt.Errorf("session secret must be set in non-development environments")
	}

	if strings.TrimSuffix(config.Media.BaseURL, "/") == "" {
		return fmt.Errorf("media base URL must not be empty")
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	return strings.Split(valueStr, ",")
}
