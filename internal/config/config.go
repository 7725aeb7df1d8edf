package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server ServerConfig
	Data   DataConfig
	Auth   AuthConfig
	Tink   TinkConfig
	Push   PushConfig
}

// ServerConfig holds the server configuration
type ServerConfig struct {
	Port int
}

// DataConfig locates the per-user store files.
type DataConfig struct {
	Dir string
	// FixtureDir switches the provider to local JSON fixtures when set.
	FixtureDir string
}

// AuthConfig holds the authentication configuration
type AuthConfig struct {
	JWTSecret string
}

// TinkConfig holds the banking provider credentials and the callback
// the consent flow redirects to.
type TinkConfig struct {
	ClientID     string
	ClientSecret string
	Market       string
	RedirectURI  string
}

// PushConfig holds the VAPID key pair and fan-out tuning.
type PushConfig struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Subject         string
	DeliveryTimeout time.Duration
}

// LoadConfig loads the configuration from the environment. A .env file
// in the working directory is honored when present.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Data: DataConfig{
			Dir:        getEnv("DATA_DIR", "data"),
			FixtureDir: getEnv("PROVIDER_FIXTURE_DIR", ""),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", "your-secret-key-here"),
		},
		Tink: TinkConfig{
			ClientID:     getEnv("TINK_CLIENT_ID", ""),
			ClientSecret: getEnv("TINK_CLIENT_SECRET", ""),
			Market:       getEnv("TINK_MARKET", "SE"),
			RedirectURI:  getEnv("TINK_REDIRECT_URI", fmt.Sprintf("http://localhost:%d/api/bank/callback", getEnvAsInt("SERVER_PORT", 8080))),
		},
		Push: PushConfig{
			VAPIDPublicKey:  getEnv("VAPID_PUBLIC_KEY", ""),
			VAPIDPrivateKey: getEnv("VAPID_PRIVATE_KEY", ""),
			Subject:         getEnv("VAPID_SUBJECT", "mailto:admin@piloted.app"),
			DeliveryTimeout: time.Duration(getEnvAsInt("PUSH_TIMEOUT_SECONDS", 10)) * time.Second,
		},
	}
}

// Helper functions to read environment variables
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
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
