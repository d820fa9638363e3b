package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/authrouter/authrouter/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration. It is built once at startup and
// handed by pointer to every component that needs it.
type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Session   SessionConfig
	Auth      AuthConfig
	Apple     AppleConfig
	Naver     OAuthClientConfig
	Google    OAuthClientConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// StoreConfig selects the user table backend: "sqlite" (default) or "mongo".
type StoreConfig struct {
	Driver     string
	SQLitePath string
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// JWTConfig configures the session token carried in the "token" cookie.
type JWTConfig struct {
	Secret    string
	CookieTTL time.Duration
}

// SessionConfig configures the server-side login session ("sid" cookie).
type SessionConfig struct {
	Secret       string
	TTL          time.Duration
	CookieSecure bool
}

type AuthConfig struct {
	CallbackURL string
	LandingPath string
	FailurePath string
	// AllowInsecureToken lets OIDC adapters parse ID tokens without signature
	// checks when discovery is unavailable. Integration environments only.
	AllowInsecureToken bool
}

type OAuthClientConfig struct {
	ClientID     string
	ClientSecret string
}

// Enabled reports whether both client credentials are present.
func (o OAuthClientConfig) Enabled() bool {
	return o.ClientID != "" && o.ClientSecret != ""
}

type AppleConfig struct {
	ClientID string
	TeamID   string
	KeyID    string
	KeyFile  string
}

// Enabled reports whether Sign in with Apple is fully configured.
func (a AppleConfig) Enabled() bool {
	return a.ClientID != "" && a.TeamID != "" && a.KeyID != "" && a.KeyFile != ""
}

type RateLimitConfig struct {
	Enabled       bool
	RPS           float64
	Burst         int
	UseRedis      bool
	WindowSeconds int
}

// CallbackFor returns the absolute callback address for the named provider.
func (c *Config) CallbackFor(provider string) string {
	return strings.TrimRight(c.Auth.CallbackURL, "/") + "/auth/callback/" + provider
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "5001")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_ENVIRONMENT", "development")
	viper.SetDefault("USER_STORE_DRIVER", "sqlite")
	viper.SetDefault("SQLITE_PATH", "./data/user.db")
	viper.SetDefault("MONGODB_DATABASE", "authrouter")
	viper.SetDefault("MONGODB_TIMEOUT", 10)
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("TOKEN_COOKIE_TTL", 10080)
	viper.SetDefault("SESSION_TTL", 1440)
	viper.SetDefault("CALLBACK_URL", "http://localhost:5001")
	viper.SetDefault("LANDING_PATH", "/mypage")
	viper.SetDefault("FAILURE_PATH", "/")
	viper.SetDefault("APPLE_KEY_DIR", ".")
	viper.SetDefault("RATE_LIMIT_RPS", 10)
	viper.SetDefault("RATE_LIMIT_BURST", 20)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)

	appleKeyFile := viper.GetString("APPLE_KEY_FILE")
	if appleKeyFile == "" && viper.GetString("APPLE_KEY_ID") != "" {
		appleKeyFile = filepath.Join(viper.GetString("APPLE_KEY_DIR"), "AuthKey_"+viper.GetString("APPLE_KEY_ID")+".p8")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         viper.GetString("SERVER_PORT"),
			Host:         viper.GetString("SERVER_HOST"),
			Environment:  viper.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Store: StoreConfig{
			Driver:     strings.ToLower(viper.GetString("USER_STORE_DRIVER")),
			SQLitePath: viper.GetString("SQLITE_PATH"),
		},
		MongoDB: MongoDBConfig{
			URI:      viper.GetString("MONGODB_URI"),
			Database: viper.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(viper.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:    viper.GetString("JWT_SECRET"),
			CookieTTL: time.Duration(viper.GetInt("TOKEN_COOKIE_TTL")) * time.Minute,
		},
		Session: SessionConfig{
			Secret:       viper.GetString("SESSION_SECRET"),
			TTL:          time.Duration(viper.GetInt("SESSION_TTL")) * time.Minute,
			CookieSecure: viper.GetBool("COOKIE_SECURE"),
		},
		Auth: AuthConfig{
			CallbackURL:        viper.GetString("CALLBACK_URL"),
			LandingPath:        viper.GetString("LANDING_PATH"),
			FailurePath:        viper.GetString("FAILURE_PATH"),
			AllowInsecureToken: viper.GetBool("ALLOW_INSECURE_TOKEN"),
		},
		Apple: AppleConfig{
			ClientID: viper.GetString("APPLE_CLIENT_ID"),
			TeamID:   viper.GetString("APPLE_TEAM_ID"),
			KeyID:    viper.GetString("APPLE_KEY_ID"),
			KeyFile:  appleKeyFile,
		},
		Naver: OAuthClientConfig{
			ClientID:     viper.GetString("NAVER_CLIENT_ID"),
			ClientSecret: viper.GetString("NAVER_CLIENT_SECRET"),
		},
		Google: OAuthClientConfig{
			ClientID:     viper.GetString("GOOGLE_CLIENT_ID"),
			ClientSecret: viper.GetString("GOOGLE_CLIENT_SECRET"),
		},
		RateLimit: RateLimitConfig{
			Enabled:       viper.GetBool("RATE_LIMIT_ENABLED"),
			RPS:           viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         viper.GetInt("RATE_LIMIT_BURST"),
			UseRedis:      viper.GetBool("RATE_LIMIT_USE_REDIS"),
			WindowSeconds: viper.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
	}

	switch cfg.Store.Driver {
	case "sqlite", "mongo":
	default:
		return nil, fmt.Errorf("unsupported USER_STORE_DRIVER %q", cfg.Store.Driver)
	}
	if cfg.Store.Driver == "mongo" && cfg.MongoDB.URI == "" {
		return nil, fmt.Errorf("MONGODB_URI is required when USER_STORE_DRIVER=mongo")
	}

	// an empty HMAC key would let anyone mint a token cookie
	if strings.TrimSpace(cfg.JWT.Secret) == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.Session.Secret == "" {
		logger.Warn("SESSION_SECRET is not set; falling back to JWT_SECRET")
		cfg.Session.Secret = cfg.JWT.Secret
	}

	return cfg, nil
}
