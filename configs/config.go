package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

type Twitter struct {
	APIKey      string
	APISecret   string
	CallbackURI string
}

type LinkedIn struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// Relay points the publishing pipeline at the signing relay. An empty
// BaseURL means publishers call the platforms directly.
type Relay struct {
	BaseURL string
	Secret  string
}

type Config struct {
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string
	Twitter            Twitter
	LinkedIn           LinkedIn
	Relay              Relay
	PostgresURI        string
	RedisURI           string
	ServerAddr         string
	BaseURL            string
	FrontendURL        string
	R2                 R2
	SecretKey          string
	CookieName         string
	TickSchedule       string
	TickTimeout        time.Duration
	HTTPTimeout        time.Duration
	PublishRowTimeout  time.Duration
	MediaMaxBytes      int64
	PlatformRPS        float64
	CredentialTables   []string
}

func LoadConfig() *Config {
	return &Config{
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:  getEnv("GOOGLE_REDIRECT_URI", "http://localhost:3000/login/callback"),
		Twitter: Twitter{
			APIKey:      getEnv("TWITTER_API_KEY", ""),
			APISecret:   getEnv("TWITTER_API_SECRET", ""),
			CallbackURI: getEnv("TWITTER_CALLBACK_URI", "http://localhost:3000/auth/twitter/callback"),
		},
		LinkedIn: LinkedIn{
			ClientID:     getEnv("LINKEDIN_CLIENT_ID", ""),
			ClientSecret: getEnv("LINKEDIN_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("LINKEDIN_REDIRECT_URI", "http://localhost:3000/auth/linkedin/callback"),
		},
		Relay: Relay{
			BaseURL: strings.TrimSuffix(getEnv("RELAY_BASE_URL", ""), "/"),
			Secret:  getEnv("RELAY_SECRET", ""),
		},
		PostgresURI: getEnv("POSTGRES_URI", ""),
		RedisURI:    getEnv("REDIS_URI", ""),
		ServerAddr:  getEnv("SERVER_ADDR", ":3000"),
		BaseURL:     getEnv("BASE_URL", "http://localhost:3000"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  strings.TrimSuffix(getEnv("R2_PUBLIC_URL", ""), "/"),
		},
		SecretKey:         getEnv("SECRET_KEY", ""),
		CookieName:        getEnv("COOKIE_NAME", "mailtosocial_session"),
		TickSchedule:      getEnv("TICK_SCHEDULE", "@every 1m"),
		TickTimeout:       getEnvDuration("TICK_TIMEOUT", 30*time.Minute),
		HTTPTimeout:       getEnvDuration("HTTP_TIMEOUT", 30*time.Second),
		PublishRowTimeout: getEnvDuration("PUBLISH_ROW_TIMEOUT", 2*time.Minute),
		MediaMaxBytes:     int64(getEnvInt("MEDIA_MAX_BYTES", 15*1024*1024)),
		PlatformRPS:       getEnvFloat("PLATFORM_RPS", 2),
		CredentialTables:  getEnvList("CREDENTIAL_TABLES", []string{"social_accounts", "Account", "account"}),
	}
}

// RelayEnabled reports whether publishing goes through the signing relay.
func (c *Config) RelayEnabled() bool {
	return c.Relay.BaseURL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil && value > 0 {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil && value > 0 {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(os.Getenv(key)); err == nil && value > 0 {
		return value
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
