package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config collects every environment setting the server reads. Twitter
// consumer credentials may be absent; the server still starts and Twitter
// operations fail with a configuration error instead.
type Config struct {
	TwitterAPIKey      string
	TwitterAPISecret   string
	TwitterCallbackURL string

	// OAuth 2.0 PKCE variant (separate app credentials on the X developer
	// portal; falls back to the consumer key pair when unset).
	TwitterClientID     string
	TwitterClientSecret string

	OpenRouterAPIKey  string
	HuggingFaceAPIKey string
	CoinGeckoAPIKey   string

	RedisHost     string
	RedisPort     string
	RedisUser     string
	RedisPassword string
	RedisDB       string

	Env string
}

func Load() Config {
	godotenv.Load()

	cfg := Config{
		TwitterAPIKey:       os.Getenv("TWITTER_API_KEY"),
		TwitterAPISecret:    os.Getenv("TWITTER_API_SECRET"),
		TwitterCallbackURL:  getenv("TWITTER_CALLBACK_URL", "http://localhost:8090/api/auth/twitter/callback"),
		TwitterClientID:     getenv("TWITTER_CLIENT_ID", os.Getenv("TWITTER_API_KEY")),
		TwitterClientSecret: getenv("TWITTER_CLIENT_SECRET", os.Getenv("TWITTER_API_SECRET")),
		OpenRouterAPIKey:    os.Getenv("OPENROUTER_API_KEY"),
		HuggingFaceAPIKey:   os.Getenv("HUGGINGFACE_API_KEY"),
		CoinGeckoAPIKey:     os.Getenv("COINGECKO_API_KEY"),
		RedisHost:           os.Getenv("REDIS_HOST"),
		RedisPort:           getenv("REDIS_PORT", "6379"),
		RedisUser:           os.Getenv("REDIS_USER"),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		RedisDB:             getenv("REDIS_DB", "0"),
		Env:                 getenv("ENV", "dev"),
	}

	// Some deployments hand out the callback with a stray /login prefix.
	if strings.Contains(cfg.TwitterCallbackURL, "/login/api/") {
		cfg.TwitterCallbackURL = strings.Replace(cfg.TwitterCallbackURL, "/login/api/", "/api/", 1)
	}

	// gotwi reads the consumer pair from its own env vars.
	if os.Getenv("GOTWI_API_KEY") == "" && cfg.TwitterAPIKey != "" {
		os.Setenv("GOTWI_API_KEY", cfg.TwitterAPIKey)
		os.Setenv("GOTWI_API_KEY_SECRET", cfg.TwitterAPISecret)
	}

	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
