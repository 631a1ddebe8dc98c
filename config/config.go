package config

import (
	"os"
	"time"
)

// Known sample credentials shipped in docs; treated the same as unset.
const (
	PlaceholderCommerceKey = "BZtPkD4Kok89tAqqYI36jRMYM0qXo4fm"
	PlaceholderCDPKeyID    = "your-cdp-api-key-id"
)

type Config struct {
	Server   ServerConfig
	Merchant MerchantConfig
	Commerce CommerceConfig
	CDP      CDPConfig
	Frontend FrontendConfig
	Webhook  WebhookConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// MerchantConfig describes where settled funds land.
type MerchantConfig struct {
	DestinationAddress string
	PurchaseAsset      string
	Network            string
	NetworkID          string // chain-activity feed network id, e.g. base-mainnet
	TokenContract      string // asset contract on Network
}

type CommerceConfig struct {
	BaseURL       string
	APIKey        string
	WebhookSecret string
	CallTimeout   time.Duration
}

// CDPConfig covers both the onramp API and the chain-activity
// subscription API; they share one key pair.
type CDPConfig struct {
	OnrampBaseURL  string
	MonitorBaseURL string
	APIKeyID       string
	PrivateKey     string // PEM-encoded EC private key
	WebhookSecret  string // optional shared secret for monitor callbacks
	CallTimeout    time.Duration
}

type FrontendConfig struct {
	URL string
}

type WebhookConfig struct {
	// BaseNotificationURL is where rails deliver events,
	// e.g. https://pay.example.com/api
	BaseNotificationURL string
}

// Configured reports whether a live Commerce API key is present.
// Placeholder values count as absent.
func (c *CommerceConfig) Configured() bool {
	return c.APIKey != "" && c.APIKey != PlaceholderCommerceKey
}

// Configured reports whether live CDP credentials are present.
func (c *CDPConfig) Configured() bool {
	return c.APIKeyID != "" && c.APIKeyID != PlaceholderCDPKeyID && c.PrivateKey != ""
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         envOr("PORT", "3001"),
			Env:          envOr("APP_ENV", "development"),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Merchant: MerchantConfig{
			DestinationAddress: envOr("DESTINATION_ADDRESS", "0x4D884A7E2459bD7DDad48Ab7e125a528DfeE60Fd"),
			PurchaseAsset:      envOr("PURCHASE_CURRENCY", "USDC"),
			Network:            envOr("NETWORK", "base"),
			NetworkID:          envOr("NETWORK_ID", "base-mainnet"),
			TokenContract:      envOr("TOKEN_CONTRACT", "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"),
		},
		Commerce: CommerceConfig{
			BaseURL:       envOr("COMMERCE_BASE_URL", "https://api.commerce.coinbase.com"),
			APIKey:        os.Getenv("COINBASE_API_KEY"),
			WebhookSecret: os.Getenv("COINBASE_WEBHOOK_SECRET"),
			CallTimeout:   30 * time.Second,
		},
		CDP: CDPConfig{
			OnrampBaseURL:  envOr("ONRAMP_BASE_URL", "https://api.coinbase.com/v2"),
			MonitorBaseURL: envOr("CDP_BASE_URL", "https://api.cdp.coinbase.com/platform"),
			APIKeyID:       os.Getenv("CDP_API_KEY_ID"),
			PrivateKey:     os.Getenv("CDP_PRIVATE_KEY"),
			WebhookSecret:  os.Getenv("CDP_WEBHOOK_SECRET"),
			CallTimeout:    30 * time.Second,
		},
		Frontend: FrontendConfig{
			URL: envOr("FRONTEND_URL", "http://localhost:3000"),
		},
		Webhook: WebhookConfig{
			BaseNotificationURL: os.Getenv("WEBHOOK_BASE_URL"),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
