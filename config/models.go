package config

import (
	"strings"
	"time"
)

const (
	LNDBackendType = "LND"
)

const (
	RelayKey          = "Relay"
	LNDAddressKey     = "LNDAddress"
	LNDCertHexKey     = "LNDCertHex"
	LNDMacaroonHexKey = "LNDMacaroonHex"
)

type AppConfig struct {
	Relay           string `envconfig:"RELAY"`
	LNDAddress      string `envconfig:"LND_ADDRESS"`
	LNDCertFile     string `envconfig:"LND_CERT_FILE"`
	LNDMacaroonFile string `envconfig:"LND_MACAROON_FILE"`
	Workdir         string `envconfig:"WORK_DIR"`
	Port            string `envconfig:"PORT" default:"8080"`
	DatabaseUri     string `envconfig:"DATABASE_URI" default:"bitcoinswitch.db"`
	LogLevel        string `envconfig:"LOG_LEVEL" default:"4"`
	LogToFile       bool   `envconfig:"LOG_TO_FILE" default:"true"`
	LogDBQueries    bool   `envconfig:"LOG_DB_QUERIES" default:"false"`
	BaseUrl         string `envconfig:"BASE_URL" default:"http://localhost:8080"`

	EnableZaps       bool   `envconfig:"ENABLE_ZAPS" default:"false"`
	MqttBrokerUrl    string `envconfig:"MQTT_BROKER_URL"`
	TaprootAssetsUrl string `envconfig:"TAPROOT_ASSETS_URL"`
	RatesUrl         string `envconfig:"RATES_URL" default:"https://api.coinbase.com/v2/exchange-rates?currency=BTC"`

	RateTolerance        float64 `envconfig:"BITCOINSWITCH_RATE_TOLERANCE" default:"0.05"`
	RateValidityMinutes  int     `envconfig:"BITCOINSWITCH_RATE_VALIDITY_MINUTES" default:"5"`
	RateRefreshSeconds   int     `envconfig:"BITCOINSWITCH_RATE_REFRESH_SECONDS" default:"60"`
	HttpTimeoutSeconds   float64 `envconfig:"BITCOINSWITCH_HTTP_TIMEOUT" default:"10.0"`
	TaprootQuoteExpiry   int     `envconfig:"BITCOINSWITCH_TAPROOT_QUOTE_EXPIRY" default:"300"`
	TaprootPaymentExpiry int     `envconfig:"BITCOINSWITCH_TAPROOT_PAYMENT_EXPIRY" default:"3600"`
	MaxCommentLength     int     `envconfig:"BITCOINSWITCH_MAX_COMMENT_LENGTH" default:"639"`
	ListenerQueueSize    int     `envconfig:"LISTENER_QUEUE_SIZE" default:"100"`
}

// NewDefaultAppConfig returns the values envconfig would produce with an empty
// environment.
func NewDefaultAppConfig() *AppConfig {
	return &AppConfig{
		Port:                 "8080",
		DatabaseUri:          "bitcoinswitch.db",
		LogLevel:             "4",
		LogToFile:            true,
		BaseUrl:              "http://localhost:8080",
		RatesUrl:             "https://api.coinbase.com/v2/exchange-rates?currency=BTC",
		RateTolerance:        0.05,
		RateValidityMinutes:  5,
		RateRefreshSeconds:   60,
		HttpTimeoutSeconds:   10,
		TaprootQuoteExpiry:   300,
		TaprootPaymentExpiry: 3600,
		MaxCommentLength:     639,
		ListenerQueueSize:    100,
	}
}

func (c *AppConfig) HttpTimeout() time.Duration {
	return time.Duration(c.HttpTimeoutSeconds * float64(time.Second))
}

func (c *AppConfig) RateValidity() time.Duration {
	return time.Duration(c.RateValidityMinutes) * time.Minute
}

func (c *AppConfig) RateRefresh() time.Duration {
	return time.Duration(c.RateRefreshSeconds) * time.Second
}

func (c *AppConfig) GetBaseUrl() string {
	return strings.TrimSuffix(c.BaseUrl, "/")
}

type Config interface {
	Get(key string) (string, error)
	SetIgnore(key string, value string) error
	SetUpdate(key string, value string) error
	GetEnv() *AppConfig
	GetRelayUrls() []string
	SetRelay(value string) error
	GetLNDConnection() (address string, certHex string, macaroonHex string)
}
