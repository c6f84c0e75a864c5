// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full runtime configuration of the trading bot. Secrets
// (API key, email app password) are never read from the config file, only
// from the environment or a .env file next to the binary.
type Config struct {
	// OANDA connection
	APIKey      string `mapstructure:"-"`
	AccountID   string `mapstructure:"account_id"`
	Environment string `mapstructure:"environment"` // "practice" or "live"

	// Trading
	Instruments         []string `mapstructure:"instruments"`
	TradeUnits          int      `mapstructure:"trade_units"`
	CandleGranularity   string   `mapstructure:"candle_granularity"`
	CandlesToFetch      int      `mapstructure:"candles_to_fetch"`
	StopLossPips        float64  `mapstructure:"sl_pips"`
	PredictionThreshold float64  `mapstructure:"prediction_threshold"`

	// Model artifacts
	ModelPath         string `mapstructure:"model_path"`
	ModelFeaturesPath string `mapstructure:"model_features_path"`

	// Indicators
	BollingerPeriod  int     `mapstructure:"bollinger_period"`
	BollingerStdDev  float64 `mapstructure:"bollinger_std_dev"`
	RSIPeriod        int     `mapstructure:"rsi_period"`
	MACDFastPeriod   int     `mapstructure:"macd_fast_period"`
	MACDSlowPeriod   int     `mapstructure:"macd_slow_period"`
	MACDSignalPeriod int     `mapstructure:"macd_signal_period"`

	// Notifications
	EmailEnabled     bool   `mapstructure:"email_enabled"`
	EmailSender      string `mapstructure:"email_sender"`
	EmailRecipient   string `mapstructure:"email_recipient"`
	SMTPHost         string `mapstructure:"smtp_host"`
	SMTPPort         int    `mapstructure:"smtp_port"`
	EmailAppPassword string `mapstructure:"-"`
	WebhookURL       string `mapstructure:"webhook_url"`

	// Infrastructure
	PostgresURL          string `mapstructure:"postgres_url"`
	Workers              int    `mapstructure:"workers"`
	Retries              int    `mapstructure:"retries"`
	SchedulerSkewSeconds int    `mapstructure:"scheduler_skew_seconds"`
	LogFile              string `mapstructure:"log_file"`
	DebugLogging         bool   `mapstructure:"debug_logging"`
}

const (
	DefaultGranularity    = "M15"
	DefaultCandlesToFetch = 100
	DefaultTradeUnits     = 1000
	DefaultSLPips         = 10.0
	DefaultThreshold      = 0.5
	DefaultWorkers        = 2
	DefaultRetries        = 3
	DefaultSchedulerSkew  = 20
	DefaultLogFile        = "tradebot.log"

	DefaultBollingerPeriod  = 20
	DefaultBollingerStdDev  = 2.0
	DefaultRSIPeriod        = 14
	DefaultMACDFastPeriod   = 12
	DefaultMACDSlowPeriod   = 26
	DefaultMACDSignalPeriod = 9
)

// granularityDurations maps OANDA candle granularities to wall-clock
// intervals, used both for validation and for scheduler alignment.
var granularityDurations = map[string]time.Duration{
	"M1":  time.Minute,
	"M5":  5 * time.Minute,
	"M15": 15 * time.Minute,
	"M30": 30 * time.Minute,
	"H1":  time.Hour,
	"H4":  4 * time.Hour,
	"D":   24 * time.Hour,
}

// GranularityDuration returns the candle interval for the configured
// granularity. Load guarantees the granularity is known.
func (c *Config) GranularityDuration() time.Duration {
	return granularityDurations[c.CandleGranularity]
}

// SchedulerSkew is the delay past the candle close before a cycle starts,
// giving OANDA time to finalize the candle.
func (c *Config) SchedulerSkew() time.Duration {
	return time.Duration(c.SchedulerSkewSeconds) * time.Second
}

// Load reads the config file at path, applies defaults, then overlays
// environment variables. A .env file in the working directory is loaded
// first if present.
func Load(path string) (*Config, error) {
	// Optional .env next to the binary; real env vars win over it.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"environment":            "practice",
		"trade_units":            DefaultTradeUnits,
		"candle_granularity":     DefaultGranularity,
		"candles_to_fetch":       DefaultCandlesToFetch,
		"sl_pips":                DefaultSLPips,
		"prediction_threshold":   DefaultThreshold,
		"bollinger_period":       DefaultBollingerPeriod,
		"bollinger_std_dev":      DefaultBollingerStdDev,
		"rsi_period":             DefaultRSIPeriod,
		"macd_fast_period":       DefaultMACDFastPeriod,
		"macd_slow_period":       DefaultMACDSlowPeriod,
		"macd_signal_period":     DefaultMACDSignalPeriod,
		"smtp_host":              "smtp.gmail.com",
		"smtp_port":              465,
		"workers":                DefaultWorkers,
		"retries":                DefaultRetries,
		"scheduler_skew_seconds": DefaultSchedulerSkew,
		"log_file":               DefaultLogFile,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := loadEnvironmentVariables(v, &cfg); err != nil {
		return nil, err
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if cfg.APIKey == "" {
		return errors.New("missing OANDA_API_KEY in environment")
	}
	if cfg.AccountID == "" {
		return errors.New("missing account_id in configuration")
	}
	if cfg.Environment != "practice" && cfg.Environment != "live" {
		return fmt.Errorf("unknown environment %q (want practice or live)", cfg.Environment)
	}
	if len(cfg.Instruments) == 0 {
		return errors.New("instruments list is empty")
	}
	if _, ok := granularityDurations[cfg.CandleGranularity]; !ok {
		return fmt.Errorf("unknown candle granularity %q", cfg.CandleGranularity)
	}
	if cfg.TradeUnits <= 0 {
		return errors.New("invalid trade_units")
	}
	if cfg.CandlesToFetch < cfg.BollingerPeriod+10 {
		return fmt.Errorf("candles_to_fetch %d too small for bollinger_period %d",
			cfg.CandlesToFetch, cfg.BollingerPeriod)
	}
	if cfg.StopLossPips <= 0 {
		return errors.New("invalid sl_pips")
	}
	if cfg.PredictionThreshold <= 0 || cfg.PredictionThreshold >= 1 {
		return errors.New("prediction_threshold must be in (0, 1)")
	}
	if cfg.ModelPath == "" || cfg.ModelFeaturesPath == "" {
		return errors.New("model_path and model_features_path are required")
	}
	if err := validateNumericParams(cfg); err != nil {
		return err
	}
	if cfg.WebhookURL != "" {
		if err := validateURL(cfg.WebhookURL, "https"); err != nil {
			return errors.New("webhook URL must use HTTPS")
		}
	}
	if cfg.EmailEnabled {
		if cfg.EmailSender == "" || cfg.EmailRecipient == "" {
			return errors.New("email_sender and email_recipient required when email_enabled")
		}
	}
	return nil
}

func validateNumericParams(cfg *Config) error {
	if cfg.Workers <= 0 {
		return errors.New("invalid workers count")
	}
	if cfg.Retries < 0 {
		return errors.New("invalid retries count")
	}
	if cfg.SchedulerSkewSeconds < 0 {
		return errors.New("invalid scheduler_skew_seconds")
	}
	if cfg.BollingerPeriod < 2 || cfg.RSIPeriod < 2 {
		return errors.New("indicator periods must be at least 2")
	}
	if cfg.MACDFastPeriod >= cfg.MACDSlowPeriod {
		return errors.New("macd_fast_period must be below macd_slow_period")
	}
	return nil
}

func validateURL(rawURL string, scheme string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, scheme) {
		return errors.New("invalid URL protocol")
	}
	return nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) error {
	v.AutomaticEnv()
	v.SetEnvPrefix("TRADEBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Secrets have well-known names without the prefix, matching the
	// deployment docs.
	cfg.APIKey = os.Getenv("OANDA_API_KEY")
	cfg.EmailAppPassword = os.Getenv("EMAIL_APP_PASSWORD")

	if envAccount := v.GetString("ACCOUNT_ID"); envAccount != "" {
		cfg.AccountID = envAccount
	}
	if envEnv := v.GetString("ENVIRONMENT"); envEnv != "" {
		cfg.Environment = envEnv
	}

	if envInstruments := v.GetString("INSTRUMENTS"); envInstruments != "" {
		parts := strings.Split(envInstruments, ",")
		var clean []string
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				clean = append(clean, trimmed)
			}
		}
		if len(clean) > 0 {
			cfg.Instruments = clean
		}
	}
	return nil
}
