package config

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	DB_URL   string `mapstructure:"DB_URL"`
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	JWTSecret string `mapstructure:"JWT_SECRET"`

	TelegramBotToken string `mapstructure:"TELEGRAM_BOT_TOKEN"`
	AdminChatID      int64  `mapstructure:"ADMIN_CHAT_ID"`

	SendgridAPIKey string `mapstructure:"SENDGRID_API_KEY"`
	MailFrom       string `mapstructure:"MAIL_FROM"`
	AdminEmail     string `mapstructure:"ADMIN_EMAIL"`

	RedisURL    string `mapstructure:"REDIS_URL"`
	AccrualCron string `mapstructure:"ACCRUAL_CRON"`

	MinPrimaryWithdrawal  string `mapstructure:"MIN_PRIMARY_WITHDRAWAL"`
	MinReferralWithdrawal string `mapstructure:"MIN_REFERRAL_WITHDRAWAL"`
	MinReferralTransfer   string `mapstructure:"MIN_REFERRAL_TRANSFER"`
	ReferralBonusPercent  string `mapstructure:"REFERRAL_BONUS_PERCENT"`

	BTCNetwork string `mapstructure:"BTC_NETWORK"`
}

// Limits are the money thresholds parsed from Config.
type Limits struct {
	MinPrimaryWithdrawal  decimal.Decimal
	MinReferralWithdrawal decimal.Decimal
	MinReferralTransfer   decimal.Decimal
	ReferralBonusPercent  decimal.Decimal
}

var defaults = map[string]interface{}{
	"DB_URL":                  "",
	"HTTP_ADDR":               ":8080",
	"LOG_LEVEL":               "info",
	"JWT_SECRET":              "",
	"TELEGRAM_BOT_TOKEN":      "",
	"ADMIN_CHAT_ID":           0,
	"SENDGRID_API_KEY":        "",
	"MAIL_FROM":               "no-reply@localhost",
	"ADMIN_EMAIL":             "",
	"REDIS_URL":               "",
	"ACCRUAL_CRON":            "0 0 * * *",
	"MIN_PRIMARY_WITHDRAWAL":  "100",
	"MIN_REFERRAL_WITHDRAWAL": "10",
	"MIN_REFERRAL_TRANSFER":   "10",
	"REFERRAL_BONUS_PERCENT":  "1",
	"BTC_NETWORK":             "mainnet",
}

// LoadConfig reads an .env style file and lets the environment override it.
// A missing file is not an error: every key can come from the environment.
func LoadConfig(path string) (config Config, err error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return config, fmt.Errorf("failed to resolve config path: %w", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.AddConfigPath(filepath.Dir(absPath))
	v.SetConfigName(filepath.Base(absPath))
	v.SetConfigType("env")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return config, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(&config); err != nil {
		return config, fmt.Errorf("failed to decode config: %w", err)
	}

	return config, nil
}

func (c Config) Validate() error {
	if c.DB_URL == "" {
		return errors.New("DB_URL is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if _, err := c.Limits(); err != nil {
		return err
	}
	return nil
}

func (c Config) Limits() (Limits, error) {
	var limits Limits
	fields := []struct {
		key string
		raw string
		dst *decimal.Decimal
	}{
		{"MIN_PRIMARY_WITHDRAWAL", c.MinPrimaryWithdrawal, &limits.MinPrimaryWithdrawal},
		{"MIN_REFERRAL_WITHDRAWAL", c.MinReferralWithdrawal, &limits.MinReferralWithdrawal},
		{"MIN_REFERRAL_TRANSFER", c.MinReferralTransfer, &limits.MinReferralTransfer},
		{"REFERRAL_BONUS_PERCENT", c.ReferralBonusPercent, &limits.ReferralBonusPercent},
	}
	for _, f := range fields {
		d, err := decimal.NewFromString(f.raw)
		if err != nil {
			return limits, fmt.Errorf("%s: %w", f.key, err)
		}
		if !d.IsPositive() {
			return limits, fmt.Errorf("%s must be positive", f.key)
		}
		*f.dst = d
	}
	return limits, nil
}
