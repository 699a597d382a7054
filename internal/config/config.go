package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type IdentityConfig struct {
	BaseURL string `yaml:"base_url"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type OTPConfig struct {
	TTL          string `yaml:"ttl"`
	Length       int    `yaml:"length"`
	MaxAttempts  int    `yaml:"max_attempts"`
	ResendWindow string `yaml:"resend_window"`
}

type TwilioConfig struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	FromNumber string `yaml:"from_number"`
}

type WhatsAppConfig struct {
	BaseURL      string `yaml:"base_url"`
	AppID        string `yaml:"app_id"`
	APIKey       string `yaml:"api_key"`
	ReadyTimeout string `yaml:"ready_timeout"`
}

type FlowConfig struct {
	DefaultCountryCode string `yaml:"default_country_code"`
	SessionDBPath      string `yaml:"session_db_path"`
}

type ConfigFile struct {
	Identity IdentityConfig `yaml:"identity"`
	Redis    RedisConfig    `yaml:"redis"`
	OTP      OTPConfig      `yaml:"otp"`
	Twilio   TwilioConfig   `yaml:"twilio"`
	WhatsApp WhatsAppConfig `yaml:"whatsapp"`
	Flow     FlowConfig     `yaml:"flow"`
}

type Config struct {
	IdentityBaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	OTP_TTL          time.Duration
	OTP_Length       int
	OTP_MaxAttempts  int
	OTP_ResendWindow time.Duration

	TwilioSID   string
	TwilioToken string
	TwilioFrom  string

	WhatsAppBaseURL      string
	WhatsAppAppID        string
	WhatsAppAPIKey       string
	WhatsAppReadyTimeout time.Duration

	DefaultCountryCode string
	SessionDBPath      string
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// Load reads config/config.yml and applies environment overrides for the
// secrets that never belong in the file.
func Load() (*Config, error) {
	return LoadFrom(env("AUTHFLOW_CONFIG", "config/config.yml"))
}

func LoadFrom(path string) (*Config, error) {
	configFile, err := loadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	otpTTL, err := time.ParseDuration(configFile.OTP.TTL)
	if err != nil {
		return nil, fmt.Errorf("invalid OTP TTL: %w", err)
	}

	resWnd, err := time.ParseDuration(configFile.OTP.ResendWindow)
	if err != nil {
		return nil, fmt.Errorf("invalid OTP resend window: %w", err)
	}

	readyTimeout, err := time.ParseDuration(configFile.WhatsApp.ReadyTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid WhatsApp ready timeout: %w", err)
	}

	return &Config{
		IdentityBaseURL: env("IDENTITY_BASE_URL", configFile.Identity.BaseURL),

		RedisAddr:     env("REDIS_ADDR", configFile.Redis.Addr),
		RedisPassword: env("REDIS_PASSWORD", configFile.Redis.Password),
		RedisDB:       configFile.Redis.DB,

		OTP_TTL:          otpTTL,
		OTP_Length:       configFile.OTP.Length,
		OTP_MaxAttempts:  configFile.OTP.MaxAttempts,
		OTP_ResendWindow: resWnd,

		TwilioSID:   env("TWILIO_ACCOUNT_SID", configFile.Twilio.AccountSID),
		TwilioToken: env("TWILIO_AUTH_TOKEN", configFile.Twilio.AuthToken),
		TwilioFrom:  env("TWILIO_FROM_NUMBER", configFile.Twilio.FromNumber),

		WhatsAppBaseURL:      env("WHATSAPP_BASE_URL", configFile.WhatsApp.BaseURL),
		WhatsAppAppID:        env("WHATSAPP_APP_ID", configFile.WhatsApp.AppID),
		WhatsAppAPIKey:       env("WHATSAPP_API_KEY", configFile.WhatsApp.APIKey),
		WhatsAppReadyTimeout: readyTimeout,

		DefaultCountryCode: configFile.Flow.DefaultCountryCode,
		SessionDBPath:      env("SESSION_DB_PATH", configFile.Flow.SessionDBPath),
	}, nil
}

func loadConfigFile(path string) (*ConfigFile, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config file at %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(bytes, &config); err != nil {
		return nil, fmt.Errorf("could not parse config yaml: %w", err)
	}

	return &config, nil
}
