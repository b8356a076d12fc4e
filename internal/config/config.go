/**
 * @description
 * This package handles the configuration management for the service. It uses
 * the Viper library to read configuration from environment variables,
 * providing a centralized and straightforward way to manage application
 * settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the banking service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort           string `mapstructure:"SERVER_PORT"`
	DatabaseURL          string `mapstructure:"DATABASE_URL"`
	RedisURL             string `mapstructure:"REDIS_URL"`
	RedisOTPPrefix       string `mapstructure:"REDIS_OTP_PREFIX"`
	RabbitMQURL          string `mapstructure:"RABBITMQ_URL"`
	AuditEventExchange   string `mapstructure:"AUDIT_EVENT_EXCHANGE"`
	JWKSURL              string `mapstructure:"JWKS_URL"`
	JWTAudience          string `mapstructure:"JWT_AUDIENCE"`
	JWTIssuer            string `mapstructure:"JWT_ISSUER"`
	HomeBank             string `mapstructure:"HOME_BANK"`
	OTPBypassEnabled     bool   `mapstructure:"OTP_BYPASS_ENABLED"`
	OTPBypassCode        string `mapstructure:"OTP_BYPASS_CODE"`
	OTPMaxAttempts       int    `mapstructure:"OTP_MAX_ATTEMPTS"`
	OTPAttemptWindowSec  int    `mapstructure:"OTP_ATTEMPT_WINDOW_SECONDS"`
	IntentTTLMinutes     int    `mapstructure:"INTENT_TTL_MINUTES"`
	PaginationTTLMinutes int    `mapstructure:"PAGINATION_TTL_MINUTES"`
	RiskHighAmount       int64  `mapstructure:"RISK_HIGH_AMOUNT"`
	RiskNewBeneficiary   int64  `mapstructure:"RISK_NEW_BENEFICIARY_AMOUNT"`
	RiskVelocityCount    int    `mapstructure:"RISK_VELOCITY_COUNT"`
	RiskVelocityWindow   int    `mapstructure:"RISK_VELOCITY_WINDOW_MINUTES"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("AUDIT_EVENT_EXCHANGE", "banking_service.audit_events")
	viper.SetDefault("HOME_BANK", "Grace Hopper Bank")
	viper.SetDefault("OTP_BYPASS_ENABLED", false)
	viper.SetDefault("OTP_MAX_ATTEMPTS", 5)
	viper.SetDefault("OTP_ATTEMPT_WINDOW_SECONDS", 300)
	viper.SetDefault("INTENT_TTL_MINUTES", 5)
	viper.SetDefault("PAGINATION_TTL_MINUTES", 30)
	viper.SetDefault("REDIS_OTP_PREFIX", "finspeak:otp_attempts")
	viper.SetDefault("RISK_HIGH_AMOUNT", 50000)
	viper.SetDefault("RISK_NEW_BENEFICIARY_AMOUNT", 25000)
	viper.SetDefault("RISK_VELOCITY_COUNT", 3)
	viper.SetDefault("RISK_VELOCITY_WINDOW_MINUTES", 5)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_OTP_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("AUDIT_EVENT_EXCHANGE")
	_ = viper.BindEnv("JWKS_URL")
	_ = viper.BindEnv("JWT_AUDIENCE")
	_ = viper.BindEnv("JWT_ISSUER")
	_ = viper.BindEnv("HOME_BANK")
	_ = viper.BindEnv("OTP_BYPASS_ENABLED")
	_ = viper.BindEnv("OTP_BYPASS_CODE")
	_ = viper.BindEnv("OTP_MAX_ATTEMPTS")
	_ = viper.BindEnv("OTP_ATTEMPT_WINDOW_SECONDS")
	_ = viper.BindEnv("INTENT_TTL_MINUTES")
	_ = viper.BindEnv("PAGINATION_TTL_MINUTES")
	_ = viper.BindEnv("RISK_HIGH_AMOUNT")
	_ = viper.BindEnv("RISK_NEW_BENEFICIARY_AMOUNT")
	_ = viper.BindEnv("RISK_VELOCITY_COUNT")
	_ = viper.BindEnv("RISK_VELOCITY_WINDOW_MINUTES")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisOTPPrefix = strings.TrimSpace(config.RedisOTPPrefix)
	if config.RedisOTPPrefix == "" {
		config.RedisOTPPrefix = "finspeak:otp_attempts"
	}
	config.HomeBank = strings.TrimSpace(config.HomeBank)
	if config.HomeBank == "" {
		config.HomeBank = "Grace Hopper Bank"
	}

	// The bypass code is only meaningful when the flag is on. Refusing to
	// carry a code in the off state keeps it out of accidental logs.
	if !config.OTPBypassEnabled {
		config.OTPBypassCode = ""
	} else if strings.TrimSpace(config.OTPBypassCode) == "" {
		log.Printf("level=warn component=config msg=\"OTP bypass enabled without a code; disabling bypass\"")
		config.OTPBypassEnabled = false
	}

	if config.OTPMaxAttempts <= 0 {
		config.OTPMaxAttempts = 5
	}
	if config.OTPAttemptWindowSec <= 0 {
		config.OTPAttemptWindowSec = 300
	}
	if config.IntentTTLMinutes <= 0 {
		config.IntentTTLMinutes = 5
	}
	if config.PaginationTTLMinutes <= 0 {
		config.PaginationTTLMinutes = 30
	}
	if config.RiskHighAmount <= 0 {
		config.RiskHighAmount = 50000
	}
	if config.RiskNewBeneficiary <= 0 {
		config.RiskNewBeneficiary = 25000
	}
	if config.RiskVelocityCount <= 0 {
		config.RiskVelocityCount = 3
	}
	if config.RiskVelocityWindow <= 0 {
		config.RiskVelocityWindow = 5
	}

	return
}
