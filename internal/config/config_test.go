package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "SERVER_PORT")
	unsetEnvWithCleanup(t, "PORT")
	unsetEnvWithCleanup(t, "HOME_BANK")
	unsetEnvWithCleanup(t, "OTP_BYPASS_ENABLED")
	unsetEnvWithCleanup(t, "OTP_BYPASS_CODE")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.ServerPort)
	}
	if cfg.HomeBank != "Grace Hopper Bank" {
		t.Fatalf("expected default home bank, got %q", cfg.HomeBank)
	}
	if cfg.OTPBypassEnabled {
		t.Fatal("OTP bypass must default to disabled")
	}
	if cfg.IntentTTLMinutes != 5 || cfg.PaginationTTLMinutes != 30 {
		t.Fatalf("unexpected TTL defaults: intent=%d pagination=%d", cfg.IntentTTLMinutes, cfg.PaginationTTLMinutes)
	}
	if cfg.RiskHighAmount != 50000 || cfg.RiskNewBeneficiary != 25000 || cfg.RiskVelocityCount != 3 {
		t.Fatalf("unexpected risk defaults: %+v", cfg)
	}
}

func TestLoadConfig_BypassCodeClearedWhenFlagOff(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "OTP_BYPASS_ENABLED")
	setEnvWithCleanup(t, "OTP_BYPASS_CODE", "999999")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.OTPBypassEnabled {
		t.Fatal("expected bypass to stay disabled")
	}
	if cfg.OTPBypassCode != "" {
		t.Fatalf("expected bypass code to be cleared when the flag is off, got %q", cfg.OTPBypassCode)
	}
}

func TestLoadConfig_BypassRequiresACode(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "OTP_BYPASS_ENABLED", "true")
	unsetEnvWithCleanup(t, "OTP_BYPASS_CODE")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.OTPBypassEnabled {
		t.Fatal("expected bypass to be disabled when no code is configured")
	}
}

func TestLoadConfig_BypassEnabledWithCode(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "OTP_BYPASS_ENABLED", "true")
	setEnvWithCleanup(t, "OTP_BYPASS_CODE", "424242")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if !cfg.OTPBypassEnabled || cfg.OTPBypassCode != "424242" {
		t.Fatalf("expected bypass enabled with code, got enabled=%t code=%q", cfg.OTPBypassEnabled, cfg.OTPBypassCode)
	}
}

func TestLoadConfig_PortEnvOverridesServerPort(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "SERVER_PORT", "8080")
	setEnvWithCleanup(t, "PORT", "9999")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "9999" {
		t.Fatalf("expected PORT to win, got %q", cfg.ServerPort)
	}
}

func setEnvWithCleanup(t *testing.T, key string, value string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			os.Setenv(key, prev)
		} else {
			os.Unsetenv(key)
		}
	})
}

func unsetEnvWithCleanup(t *testing.T, key string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("failed to unset env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			os.Setenv(key, prev)
		}
	})
}

func TestLoadConfig_JWTClaimEnforcement(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "JWT_AUDIENCE", "banking-api")
	setEnvWithCleanup(t, "JWT_ISSUER", "https://auth.example.com")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.JWTAudience != "banking-api" {
		t.Fatalf("expected audience from env, got %q", cfg.JWTAudience)
	}
	if cfg.JWTIssuer != "https://auth.example.com" {
		t.Fatalf("expected issuer from env, got %q", cfg.JWTIssuer)
	}
}
