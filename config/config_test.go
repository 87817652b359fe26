package config

import "testing"

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "LOG_LEVEL", "OTEL_ENABLED", "OTEL_SAMPLING_RATE", "RATE_LIMIT_PER_MINUTE", "BCRYPT_COST"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	if cfg.Port != "8080" {
		t.Errorf("want port 8080, got %s", cfg.Port)
	}
	if cfg.LogLevel != "INFO" {
		t.Errorf("want log level INFO, got %s", cfg.LogLevel)
	}
	if cfg.OtelEnabled {
		t.Error("want otel disabled by default")
	}
	if cfg.OtelSamplingRate != 1.0 {
		t.Errorf("want sampling rate 1.0, got %v", cfg.OtelSamplingRate)
	}
	if cfg.RateLimitPerMinute != 0 {
		t.Errorf("want rate limit 0, got %d", cfg.RateLimitPerMinute)
	}
	if cfg.BcryptCost != 10 {
		t.Errorf("want bcrypt cost 10, got %d", cfg.BcryptCost)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_SAMPLING_RATE", "0.25")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "120")
	t.Setenv("BCRYPT_COST", "4")

	cfg := Load()
	if cfg.Port != "9090" {
		t.Errorf("want port 9090, got %s", cfg.Port)
	}
	if !cfg.OtelEnabled {
		t.Error("want otel enabled")
	}
	if cfg.OtelSamplingRate != 0.25 {
		t.Errorf("want sampling rate 0.25, got %v", cfg.OtelSamplingRate)
	}
	if cfg.RateLimitPerMinute != 120 {
		t.Errorf("want rate limit 120, got %d", cfg.RateLimitPerMinute)
	}
	if cfg.BcryptCost != 4 {
		t.Errorf("want bcrypt cost 4, got %d", cfg.BcryptCost)
	}
}
