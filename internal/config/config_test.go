package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.GinMode != "release" {
		t.Errorf("GinMode = %q, want release", cfg.GinMode)
	}
	if cfg.DailyMessageLimit != 5 {
		t.Errorf("DailyMessageLimit = %d, want 5", cfg.DailyMessageLimit)
	}
	if cfg.CacheTTL != 300*time.Second {
		t.Errorf("CacheTTL = %v, want 5m", cfg.CacheTTL)
	}
	if cfg.Queue.VisibilityTimeout != 60*time.Second {
		t.Errorf("VisibilityTimeout = %v, want 60s", cfg.Queue.VisibilityTimeout)
	}
	if cfg.Queue.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", cfg.Queue.MaxAttempts)
	}
	if cfg.Queue.Concurrency != 4 {
		t.Errorf("Concurrency = %d, want 4", cfg.Queue.Concurrency)
	}
	if cfg.AI.Model != "gpt-4o-mini" {
		t.Errorf("AI.Model = %q", cfg.AI.Model)
	}
	if cfg.Auth.JWTTTL != 24*time.Hour {
		t.Errorf("JWTTTL = %v, want 24h", cfg.Auth.JWTTTL)
	}
	if cfg.APIBasePath != "/api/v1" {
		t.Errorf("APIBasePath = %q", cfg.APIBasePath)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DAILY_MESSAGE_LIMIT", "12")
	t.Setenv("CACHE_TTL", "90s")
	t.Setenv("QUEUE_MAX_ATTEMPTS", "7")
	t.Setenv("WORKER_CONCURRENCY", "2")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9090" || cfg.LogLevel != "debug" {
		t.Errorf("server overrides not applied: %+v", cfg)
	}
	if cfg.DailyMessageLimit != 12 {
		t.Errorf("DailyMessageLimit = %d, want 12", cfg.DailyMessageLimit)
	}
	if cfg.CacheTTL != 90*time.Second {
		t.Errorf("CacheTTL = %v, want 90s", cfg.CacheTTL)
	}
	if cfg.Queue.MaxAttempts != 7 || cfg.Queue.Concurrency != 2 {
		t.Errorf("queue overrides not applied: %+v", cfg.Queue)
	}
	if len(cfg.CORS.AllowedOrigins) != 2 || cfg.CORS.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("AllowedOrigins = %v", cfg.CORS.AllowedOrigins)
	}
}

func TestLoad_Normalization(t *testing.T) {
	t.Setenv("LOG_LEVEL", "WARNING")
	t.Setenv("GIN_MODE", "bogus")
	t.Setenv("API_BASE_PATH", "api/v2/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn", cfg.LogLevel)
	}
	if cfg.GinMode != "release" {
		t.Errorf("GinMode = %q, want release", cfg.GinMode)
	}
	if cfg.APIBasePath != "/api/v2" {
		t.Errorf("APIBasePath = %q, want /api/v2", cfg.APIBasePath)
	}
}

func TestLoad_ValidationFailures(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"bad log level", "LOG_LEVEL", "verbose"},
		{"zero daily limit", "DAILY_MESSAGE_LIMIT", "0"},
		{"zero max attempts", "QUEUE_MAX_ATTEMPTS", "0"},
		{"zero concurrency", "WORKER_CONCURRENCY", "0"},
		{"negative rate", "RATE_RPS", "-1"},
		{"sample ratio out of range", "OTEL_TRACES_SAMPLER_ARG", "1.5"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			if _, err := Load(); err == nil {
				t.Fatalf("%s=%s should fail validation", tc.key, tc.value)
			}
		})
	}
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("DAILY_MESSAGE_LIMIT", "many")
	t.Setenv("CACHE_TTL", "soon")
	t.Setenv("LOG_PRETTY", "kinda")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DailyMessageLimit != 5 || cfg.CacheTTL != 300*time.Second || cfg.LogPretty {
		t.Errorf("malformed values must fall back to defaults: %+v", cfg)
	}
}
