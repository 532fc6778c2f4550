package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Dispatch.MaxAttempts != 3 {
		t.Errorf("Dispatch.MaxAttempts = %d, want 3", cfg.Dispatch.MaxAttempts)
	}
	wantBackoff := []time.Duration{60 * time.Second, 300 * time.Second, 600 * time.Second}
	if len(cfg.Dispatch.RetryBackoff) != len(wantBackoff) {
		t.Fatalf("RetryBackoff = %v, want %v", cfg.Dispatch.RetryBackoff, wantBackoff)
	}
	for i, d := range wantBackoff {
		if cfg.Dispatch.RetryBackoff[i] != d {
			t.Errorf("RetryBackoff[%d] = %v, want %v", i, cfg.Dispatch.RetryBackoff[i], d)
		}
	}
	if cfg.Storage.URLExpiry != 15*time.Minute {
		t.Errorf("Storage.URLExpiry = %v, want 15m", cfg.Storage.URLExpiry)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DISPATCH_MAX_ATTEMPTS", "5")
	t.Setenv("DISPATCH_RETRY_BACKOFF", "1s,2s")
	t.Setenv("EMAIL_FAILOVER_ENABLED", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Dispatch.MaxAttempts != 5 {
		t.Errorf("Dispatch.MaxAttempts = %d, want 5", cfg.Dispatch.MaxAttempts)
	}
	if len(cfg.Dispatch.RetryBackoff) != 2 || cfg.Dispatch.RetryBackoff[0] != time.Second || cfg.Dispatch.RetryBackoff[1] != 2*time.Second {
		t.Errorf("RetryBackoff = %v, want [1s 2s]", cfg.Dispatch.RetryBackoff)
	}
	if cfg.Email.EnableFailover {
		t.Error("EnableFailover = true, want false")
	}
}

func TestLoad_MalformedBackoffFallsBack(t *testing.T) {
	t.Setenv("DISPATCH_RETRY_BACKOFF", "soon,later")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned %v", err)
	}
	if len(cfg.Dispatch.RetryBackoff) != 3 {
		t.Errorf("RetryBackoff = %v, want the default three waits", cfg.Dispatch.RetryBackoff)
	}
}

func TestLoad_RejectsZeroAttempts(t *testing.T) {
	t.Setenv("DISPATCH_MAX_ATTEMPTS", "0")

	if _, err := Load(); err == nil {
		t.Error("expected an error for zero max attempts")
	}
}

func TestDSN(t *testing.T) {
	c := DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "app",
		Password: "secret",
		DBName:   "contracts",
		SSLMode:  "require",
	}
	want := "host=db.internal port=5433 user=app password=secret dbname=contracts sslmode=require"
	if got := c.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}
