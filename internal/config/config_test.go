package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV", "production")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %s, want 8080", cfg.Port)
	}
	if cfg.StoreBackend != BackendSQL {
		t.Errorf("StoreBackend = %s, want sql", cfg.StoreBackend)
	}
	if cfg.RetryBaseDelay != time.Second {
		t.Errorf("RetryBaseDelay = %v, want 1s", cfg.RetryBaseDelay)
	}
	if cfg.RetryMaxAttempts != 3 {
		t.Errorf("RetryMaxAttempts = %d, want 3", cfg.RetryMaxAttempts)
	}
	if len(cfg.CORSAllowedOrigins) != 2 {
		t.Errorf("expected 2 default CORS origins, got %v", cfg.CORSAllowedOrigins)
	}
	if !cfg.IsProduction() {
		t.Error("expected production mode")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("PORT", "9090")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://shop.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Port = %s, want 9090", cfg.Port)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Errorf("SessionTTL = %v, want 30m", cfg.SessionTTL)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "https://shop.example" {
		t.Errorf("unexpected origins %v", cfg.CORSAllowedOrigins)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"sql ok", Config{StoreBackend: "SQL"}, false},
		{"rest without url", Config{StoreBackend: "rest"}, true},
		{"rest ok", Config{StoreBackend: "rest", SupabaseURL: "https://x.supabase.co", SupabaseAnonKey: "k"}, false},
		{"unknown backend", Config{StoreBackend: "mongo"}, true},
		{"negative retries", Config{StoreBackend: "sql", RetryMaxAttempts: -1}, true},
		{"bad snapshot hour", Config{StoreBackend: "sql", SnapshotHour: 24}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
