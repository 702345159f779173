package config

import (
	"testing"
	"time"
)

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("GEMINI_API_KEY", "key")

	if _, err := Load(); err == nil {
		t.Fatal("Expected error when DATABASE_URL is missing")
	}
}

func TestLoad_RequiresGeminiKey(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/readings")
	t.Setenv("GEMINI_API_KEY", "")

	if _, err := Load(); err == nil {
		t.Fatal("Expected error when GEMINI_API_KEY is missing")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/readings")
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("RABBITMQ_URL", "")
	t.Setenv("STATIC_URL_PREFIX", "/files/")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, ,http://b.test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ServicePort != 3000 {
		t.Errorf("Expected port 3000, got %d", cfg.ServicePort)
	}
	if cfg.Gemini.Timeout != 60*time.Second {
		t.Errorf("Expected 60s inference timeout, got %v", cfg.Gemini.Timeout)
	}
	if cfg.HTTP.MaxBodyBytes != 50<<20 {
		t.Errorf("Expected 50MB body limit, got %d", cfg.HTTP.MaxBodyBytes)
	}
	if cfg.Static.URLPrefix != "/files" {
		t.Errorf("Expected trimmed prefix /files, got %q", cfg.Static.URLPrefix)
	}
	if len(cfg.HTTP.AllowedOrigins) != 2 {
		t.Errorf("Expected 2 origins, got %v", cfg.HTTP.AllowedOrigins)
	}
	if cfg.RabbitMQ.Enabled() {
		t.Error("Expected RabbitMQ to be disabled without URL")
	}
}
