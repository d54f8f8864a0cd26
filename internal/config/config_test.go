package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "LOG_LEVEL", "LOG_ENCODING", "ORDER_BOOK_FILE", "ORDER_BOOK_LIMIT",
		"BASE_BALANCE", "QUOTE_BALANCE", "READ_TIMEOUT", "WRITE_TIMEOUT",
		"IDLE_TIMEOUT", "SHUTDOWN_TIMEOUT", "CORS_ALLOWED_ORIGINS", "CONFIG_FILE",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("ORDER_BOOK_FILE", "order_books_data")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.LogEncoding != "json" {
		t.Errorf("LogEncoding = %q, want %q", cfg.LogEncoding, "json")
	}
	if cfg.OrderBookFile != "order_books_data" {
		t.Errorf("OrderBookFile = %q, want %q", cfg.OrderBookFile, "order_books_data")
	}
	if cfg.OrderBookLimit != 0 {
		t.Errorf("OrderBookLimit = %d, want 0", cfg.OrderBookLimit)
	}
	if cfg.BaseBalance != 5 {
		t.Errorf("BaseBalance = %v, want 5", cfg.BaseBalance)
	}
	if cfg.QuoteBalance != 10000 {
		t.Errorf("QuoteBalance = %v, want 10000", cfg.QuoteBalance)
	}
	if cfg.ReadTimeout != 5*time.Second {
		t.Errorf("ReadTimeout = %v, want 5s", cfg.ReadTimeout)
	}
	if cfg.WriteTimeout != 10*time.Second {
		t.Errorf("WriteTimeout = %v, want 10s", cfg.WriteTimeout)
	}
	if cfg.IdleTimeout != 60*time.Second {
		t.Errorf("IdleTimeout = %v, want 60s", cfg.IdleTimeout)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", cfg.ShutdownTimeout)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Errorf("CORSAllowedOrigins = %v, want [*]", cfg.CORSAllowedOrigins)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_ENCODING", "console")
	t.Setenv("ORDER_BOOK_FILE", "/data/books")
	t.Setenv("ORDER_BOOK_LIMIT", "3")
	t.Setenv("BASE_BALANCE", "1.5")
	t.Setenv("QUOTE_BALANCE", "2500")
	t.Setenv("READ_TIMEOUT", "2s")
	t.Setenv("WRITE_TIMEOUT", "5s")
	t.Setenv("IDLE_TIMEOUT", "30s")
	t.Setenv("SHUTDOWN_TIMEOUT", "15s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if cfg.LogEncoding != "console" {
		t.Errorf("LogEncoding = %q, want %q", cfg.LogEncoding, "console")
	}
	if cfg.OrderBookLimit != 3 {
		t.Errorf("OrderBookLimit = %d, want 3", cfg.OrderBookLimit)
	}
	if cfg.BaseBalance != 1.5 {
		t.Errorf("BaseBalance = %v, want 1.5", cfg.BaseBalance)
	}
	if cfg.QuoteBalance != 2500 {
		t.Errorf("QuoteBalance = %v, want 2500", cfg.QuoteBalance)
	}
	if cfg.ReadTimeout != 2*time.Second {
		t.Errorf("ReadTimeout = %v, want 2s", cfg.ReadTimeout)
	}
	if cfg.ShutdownTimeout != 15*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 15s", cfg.ShutdownTimeout)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Errorf("CORSAllowedOrigins = %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "order_book_file: books.txt\nport: 7070\nquote_balance: 500\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "7171")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.OrderBookFile != "books.txt" {
		t.Errorf("OrderBookFile = %q, want %q", cfg.OrderBookFile, "books.txt")
	}
	if cfg.QuoteBalance != 500 {
		t.Errorf("QuoteBalance = %v, want 500", cfg.QuoteBalance)
	}
	// Environment wins over the file.
	if cfg.Port != 7171 {
		t.Errorf("Port = %d, want 7171", cfg.Port)
	}
}

func TestLoad_MissingOrderBookFile(t *testing.T) {
	clearEnv(t)

	if _, err := Load(); err == nil {
		t.Fatal("expected error when ORDER_BOOK_FILE is unset")
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("ORDER_BOOK_FILE", "books")
	t.Setenv("PORT", "not-a-number")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for invalid PORT")
	}
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	clearEnv(t)
	t.Setenv("ORDER_BOOK_FILE", "books")
	t.Setenv("LOG_LEVEL", "verbose")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for invalid LOG_LEVEL")
	}
}

func TestLoad_NegativeBalance(t *testing.T) {
	clearEnv(t)
	t.Setenv("ORDER_BOOK_FILE", "books")
	t.Setenv("QUOTE_BALANCE", "-1")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for negative QUOTE_BALANCE")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	keys := []string{"READ_TIMEOUT", "WRITE_TIMEOUT", "IDLE_TIMEOUT", "SHUTDOWN_TIMEOUT"}

	for _, key := range keys {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("ORDER_BOOK_FILE", "books")
			t.Setenv(key, "not-a-duration")

			_, err := Load()
			if err == nil {
				t.Fatalf("expected error for invalid %s", key)
			}
		})
	}
}
