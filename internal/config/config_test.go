package config

import (
	"errors"
	"testing"
)

func TestFinalizeUnknownRegion(t *testing.T) {
	cfg := &Config{Region: "mars", Token: "tok"}
	if err := cfg.Finalize(); err == nil {
		t.Fatal("expected error for unknown region")
	}
}

func TestFinalizeRequiresToken(t *testing.T) {
	cfg := &Config{Region: "eu", GatewayKind: "http"}
	if err := cfg.Finalize(); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("err = %v, want ErrMissingToken", err)
	}
}

func TestFinalizeMockNeedsNoToken(t *testing.T) {
	cfg := &Config{Region: "eu", GatewayKind: "mock"}
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
}

func TestFinalizeRegionPresets(t *testing.T) {
	cfg := &Config{Region: "US", Token: "tok"}
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if cfg.DirectoryBaseURL != "https://admin.us.example.invalid" {
		t.Fatalf("directory url = %q", cfg.DirectoryBaseURL)
	}
	if cfg.IDPBaseURL != "https://idp.us.example.invalid" {
		t.Fatalf("idp url = %q", cfg.IDPBaseURL)
	}
	if cfg.RequestRPS != 4.0 {
		t.Fatalf("rps default = %v", cfg.RequestRPS)
	}
}

func TestFinalizeKeepsOverrides(t *testing.T) {
	cfg := &Config{
		Region:           "eu",
		Token:            "tok",
		DirectoryBaseURL: "http://localhost:8080/",
		IDPBaseURL:       "http://localhost:9090",
		RequestRPS:       1.5,
	}
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if cfg.DirectoryBaseURL != "http://localhost:8080" {
		t.Fatalf("directory url = %q (trailing slash must be trimmed)", cfg.DirectoryBaseURL)
	}
	if cfg.IDPBaseURL != "http://localhost:9090" || cfg.RequestRPS != 1.5 {
		t.Fatalf("overrides lost: %+v", cfg)
	}
}
