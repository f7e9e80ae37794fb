package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/amishk599/jobagg/internal/config"
)

func TestCheckWritableDir(t *testing.T) {
	if err := checkWritableDir(t.TempDir()); err != nil {
		t.Errorf("temp dir: %v", err)
	}
	if err := checkWritableDir(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected an error for a missing directory")
	}
}

func TestSetupChecksReportEachFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"models":[{"name":"mistral:7b"}]}`))
	}))
	defer srv.Close()

	cfg := &config.Config{}
	cfg.Extraction.Provider = "ollama"
	cfg.Extraction.BaseURL = srv.URL
	cfg.Extraction.Model = "llama3.1"
	cfg.Database.Path = filepath.Join(t.TempDir(), "jobs.db")
	cfg.Sources = []config.SourceConfig{{Name: "wa", Type: config.SourceWhatsAppWeb, Enabled: true}}

	browserCalls := 0
	checks := setupChecks(cfg, srv.Client(), func() error {
		browserCalls++
		return errors.New("driver not installed")
	})
	if len(checks) != 3 {
		t.Fatalf("got %d checks, want 3", len(checks))
	}

	var out bytes.Buffer
	err := runSetupChecks(context.Background(), &out, checks)
	if err == nil || !strings.Contains(err.Error(), "2 of 3") {
		t.Errorf("err = %v, want 2 of 3 failed", err)
	}
	if browserCalls != 1 {
		t.Errorf("browser check ran %d times", browserCalls)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 ||
		!strings.HasPrefix(lines[0], "FAIL  ollama model llama3.1") ||
		!strings.HasPrefix(lines[1], "OK    database directory") ||
		!strings.HasPrefix(lines[2], "FAIL  playwright driver") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestSetupChecksPassWithoutLLM(t *testing.T) {
	cfg := &config.Config{}
	cfg.Extraction.Provider = "none"
	cfg.Database.Path = filepath.Join(t.TempDir(), "jobs.db")

	checks := setupChecks(cfg, http.DefaultClient, func() error {
		t.Error("browser check should not run without a whatsapp_web source")
		return nil
	})
	var out bytes.Buffer
	if err := runSetupChecks(context.Background(), &out, checks); err != nil {
		t.Errorf("unexpected error: %v\n%s", err, out.String())
	}
}
