package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/carepoint/hms/internal/config"
	"github.com/carepoint/hms/internal/platform/auth"
	"github.com/carepoint/hms/internal/platform/blobstore"
	"github.com/carepoint/hms/internal/platform/db"
	"github.com/carepoint/hms/internal/platform/store"
)

func testConfig(mode string) *config.Config {
	return &config.Config{
		Env:            "test",
		AuthMode:       mode,
		JWTKey:         strings.Repeat("k", 32),
		JWTIssuer:      "hms",
		TokenTTL:       time.Hour,
		CORSOrigins:    []string{"http://localhost:3000"},
		RequestTimeout: 5 * time.Second,
		MaxUploadBytes: 1 << 20,
		BlobBackend:    "memory",
	}
}

func testServer(t *testing.T, mode string) http.Handler {
	t.Helper()
	cfg := testConfig(mode)
	revocations := auth.NewMemoryRevocationStore()
	t.Cleanup(revocations.Close)
	return newServer(cfg, zerolog.Nop(), serverDeps{
		store:       store.New(nil),
		blobs:       blobstore.NewMemoryStore(),
		revocations: revocations,
		tokens:      auth.NewTokenIssuer([]byte(cfg.JWTKey), cfg.JWTIssuer, cfg.TokenTTL),
		signingKey:  []byte(cfg.JWTKey),
		registry:    prometheus.NewRegistry(),
		location:    time.UTC,
	})
}

func TestServer_PublicEndpoints(t *testing.T) {
	h := testServer(t, "standalone")

	for _, path := range []string{"/health", "/metrics"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "go_goroutines") && !strings.Contains(rec.Body.String(), "hms_http_requests_total") {
		t.Errorf("metrics output missing expected series")
	}
}

func TestServer_StandaloneRequiresToken(t *testing.T) {
	h := testServer(t, "standalone")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/appointments", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"error"`) {
		t.Errorf("expected the error envelope, got %s", rec.Body.String())
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
}

func TestServer_RoleGateRunsBeforeStore(t *testing.T) {
	h := testServer(t, "development")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/departments", strings.NewReader(`{"name":"Cardiology"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Dev-Role", "patient")
	req.Header.Set("X-Dev-Profile-ID", uuid.NewString())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSessionFor(t *testing.T) {
	caller := auth.Caller{UserID: uuid.New(), ProfileID: uuid.New(), Role: auth.RoleDoctor}
	got := sessionFor(auth.WithCaller(context.Background(), caller))
	want := db.Session{CallerID: caller.ProfileID.String(), Role: "doctor"}
	if got != want {
		t.Errorf("sessionFor = %+v, want %+v", got, want)
	}
	if s := sessionFor(context.Background()); s.Role != "anonymous" || s.CallerID != "" {
		t.Errorf("missing caller should bind an unprivileged role, got %+v", s)
	}
}

func TestResolveSigningKey(t *testing.T) {
	key, generated, err := resolveSigningKey("configured-key-configured-key-32")
	if err != nil || generated || string(key) != "configured-key-configured-key-32" {
		t.Errorf("configured key: %q %v %v", key, generated, err)
	}
	a, generated, err := resolveSigningKey("")
	if err != nil || !generated || len(a) != 32 {
		t.Fatalf("generated key: len=%d %v %v", len(a), generated, err)
	}
	b, _, _ := resolveSigningKey("")
	if bytes.Equal(a, b) {
		t.Error("generated keys should differ")
	}
}

func TestNewBlobStore(t *testing.T) {
	cfg := testConfig("development")
	s, err := newBlobStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("memory backend: %v", err)
	}
	if _, ok := s.(*blobstore.MemoryStore); !ok {
		t.Errorf("expected a memory store, got %T", s)
	}

	cfg.BlobBackend = "ftp"
	if _, err := newBlobStore(context.Background(), cfg); err == nil {
		t.Error("expected an error for an unknown backend")
	}
}

func TestFormatStatus(t *testing.T) {
	tests := []struct {
		st   db.MigrationStatus
		want string
	}{
		{db.MigrationStatus{}, "no migrations applied"},
		{db.MigrationStatus{Version: 2, Applied: true}, "version 2"},
		{db.MigrationStatus{Version: 2, Applied: true, Dirty: true}, "version 2 (dirty: fix the failed migration, then run migrate up again)"},
	}
	for _, tt := range tests {
		if got := formatStatus(tt.st); got != tt.want {
			t.Errorf("formatStatus(%+v) = %q, want %q", tt.st, got, tt.want)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := versionCmd()
	cmd.SetOut(&out)
	cmd.SetArgs(nil)
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out.String()) != version {
		t.Errorf("version output = %q", out.String())
	}
}
