package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/smartzfindery/storefront-backend/pkg/config"
)

type pinger struct {
	err error
}

func (p pinger) Ping(context.Context) error {
	return p.err
}

func healthConfig() *config.Config {
	return &config.Config{App: config.AppConfig{Env: "test"}}
}

func TestHealthLiveSetsEnvHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()

	HealthLive(healthConfig()).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Storefront-Env") != "test" {
		t.Fatalf("expected env header, got %q", rec.Header().Get("X-Storefront-Env"))
	}
}

func TestHealthReadyAllDependenciesUp(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()

	HealthReady(healthConfig(), testLogger(), pinger{}, pinger{}).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var payload struct {
		Success bool              `json:"success"`
		Data    map[string]string `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Data["status"] != "ready" || payload.Data["database"] != "ok" || payload.Data["redis"] != "ok" {
		t.Fatalf("unexpected checks: %+v", payload.Data)
	}
}

func TestHealthReadyReportsEveryFailedDependency(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()

	HealthReady(
		healthConfig(),
		testLogger(),
		pinger{err: errors.New("db down")},
		pinger{err: errors.New("redis down")},
	).ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}

	var payload struct {
		Success bool `json:"success"`
		Details struct {
			Checks map[string]string `json:"checks"`
		} `json:"details"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Success {
		t.Fatal("expected success=false")
	}
	if payload.Details.Checks["database"] != "down" || payload.Details.Checks["redis"] != "down" {
		t.Fatalf("expected both checks reported down, got %+v", payload.Details.Checks)
	}
}
