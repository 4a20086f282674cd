package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fentz26/teamtimer/internal/controlplane"
)

func TestParsePlanDate(t *testing.T) {
	now := time.Date(2024, 3, 6, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		input string
		want  string
	}{
		{"", "2024-03-06"},
		{"2024-03-05", "2024-03-05"},
		{"  2024-01-31 ", "2024-01-31"},
		{"yesterday", "2024-03-05"},
	}
	for _, tt := range tests {
		got, err := parsePlanDate(tt.input, now)
		if err != nil {
			t.Errorf("parsePlanDate(%q) error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parsePlanDate(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestCheckHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(controlplane.HealthResponse{OK: false, DB: "database is closed", Version: "1.0.0"})
	}))
	defer srv.Close()

	old := apiAddr
	apiAddr = srv.URL
	defer func() { apiAddr = old }()

	health, err := CheckHealth(srv.Client())
	if err == nil {
		t.Fatal("expected error for unhealthy daemon")
	}
	if health == nil || health.Version != "1.0.0" {
		t.Errorf("expected payload alongside error, got %+v", health)
	}
}
