package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mkovalev/newsedge/internal/adapters/config"
	"github.com/mkovalev/newsedge/internal/monitor"
	"github.com/mkovalev/newsedge/pkg/models"
)

type emptyNews struct{}

func (emptyNews) FetchAll(ctx context.Context, limit int) []models.NewsItem { return nil }

func testMonitor(t *testing.T) *monitor.Monitor {
	t.Helper()
	return monitor.New(&config.MonitorConfig{
		PollInterval:       time.Minute,
		DedupCapacity:      16,
		MarketsPerHeadline: 3,
	}, monitor.Deps{News: emptyNews{}})
}

func TestHandleHealth(t *testing.T) {
	s := NewServer("0", testMonitor(t), []string{"kalshi"})

	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("liveness status = %d, want %d", rec.Code, http.StatusOK)
	}

	var status HealthStatus
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if status.Status != "healthy" {
		t.Errorf("status = %q, want healthy", status.Status)
	}
	if status.Uptime == "" {
		t.Error("uptime missing from liveness response")
	}
}

func TestHandleReadiness(t *testing.T) {
	s := NewServer("0", testMonitor(t), []string{"kalshi", "polymarket"})

	t.Run("not ready before startup finishes", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.handleReadiness(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("readiness status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
		}

		var status ReadinessStatus
		if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if status.Ready {
			t.Error("ready = true before SetReady")
		}
	})

	t.Run("ready after SetReady", func(t *testing.T) {
		s.SetReady(true)

		rec := httptest.NewRecorder()
		s.handleReadiness(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("readiness status = %d, want %d", rec.Code, http.StatusOK)
		}

		var status ReadinessStatus
		if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if !status.Ready {
			t.Error("ready = false after SetReady(true)")
		}
		if status.Monitor.State != string(monitor.StateIdle) {
			t.Errorf("monitor state = %q, want %q", status.Monitor.State, monitor.StateIdle)
		}
		if status.Checks["venue:kalshi"] != "enabled" || status.Checks["venue:polymarket"] != "enabled" {
			t.Errorf("venue checks incomplete: %v", status.Checks)
		}
		if status.Checks["monitor"] != string(monitor.StateIdle) {
			t.Errorf("monitor check = %q, want %q", status.Checks["monitor"], monitor.StateIdle)
		}
	})

	t.Run("not ready once stopped", func(t *testing.T) {
		mon := testMonitor(t)
		mon.Start(context.Background())
		stopped := NewServer("0", mon, nil)
		stopped.SetReady(true)
		mon.Stop(time.Second)

		rec := httptest.NewRecorder()
		stopped.handleReadiness(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("readiness status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
		}
	})
}
