package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/cfxstock/botfleet/internal/wlsc"
)

type fakeFacade struct {
	spawnErr     error
	heartbeatErr error
	spawnCalls   []wlsc.License
	heartbeatCalls []wlsc.License
}

func (f *fakeFacade) Spawn(ctx context.Context, l wlsc.License) error {
	f.spawnCalls = append(f.spawnCalls, l)
	return f.spawnErr
}

func (f *fakeFacade) Heartbeat(l wlsc.License) error {
	f.heartbeatCalls = append(f.heartbeatCalls, l)
	return f.heartbeatErr
}

func TestHandler_Heartbeat_Success(t *testing.T) {
	facade := &fakeFacade{}
	h := NewHandler(facade)

	router := chi.NewRouter()
	router.Get("/heartbeat/{cfx_license}", h.Heartbeat)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/heartbeat/lic-1", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(facade.spawnCalls) != 1 || facade.spawnCalls[0] != wlsc.License("lic-1") {
		t.Fatalf("expected Spawn called with lic-1, got %v", facade.spawnCalls)
	}
	if len(facade.heartbeatCalls) != 1 {
		t.Fatalf("expected Heartbeat called once, got %v", facade.heartbeatCalls)
	}
}

func TestHandler_Heartbeat_ServerNotFound(t *testing.T) {
	facade := &fakeFacade{spawnErr: wlsc.ErrServerNotFound}
	h := NewHandler(facade)

	router := chi.NewRouter()
	router.Get("/heartbeat/{cfx_license}", h.Heartbeat)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/heartbeat/missing", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var body errorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("expected a JSON error envelope: %v", err)
	}
	if body.Status != http.StatusNotFound {
		t.Fatalf("expected envelope status 404, got %d", body.Status)
	}
	if len(facade.heartbeatCalls) != 0 {
		t.Fatal("expected Heartbeat not called when Spawn fails")
	}
}

func TestHandler_Heartbeat_TooFrequent(t *testing.T) {
	facade := &fakeFacade{heartbeatErr: wlsc.ErrHeartbeatTooFrequent}
	h := NewHandler(facade)

	router := chi.NewRouter()
	router.Get("/heartbeat/{cfx_license}", h.Heartbeat)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/heartbeat/lic-1", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandler_Healthz(t *testing.T) {
	h := NewHandler(&fakeFacade{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	h.Healthz(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
