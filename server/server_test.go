package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/templeashkandi/raidwatch/telemetry"
)

func testStatus(connected bool) StatusFunc {
	return func() Status {
		return Status{
			Uptime:           "5m0s",
			Channel:          "chan-1",
			GatewayConnected: connected,
			DedupEntries:     7,
		}
	}
}

func TestHealthz(t *testing.T) {
	telemetry.Init()
	srv := httptest.NewServer(NewMux(testStatus(true)))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if corr := resp.Header.Get("X-Correlation-Id"); corr == "" {
		t.Error("missing X-Correlation-Id header")
	}
}

func TestReadyz(t *testing.T) {
	telemetry.Init()
	tests := []struct {
		name       string
		connected  bool
		wantStatus int
	}{
		{"connected", true, http.StatusOK},
		{"disconnected", false, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(NewMux(testStatus(tt.connected)))
			t.Cleanup(srv.Close)

			resp, err := http.Get(srv.URL + "/readyz")
			if err != nil {
				t.Fatalf("GET /readyz: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestStatusEndpoint(t *testing.T) {
	telemetry.Init()
	srv := httptest.NewServer(NewMux(testStatus(true)))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatalf("GET /status: %v", err)
	}
	defer resp.Body.Close()

	var got Status
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Channel != "chan-1" || got.DedupEntries != 7 || !got.GatewayConnected {
		t.Errorf("status = %+v", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	telemetry.Init()
	srv := httptest.NewServer(NewMux(testStatus(true)))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestCorrelationIDPassthrough(t *testing.T) {
	telemetry.Init()
	srv := httptest.NewServer(NewMux(testStatus(true)))
	t.Cleanup(srv.Close)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	req.Header.Set("X-Correlation-Id", "corr-123")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get("X-Correlation-Id"); got != "corr-123" {
		t.Errorf("X-Correlation-Id = %q, want corr-123", got)
	}
}
