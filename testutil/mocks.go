// Package testutil provides reusable test doubles for the Temple web API.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// MockTempleServer mocks the Temple web API Discord endpoints.
type MockTempleServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc

	mu    sync.Mutex
	calls map[string]int
}

// NewMockTempleServer creates a mock backend. Unhandled paths return 404.
func NewMockTempleServer(t *testing.T) *MockTempleServer {
	t.Helper()
	m := &MockTempleServer{
		Handlers: make(map[string]http.HandlerFunc),
		calls:    make(map[string]int),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.calls[r.URL.Path]++
		m.mu.Unlock()
		if handler, ok := m.Handlers[r.URL.Path]; ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// Calls returns how many requests hit the given endpoint path.
func (m *MockTempleServer) Calls(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[path]
}

// MockPermissions installs a check-permissions handler.
func (m *MockTempleServer) MockPermissions(hasAccount, isRaidManager bool) {
	m.Handlers["/api/discord/check-permissions"] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]bool{
			"hasAccount":    hasAccount,
			"isRaidManager": isRaidManager,
		})
	}
}

// MockPermissionsOutage makes the permission endpoint fail with the given status.
func (m *MockTempleServer) MockPermissionsOutage(status int) {
	m.Handlers["/api/discord/check-permissions"] = func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "oracle down", status)
	}
}

// MockCreateRaid installs a create-raid handler returning the given raid.
func (m *MockTempleServer) MockCreateRaid(isNew bool, raidID int64, raidName, raidURL string) {
	m.Handlers["/api/discord/create-raid"] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true, "isNew": isNew, "raidId": raidID,
			"raidName": raidName, "raidUrl": raidURL,
		})
	}
}

// MockUpdateBench installs an update-bench handler.
func (m *MockTempleServer) MockUpdateBench(raidID int64, raidName string, matched []map[string]string, unmatched []string, total int) {
	m.Handlers["/api/discord/update-bench"] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true, "raidId": raidID, "raidName": raidName,
			"matchedCharacters":    matched,
			"unmatchedNames":       unmatched,
			"totalBenchCharacters": total,
		})
	}
}
