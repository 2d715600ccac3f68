package templeapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL, "test-token")
	c.HTTPClient = srv.Client()
	return c
}

func requireAuth(t *testing.T, r *http.Request) {
	t.Helper()
	if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
		t.Errorf("Authorization = %q, want Bearer test-token", got)
	}
	if got := r.Header.Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}
}

func TestCheckPermissions(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		response   string
		want       PermissionVerdict
	}{
		{
			name:       "raid manager",
			statusCode: http.StatusOK,
			response:   `{"hasAccount":true,"isRaidManager":true}`,
			want:       PermissionVerdict{Success: true, HasAccount: true, IsRaidManager: true},
		},
		{
			name:       "account without authority is a denial not an outage",
			statusCode: http.StatusOK,
			response:   `{"hasAccount":true,"isRaidManager":false}`,
			want:       PermissionVerdict{Success: true, HasAccount: true, IsRaidManager: false},
		},
		{
			name:       "no account",
			statusCode: http.StatusOK,
			response:   `{"hasAccount":false,"isRaidManager":false}`,
			want:       PermissionVerdict{Success: true},
		},
		{
			name:       "server error is an outage",
			statusCode: http.StatusInternalServerError,
			response:   `boom`,
			want:       PermissionVerdict{Success: false, StatusCode: http.StatusInternalServerError},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				requireAuth(t, r)
				if r.URL.Path != "/api/discord/check-permissions" {
					t.Errorf("path = %s", r.URL.Path)
				}
				var body map[string]string
				_ = json.NewDecoder(r.Body).Decode(&body)
				if body["discordUserId"] != "user-1" {
					t.Errorf("discordUserId = %q", body["discordUserId"])
				}
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.response))
			})

			got := c.CheckPermissions(context.Background(), "user-1")
			if got.Success != tt.want.Success || got.HasAccount != tt.want.HasAccount || got.IsRaidManager != tt.want.IsRaidManager {
				t.Errorf("verdict = %+v, want %+v", got, tt.want)
			}
			if got.StatusCode != tt.want.StatusCode && !tt.want.Success {
				t.Errorf("StatusCode = %d, want %d", got.StatusCode, tt.want.StatusCode)
			}
			if !tt.want.Success && got.Err == nil {
				t.Error("outage verdict should carry the underlying error")
			}
		})
	}
}

func TestCheckPermissionsTransportFailure(t *testing.T) {
	c := NewClient("http://127.0.0.1:0", "test-token")
	got := c.CheckPermissions(context.Background(), "user-1")
	if got.Success {
		t.Error("transport failure must yield Success=false")
	}
	if got.IsRaidManager || got.HasAccount {
		t.Error("outage verdict must not grant anything")
	}
}

func TestCreateRaid(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requireAuth(t, r)
		if r.URL.Path != "/api/discord/create-raid" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["wclUrl"] != "https://vanilla.warcraftlogs.com/reports/AbCdEf1234567890" {
			t.Errorf("wclUrl = %v", body["wclUrl"])
		}
		if body["discordMessageId"] != "msg-1" {
			t.Errorf("discordMessageId = %v", body["discordMessageId"])
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true, "isNew": true, "raidId": 42,
			"raidName": "MC Tuesday", "raidUrl": "https://templeashkandi.com/raids/42",
		})
	})

	res, err := c.CreateRaid(context.Background(), "user-1", "https://vanilla.warcraftlogs.com/reports/AbCdEf1234567890", "msg-1")
	if err != nil {
		t.Fatalf("CreateRaid: %v", err)
	}
	if !res.Success || !res.IsNew || res.RaidID != 42 || res.RaidName != "MC Tuesday" {
		t.Errorf("result = %+v", res)
	}
}

func TestUpdateRaidUnchanged(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true, "message": "No change detected",
		})
	})
	res, err := c.UpdateRaid(context.Background(), "user-1", "https://vanilla.warcraftlogs.com/reports/AbCdEf1234567890", "msg-1")
	if err != nil {
		t.Fatalf("UpdateRaid: %v", err)
	}
	if !res.Success || res.Message == "" {
		t.Errorf("expected unchanged result, got %+v", res)
	}
}

func TestUpdateBench(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requireAuth(t, r)
		var body struct {
			RaidID int64    `json:"raidId"`
			Names  []string `json:"characterNames"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.RaidID != 42 {
			t.Errorf("raidId = %d", body.RaidID)
		}
		if len(body.Names) != 2 || body.Names[0] != "Carol" || body.Names[1] != "Dave" {
			t.Errorf("characterNames = %v", body.Names)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true, "raidId": 42, "raidName": "MC Tuesday",
			"matchedCharacters":    []map[string]string{{"name": "Carol", "class": "Mage"}},
			"unmatchedNames":       []string{"Dave"},
			"totalBenchCharacters": 3,
		})
	})

	res, err := c.UpdateBench(context.Background(), "user-1", 42, []string{"Carol", "Dave"})
	if err != nil {
		t.Fatalf("UpdateBench: %v", err)
	}
	if len(res.Matched) != 1 || res.Matched[0].Class != "Mage" {
		t.Errorf("Matched = %v", res.Matched)
	}
	if len(res.UnmatchedNames) != 1 || res.UnmatchedNames[0] != "Dave" {
		t.Errorf("UnmatchedNames = %v", res.UnmatchedNames)
	}
	if res.TotalBenched != 3 {
		t.Errorf("TotalBenched = %d", res.TotalBenched)
	}
}

func TestNonJSONBodyIsErrUnavailable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>404 page</html>"))
	})
	_, err := c.UpdateRaid(context.Background(), "user-1", "url", "msg-1")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func TestHTTPErrorStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := c.CreateRaid(context.Background(), "user-1", "url", "msg-1")
	if err == nil {
		t.Fatal("expected error on 502")
	}
	if errors.Is(err, ErrUnavailable) {
		t.Error("HTTP error should not map to ErrUnavailable")
	}
}
