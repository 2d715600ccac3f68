// Package templeapi is the HTTP client for the Temple web backend, which owns raid
// and roster records. All calls are POST with JSON bodies and a bearer token. The
// backend may be deployed without the Discord endpoints; a non-JSON response body is
// surfaced as ErrUnavailable so callers can stay silent instead of spamming users.
package templeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/templeashkandi/raidwatch/telemetry"
)

// ErrUnavailable marks a backend response that was not JSON, i.e. the Discord
// endpoints are not deployed yet (typically an HTML error page).
var ErrUnavailable = errors.New("temple api endpoint unavailable")

// Client calls the Temple web API.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewClient returns a Client for the given base URL and bearer token.
func NewClient(baseURL, token string) *Client {
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), Token: token}
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// PermissionVerdict is the outcome of a permission check. Success=false means the
// oracle itself could not be consulted; it is never the same thing as a denial
// (Success=true, IsRaidManager=false), and callers must not collapse the two.
type PermissionVerdict struct {
	Success       bool
	HasAccount    bool
	IsRaidManager bool
	Err           error
	StatusCode    int
}

// RaidResult is the response of the create-or-find raid call.
type RaidResult struct {
	Success  bool   `json:"success"`
	IsNew    bool   `json:"isNew"`
	RaidID   int64  `json:"raidId"`
	RaidName string `json:"raidName"`
	RaidURL  string `json:"raidUrl"`
	Error    string `json:"error"`
}

// UpdateResult is the response of the update-raid call. A non-empty Message with
// Success=true means the new report id matched the stored one (no change).
type UpdateResult struct {
	Success     bool   `json:"success"`
	RaidID      int64  `json:"raidId"`
	RaidName    string `json:"raidName"`
	RaidURL     string `json:"raidUrl"`
	NameChanged bool   `json:"nameChanged"`
	Message     string `json:"message"`
	Error       string `json:"error"`
}

// MatchedCharacter is a bench entry resolved to a known character.
type MatchedCharacter struct {
	Name  string `json:"name"`
	Class string `json:"class"`
}

// BenchResult is the response of the update-bench call.
type BenchResult struct {
	Success        bool               `json:"success"`
	RaidID         int64              `json:"raidId"`
	RaidName       string             `json:"raidName"`
	Matched        []MatchedCharacter `json:"matchedCharacters"`
	UnmatchedNames []string           `json:"unmatchedNames"`
	TotalBenched   int                `json:"totalBenchCharacters"`
	Error          string             `json:"error"`
}

// CheckPermissions asks the backend whether the Discord user has an account and
// raid-manager authority. It never returns a Go error: transport or HTTP failures
// come back as a verdict with Success=false.
func (c *Client) CheckPermissions(ctx context.Context, discordUserID string) PermissionVerdict {
	var body struct {
		HasAccount    bool `json:"hasAccount"`
		IsRaidManager bool `json:"isRaidManager"`
	}
	status, err := c.post(ctx, "check-permissions", map[string]any{"discordUserId": discordUserID}, &body)
	if err != nil {
		telemetry.LoggerWithCorr(ctx).Error("permission check failed",
			slog.String("endpoint", "check-permissions"),
			slog.String("user_id", discordUserID),
			slog.Int("status", status),
			slog.Any("err", err))
		return PermissionVerdict{Success: false, Err: err, StatusCode: status}
	}
	return PermissionVerdict{Success: true, HasAccount: body.HasAccount, IsRaidManager: body.IsRaidManager}
}

// CreateRaid creates a raid from a WCL report link, or finds the one already created
// for it. The message id ties the raid to its originating Discord message.
func (c *Client) CreateRaid(ctx context.Context, discordUserID, wclURL, discordMessageID string) (*RaidResult, error) {
	var out RaidResult
	_, err := c.post(ctx, "create-raid", map[string]any{
		"discordUserId":    discordUserID,
		"wclUrl":           wclURL,
		"discordMessageId": discordMessageID,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateRaid swaps the raid's report link for the one in an edited message.
func (c *Client) UpdateRaid(ctx context.Context, discordUserID, newWclURL, discordMessageID string) (*UpdateResult, error) {
	var out UpdateResult
	_, err := c.post(ctx, "update-raid", map[string]any{
		"discordUserId":    discordUserID,
		"newWclUrl":        newWclURL,
		"discordMessageId": discordMessageID,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateBench replaces the raid's bench roster with the given character names.
func (c *Client) UpdateBench(ctx context.Context, discordUserID string, raidID int64, names []string) (*BenchResult, error) {
	var out BenchResult
	_, err := c.post(ctx, "update-bench", map[string]any{
		"discordUserId":  discordUserID,
		"raidId":         raidID,
		"characterNames": names,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// post sends one API call and decodes the JSON response into out. It returns the
// HTTP status code when one was received. Non-2xx responses are errors; a body that
// fails to decode as JSON maps to ErrUnavailable.
func (c *Client) post(ctx context.Context, endpoint string, payload any, out any) (int, error) {
	if telemetry.GetCorrelation(ctx) == "" {
		ctx = telemetry.WithCorrelation(ctx, uuid.NewString())
	}
	ctx, span := telemetry.StartSpan(ctx, "templeapi", "templeapi."+endpoint)
	defer span.End()

	buf, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/discord/"+endpoint, bytes.NewReader(buf))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token)

	var resp *http.Response
	telemetry.TimeFunc(telemetry.BackendRequestDuration, func() {
		resp, err = c.http().Do(req)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return 0, fmt.Errorf("call %s: %w", endpoint, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("%s: HTTP %d", endpoint, resp.StatusCode)
		telemetry.RecordError(span, err)
		return resp.StatusCode, err
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		telemetry.RecordError(span, err)
		return resp.StatusCode, fmt.Errorf("read %s response: %w", endpoint, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		// HTML or empty body: the endpoint is not deployed on this backend.
		telemetry.RecordError(span, ErrUnavailable)
		return resp.StatusCode, ErrUnavailable
	}
	telemetry.SetSpanSuccess(span)
	return resp.StatusCode, nil
}
