// Package gateway fronts the external monitoring backend: a typed client
// for the endpoints the gateway itself consumes, and a forwarding layer for
// everything the dashboard proxies through.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nodesight/nodesight/internal/auth"
	"github.com/nodesight/nodesight/pkg/models"
)

// Client wraps the monitoring backend's REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a backend API client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Status retrieves the full node snapshot.
func (c *Client) Status(ctx context.Context) ([]models.Node, error) {
	var nodes []models.Node
	if err := c.doJSON(ctx, http.MethodGet, "/api/status", nil, &nodes); err != nil {
		return nil, fmt.Errorf("fetch status: %w", err)
	}
	return nodes, nil
}

// Settings retrieves the issue thresholds.
func (c *Client) Settings(ctx context.Context) (models.Thresholds, error) {
	var th models.Thresholds
	if err := c.doJSON(ctx, http.MethodGet, "/api/settings", nil, &th); err != nil {
		return models.Thresholds{}, fmt.Errorf("fetch settings: %w", err)
	}
	return th, nil
}

// Alerts retrieves the notification feed.
func (c *Client) Alerts(ctx context.Context) (models.AlertFeed, error) {
	var feed models.AlertFeed
	if err := c.doJSON(ctx, http.MethodGet, "/api/alerts", nil, &feed); err != nil {
		return models.AlertFeed{}, fmt.Errorf("fetch alerts: %w", err)
	}
	return feed, nil
}

// ReferencePoint retrieves the central site location, or nil when none is
// configured.
func (c *Client) ReferencePoint(ctx context.Context) (*models.ReferencePoint, error) {
	var ref models.ReferencePoint
	if err := c.doJSON(ctx, http.MethodGet, "/api/hq", nil, &ref); err != nil {
		return nil, fmt.Errorf("fetch reference point: %w", err)
	}
	if !ref.Placed() {
		return nil, nil
	}
	return &ref, nil
}

// History retrieves the bounded sample series for one node.
func (c *Client) History(ctx context.Context, id string, minutes int) ([]models.Sample, error) {
	body := map[string]any{"id": id, "minutes": minutes}
	var samples []models.Sample
	if err := c.doJSON(ctx, http.MethodPost, "/api/history", body, &samples); err != nil {
		return nil, fmt.Errorf("fetch history for %s: %w", id, err)
	}
	return samples, nil
}

// exchangeResponse is the backend's login result.
type exchangeResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	User    struct {
		Sub      string   `json:"sub"`
		Username string   `json:"username"`
		Email    string   `json:"email"`
		Role     string   `json:"role"`
		Groups   []string `json:"groups"`
	} `json:"user"`
}

// ExchangeCode trades an OIDC authorization code for a verified user. The
// backend owns the token exchange and group-to-role mapping; rejection
// messages are forwarded verbatim.
func (c *Client) ExchangeCode(ctx context.Context, code string) (auth.User, error) {
	var resp exchangeResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", map[string]string{"code": code}, &resp)
	if err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			return auth.User{}, &auth.BackendError{Status: apiErr.Status, Message: apiErr.Message}
		}
		return auth.User{}, fmt.Errorf("exchange code: %w", err)
	}
	if !resp.Success {
		msg := resp.Message
		if msg == "" {
			msg = "Backend rejected login"
		}
		return auth.User{}, &auth.BackendError{Status: http.StatusUnauthorized, Message: msg}
	}

	role := auth.Role(resp.User.Role)
	if role != auth.RoleAdmin {
		role = auth.RoleMember
	}
	return auth.User{
		Subject:  resp.User.Sub,
		Username: resp.User.Username,
		Email:    resp.User.Email,
		Role:     role,
		Groups:   resp.User.Groups,
	}, nil
}

// apiError is a non-2xx backend response with its decoded message, when the
// body carried one.
type apiError struct {
	Status  int
	Message string
	Body    string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Body)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		ae := &apiError{Status: resp.StatusCode, Body: string(respBody)}
		var decoded struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if json.Unmarshal(respBody, &decoded) == nil {
			if decoded.Message != "" {
				ae.Message = decoded.Message
			} else {
				ae.Message = decoded.Error
			}
		}
		return ae
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}
