package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/karlmjogila/swarmops/internal/config"
)

// HTTPTransport reaches the agent gateway over plain HTTP: the gateway is
// an opaque external service reached directly, not via a model SDK.
type HTTPTransport struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPTransport creates an HTTPTransport bound to cfg.
func NewHTTPTransport(cfg config.GatewayConfig) *HTTPTransport {
	return &HTTPTransport{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (t *HTTPTransport) authorize(req *http.Request) {
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}
	req.Header.Set("Content-Type", "application/json")
}

// Spawn POSTs req to the gateway's spawn endpoint.
func (t *HTTPTransport) Spawn(ctx context.Context, req SpawnRequest) (*SpawnResponse, int, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, 0, fmt.Errorf("marshal spawn request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/spawn", bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("build spawn request: %w", err)
	}
	t.authorize(httpReq)

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, 0, fmt.Errorf("send spawn request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read spawn response: %w", err)
	}

	var parsed SpawnResponse
	if len(data) > 0 {
		if err := json.Unmarshal(data, &parsed); err != nil {
			return nil, resp.StatusCode, fmt.Errorf("decode spawn response: %w", err)
		}
	}
	return &parsed, resp.StatusCode, nil
}

type sessionListResponse struct {
	Sessions []SessionInfo `json:"sessions"`
}

// ListSessions fetches the gateway's current session list.
func (t *HTTPTransport) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/sessions", nil)
	if err != nil {
		return nil, fmt.Errorf("build session list request: %w", err)
	}
	t.authorize(httpReq)

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send session list request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("session list request failed: status %d", resp.StatusCode)
	}

	var parsed sessionListResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode session list response: %w", err)
	}
	return parsed.Sessions, nil
}
