// Package msgraph fetches people-directory resources from Microsoft Graph.
//
// Every call is an independent GET with no retry. A transport or HTTP-status
// failure comes back as a failed model.Result, never a panic or a bare error,
// so one kind failing never aborts the others.
package msgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/people-agent/server/internal/agent/model"
	logx "github.com/people-agent/server/pkg/logger"
)

const maxErrorBody = 4 * 1024

// Client is stateless; the token and the target identity are passed per call.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient provides a custom http.Client for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a Graph client from cfg.
func New(cfg model.GraphConfig, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// GraphError is a non-2xx answer from Graph.
type GraphError struct {
	Status  int
	Code    string
	Message string
}

func (e *GraphError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("%d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
	}
	return fmt.Sprintf("%d %s: %s: %s", e.Status, http.StatusText(e.Status), e.Code, e.Message)
}

// path returns the endpoint for kind, templated on identity.
func (c *Client) path(kind model.ResourceKind, identity string) (string, error) {
	user := "/users/" + url.PathEscape(identity)
	switch kind {
	case model.KindProfile:
		return user, nil
	case model.KindManager:
		return user + "/manager", nil
	case model.KindReports:
		return user + "/directReports", nil
	case model.KindDevices:
		return user + "/managedDevices", nil
	case model.KindColleagues:
		return user + "/people", nil
	case model.KindDocuments:
		return user + "/drive/recent", nil
	case model.KindAllUsers:
		return "/users", nil
	default:
		return "", fmt.Errorf("unknown resource kind %q", kind)
	}
}

// Fetch retrieves one resource kind for identity.
func (c *Client) Fetch(ctx context.Context, token string, kind model.ResourceKind, identity string) model.Result {
	p, err := c.path(kind, identity)
	if err != nil {
		return model.Failed(kind, &model.ResourceError{Kind: kind, Err: err})
	}
	if kind != model.KindAllUsers && strings.TrimSpace(identity) == "" {
		return model.Failed(kind, &model.ResourceError{Kind: kind, Err: fmt.Errorf("no user identity")})
	}

	body, err := c.get(ctx, token, c.baseURL+p)
	if err != nil {
		logx.Debug().Err(err).Str("kind", string(kind)).Str("identity", identity).Msg("graph fetch failed")
		return model.Failed(kind, &model.ResourceError{Kind: kind, Err: err})
	}
	return model.Ok(kind, body)
}

// SearchByName returns users whose display name starts with prefix, in the
// order Graph lists them.
func (c *Client) SearchByName(ctx context.Context, token string, prefix string) ([]model.UserCandidate, error) {
	q := url.Values{}
	q.Set("$filter", fmt.Sprintf("startswith(displayName,'%s')", strings.ReplaceAll(prefix, "'", "''")))
	body, err := c.get(ctx, token, c.baseURL+"/users?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	return decodeCandidates(body)
}

func (c *Client) get(ctx context.Context, token, endpoint string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, parseErrorResponse(resp)
	}

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

func parseErrorResponse(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var apiErr struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	_ = json.Unmarshal(b, &apiErr)

	msg := apiErr.Error.Message
	if msg == "" {
		msg = strings.TrimSpace(string(b))
	}
	return &GraphError{Status: resp.StatusCode, Code: apiErr.Error.Code, Message: msg}
}

func decodeCandidates(body map[string]any) ([]model.UserCandidate, error) {
	raw, ok := body["value"]
	if !ok || raw == nil {
		return []model.UserCandidate{}, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("search users: value is %T, not a list", raw)
	}
	out := make([]model.UserCandidate, 0, len(items))
	for _, it := range items {
		u, ok := it.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, model.UserCandidate{
			ID:                str(u["id"]),
			DisplayName:       str(u["displayName"]),
			Mail:              str(u["mail"]),
			UserPrincipalName: str(u["userPrincipalName"]),
			JobTitle:          str(u["jobTitle"]),
		})
	}
	return out, nil
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
