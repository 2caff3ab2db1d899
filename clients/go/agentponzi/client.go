// Package agentponzi provides a client for the Agent Ponzi name registry API.
package agentponzi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the public API endpoint.
const DefaultBaseURL = "https://api.agentponzi.xyz"

// Client is an Agent Ponzi API client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("agent ponzi error %d: %s", e.StatusCode, e.Message)
}

// NewClient creates a new client. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// doRequest performs an HTTP request and decodes a JSON response into out.
func (c *Client) doRequest(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.Unmarshal(respBody, &errResp)
		if errResp.Error == "" {
			errResp.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(respBody, out)
}

// Registration is returned when a name is registered.
type Registration struct {
	Name             string `json:"name"`
	ClaimToken       string `json:"claim_token"`
	ClaimURL         string `json:"claim_url"`
	VerificationCode string `json:"verification_code"`
	TweetText        string `json:"tweet_text"`
	Instructions     string `json:"instructions"`
}

// Register reserves an agent name.
func (c *Client) Register(ctx context.Context, name string) (*Registration, error) {
	var resp Registration
	if err := c.doRequest(ctx, http.MethodPost, "/api/register", map[string]string{"name": name}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ClaimStatus describes a pending or claimed registration.
type ClaimStatus struct {
	Status           string `json:"status"`
	Name             string `json:"name"`
	Address          string `json:"address,omitempty"`
	VerificationCode string `json:"verification_code,omitempty"`
	TweetText        string `json:"tweet_text,omitempty"`
	Message          string `json:"message,omitempty"`
}

// GetClaim fetches the claim state for a token.
func (c *Client) GetClaim(ctx context.Context, token string) (*ClaimStatus, error) {
	var resp ClaimStatus
	if err := c.doRequest(ctx, http.MethodGet, "/api/claim/"+url.PathEscape(token), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ClaimResult is returned when a claim succeeds.
type ClaimResult struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Message string `json:"message"`
}

// Verify submits the post URL and address to complete a claim.
func (c *Client) Verify(ctx context.Context, token, tweetURL, address string) (*ClaimResult, error) {
	req := map[string]string{"tweet_url": tweetURL, "address": address}
	var resp ClaimResult
	if err := c.doRequest(ctx, http.MethodPost, "/api/claim/"+url.PathEscape(token)+"/verify", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListAgents returns the address -> name map of claimed agents.
func (c *Client) ListAgents(ctx context.Context) (map[string]string, error) {
	resp := make(map[string]string)
	if err := c.doRequest(ctx, http.MethodGet, "/api/agents", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Agent is a claimed name and its address.
type Agent struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

// Lookup resolves an address to its claimed agent name.
func (c *Client) Lookup(ctx context.Context, address string) (*Agent, error) {
	var resp Agent
	if err := c.doRequest(ctx, http.MethodGet, "/api/agents/"+url.PathEscape(address), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stats holds registration totals.
type Stats struct {
	TotalAgents   int64  `json:"total_agents"`
	PendingAgents int64  `json:"pending_agents"`
	ClaimedAgents int64  `json:"claimed_agents"`
	ProofPolicy   string `json:"proof_policy"`
}

// Stats returns registration totals.
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var resp Stats
	if err := c.doRequest(ctx, http.MethodGet, "/api/stats", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health returns the raw health document.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	var resp map[string]any
	if err := c.doRequest(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}
