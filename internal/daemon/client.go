package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/harbor-io/harbor/internal/buildinfo"
)

// DefaultAPI is the daemon's default local control endpoint.
const DefaultAPI = "http://127.0.0.1:5001"

// Identity is the daemon's identity record as returned by the id call.
type Identity struct {
	ID              string   `json:"ID"`
	PublicKey       string   `json:"PublicKey"`
	Addresses       []string `json:"Addresses"`
	AgentVersion    string   `json:"AgentVersion"`
	ProtocolVersion string   `json:"ProtocolVersion,omitempty"`
	Protocols       []string `json:"Protocols,omitempty"`
}

// Client talks to the daemon's HTTP control API.
type Client struct {
	base string
	http *http.Client
}

// NewClient creates a client for the API at base. A nil httpClient uses a
// client with a 10s timeout.
func NewClient(base string, httpClient *http.Client) *Client {
	if base == "" {
		base = DefaultAPI
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: httpClient,
	}
}

// ID fetches the daemon's identity record.
func (c *Client) ID(ctx context.Context) (*Identity, error) {
	var id Identity
	if err := c.call(ctx, "id", &id); err != nil {
		return nil, err
	}
	return &id, nil
}

// Probe reports whether the daemon answers the id call. It is the liveness
// check used while waiting for readiness.
func (c *Client) Probe(ctx context.Context) error {
	_, err := c.ID(ctx)
	return err
}

// call issues an RPC-style POST to /api/v0/<op> and decodes the JSON reply.
func (c *Client) call(ctx context.Context, op string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/v0/"+op, nil)
	if err != nil {
		return &QueryError{Op: op, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("User-Agent", buildinfo.UserAgent())

	resp, err := c.http.Do(req)
	if err != nil {
		return &QueryError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		qe := &QueryError{Op: op, StatusCode: resp.StatusCode}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		var apiErr struct {
			Message string `json:"Message"`
		}
		if json.Unmarshal(body, &apiErr) == nil {
			qe.Message = apiErr.Message
		}
		return qe
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &QueryError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
