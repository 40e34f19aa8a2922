// Package client provides a Go client for the toolgate REST API.
package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Client is an API client for a toolgate server.
type Client struct {
	baseURL    string
	credential string
	httpClient *http.Client
}

// NewClient creates a client for the server at baseURL.
// credential is the bearer credential attached to authenticated requests;
// it may be empty for unauthenticated calls like Health.
func NewClient(baseURL, credential string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		credential: credential,
		httpClient: httpClient,
	}
}

// constructAPIEndpoint returns the full URL for a v0 API endpoint path.
func (c *Client) constructAPIEndpoint(path string) (string, error) {
	return url.JoinPath(c.baseURL, "/api/v0", path)
}

// newRequest creates an HTTP request with the client's credential attached.
func (c *Client) newRequest(method, u string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequest(method, u, body)
	if err != nil {
		return nil, err
	}
	if c.credential != "" {
		req.Header.Set("Authorization", "Bearer "+c.credential)
	}
	return req, nil
}

// parseErrorResponse converts a non-2xx API response into an error.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	var parsed struct {
		Error any `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err == nil && parsed.Error != nil {
		return fmt.Errorf("server returned status %d: %v", resp.StatusCode, parsed.Error)
	}
	return fmt.Errorf("server returned status %d", resp.StatusCode)
}
