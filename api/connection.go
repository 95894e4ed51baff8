package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	schemeHttps = "https"
)

type Connection interface {
	Request(ctx context.Context, endpoint *url.URL) (*http.Response, error)
}

type ClientHost struct {
	client *http.Client
	scheme string
	host   string
}

type Client struct {
	Connection Connection
	ApiKey     string
}

// Request resolves the endpoint against the host and issues a GET.
// Non 2xx responses are closed and returned as errors.
func (conn *ClientHost) Request(ctx context.Context, endpoint *url.URL) (*http.Response, error) {
	endpoint.Scheme = conn.scheme
	endpoint.Host = conn.host
	targetUrl := endpoint.String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetUrl, nil)
	if err != nil {
		return nil, fmt.Errorf("error building request for %s: %w", endpoint.Path, err)
	}
	req.Header.Set("Accept", "application/json")

	response, err := conn.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error requesting %s: %w", endpoint.Path, err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		response.Body.Close()
		return nil, &StatusError{Path: endpoint.Path, StatusCode: response.StatusCode}
	}

	return response, nil
}

// StatusError is returned when a provider answers with a non 2xx status
type StatusError struct {
	Path       string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.Path)
}

// ClientFactory builds a client for host, host may carry a scheme (http://127.0.0.1:8080), https is assumed otherwise.
func ClientFactory(host string, apiKey string, timeout time.Duration) *Client {
	client := &http.Client{
		Timeout: timeout,
	}

	scheme, hostname := splitHost(host)
	clientHost := &ClientHost{
		client: client,
		scheme: scheme,
		host:   hostname,
	}

	return &Client{
		Connection: clientHost,
		ApiKey:     apiKey,
	}
}

func splitHost(host string) (string, string) {
	if strings.Contains(host, "://") {
		if u, err := url.Parse(host); err == nil && u.Host != "" {
			return u.Scheme, u.Host
		}
	}
	return schemeHttps, strings.TrimSuffix(host, "/")
}
