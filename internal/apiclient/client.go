// Package apiclient is the typed client for the Tabsdata server API. The
// harness uses it to fetch execution state and to report function-run
// progress upward; all authentication flows through an oauth2 token
// source so refreshes are transparent to callers.
package apiclient

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

	"golang.org/x/oauth2"
)

const maxResponseBody = 8 << 20

type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a client from the config's credentials. A static token wins
// over password credentials when both are set.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var source oauth2.TokenSource
	if strings.TrimSpace(cfg.Token) != "" {
		source = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	} else {
		conf := &oauth2.Config{Endpoint: oauth2.Endpoint{TokenURL: cfg.tokenURL()}}
		token, err := conf.PasswordCredentialsToken(ctx, cfg.Username, cfg.Password)
		if err != nil {
			return nil, fmt.Errorf("authenticate: %w", err)
		}
		source = conf.TokenSource(ctx, token)
	}

	httpClient := oauth2.NewClient(ctx, source)
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient.Timeout = timeout

	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		http:    httpClient,
	}, nil
}

// Execution is the server's view of one execution plan instance.
type Execution struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	CollectionID  string    `json:"collection_id"`
	Status        string    `json:"status"`
	TriggeredOn   time.Time `json:"triggered_on"`
	TransactionID string    `json:"transaction_id"`
}

// FunctionRunStatus is one status transition of a function run, reported
// back to the server as the harness progresses.
type FunctionRunStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func (c *Client) GetExecution(ctx context.Context, executionID string) (*Execution, error) {
	var out Execution
	path := "/executions/" + url.PathEscape(executionID)
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateFunctionRunStatus(ctx context.Context, workID string, status FunctionRunStatus) error {
	path := "/function_runs/" + url.PathEscape(workID) + "/status"
	return c.postJSON(ctx, path, status, nil)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	body, err := c.do(req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}

func (c *Client) postJSON(ctx context.Context, path string, in any, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	body, err := c.do(req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return body, fmt.Errorf("http %s %s: status=%d body=%s",
			req.Method, req.URL.String(), resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
