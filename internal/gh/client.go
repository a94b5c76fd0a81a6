package gh

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"sdcli/internal/config"
)

const defaultBaseURL = "https://api.github.com"

// Client is an authenticated GitHub v3 REST client scoped to one
// organization. It retries transient failures with backoff and honors
// Retry-After on rate-limit responses.
type Client struct {
	httpClient *http.Client
	baseURL    string
	org        string
	username   string
	token      string
	maxRetries int
	sleep      func(time.Duration) // swapped out in tests
}

// NewClient creates a Client from configuration and a credential pair.
func NewClient(cfg config.GitHubConfig, username, token string) *Client {
	baseURL := cfg.APIBaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	org := cfg.Organization
	if org == "" {
		org = "metabronx"
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		org:        org,
		username:   username,
		token:      token,
		maxRetries: 3,
		sleep:      time.Sleep,
	}
}

// Org returns the organization the client operates on.
func (c *Client) Org() string { return c.org }

// do issues one API call, encoding body as JSON when non-nil and decoding
// the response into out when non-nil. Responses carrying Retry-After are
// retried after the indicated delay; 5xx responses are retried with backoff.
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
		if err != nil {
			return fmt.Errorf("building request: %w", err)
		}
		req.Header.Set("Accept", "application/vnd.github.v3+json")
		req.Header.Set("User-Agent", "sdcli")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.SetBasicAuth(c.username, c.token)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			c.sleep(backoff(attempt))
			continue
		}

		retryAfter := resp.Header.Get("Retry-After")
		switch {
		case resp.StatusCode < 300:
			err = decodeBody(resp.Body, out)
			resp.Body.Close()
			return err
		case retryAfter != "":
			resp.Body.Close()
			secs, perr := strconv.Atoi(retryAfter)
			if perr != nil || secs < 0 {
				secs = 1
			}
			lastErr = fmt.Errorf("rate limited (HTTP %d)", resp.StatusCode)
			c.sleep(time.Duration(secs) * time.Second)
			continue
		case resp.StatusCode >= 500:
			resp.Body.Close()
			lastErr = fmt.Errorf("GitHub returned HTTP %d", resp.StatusCode)
			c.sleep(backoff(attempt))
			continue
		default:
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("%s %s: HTTP %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(msg))
		}
	}

	return fmt.Errorf("%s %s failed after %d attempts: %w", method, path, c.maxRetries+1, lastErr)
}

func decodeBody(r io.Reader, out any) error {
	if out == nil {
		io.Copy(io.Discard, r)
		return nil
	}
	if err := json.NewDecoder(r).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func backoff(attempt int) time.Duration {
	return time.Duration(1<<attempt) * 500 * time.Millisecond
}
