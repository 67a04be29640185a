package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dmitrijs2005/possync/internal/client/models"
	"github.com/dmitrijs2005/possync/internal/common"
	"github.com/sethvargo/go-retry"
)

// HTTPClient talks to the sync server's HTTP surface. Transient transport
// errors are retried with a short fibonacci backoff; HTTP error statuses are
// not retried here, the engine's next trigger covers those. A 401 response
// triggers one transparent re-login before the request is repeated.
type HTTPClient struct {
	baseURL string
	httpc   *http.Client

	device string
	secret string
	token  string
}

// NewHTTPClient returns a client for the server at baseURL, authenticating
// as the given device.
func NewHTTPClient(baseURL string, device string, secret string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 30 * time.Second},
		device:  device,
		secret:  secret,
	}
}

type loginRequest struct {
	Device string `json:"device"`
	Secret string `json:"secret"`
}

type loginResponse struct {
	AccessToken string `json:"accessToken"`
}

type pushRequest struct {
	Outbox []models.OutboxEntry `json:"outbox"`
}

type pullResponse struct {
	Status     string                     `json:"status,omitempty"`
	Deltas     map[string][]models.Record `json:"deltas,omitempty"`
	ServerTime int64                      `json:"serverTime,omitempty"`
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/ping", nil, false)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ping: unexpected status %s", resp.Status)
	}
	return nil
}

func (c *HTTPClient) Login(ctx context.Context, device string, secret string) error {
	c.device = device
	c.secret = secret
	return c.login(ctx)
}

func (c *HTTPClient) login(ctx context.Context) error {
	body, err := json.Marshal(loginRequest{Device: c.device, Secret: c.secret})
	if err != nil {
		return err
	}

	resp, err := c.do(ctx, http.MethodPost, "/login", body, false)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login: %w", common.ErrorUnauthorized)
	}

	var lr loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("login: decoding response: %w", err)
	}
	c.token = lr.AccessToken
	return nil
}

func (c *HTTPClient) Push(ctx context.Context, entries []models.OutboxEntry) error {
	body, err := json.Marshal(pushRequest{Outbox: entries})
	if err != nil {
		return fmt.Errorf("push: marshalling batch: %w", err)
	}

	resp, err := c.doAuthed(ctx, http.MethodPost, "/sync", body)
	if err != nil {
		return fmt.Errorf("push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("push: server rejected batch: %s", resp.Status)
	}
	return nil
}

func (c *HTTPClient) Pull(ctx context.Context, since int64) (*PullResult, error) {
	path := "/sync?since=" + strconv.FormatInt(since, 10)

	resp, err := c.doAuthed(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("pull: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pull: unexpected status %s", resp.Status)
	}

	var pr pullResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("pull: decoding response: %w", err)
	}

	if pr.Status == "needs_restore" {
		return &PullResult{NeedsRestore: true}, nil
	}
	return &PullResult{Deltas: pr.Deltas, ServerTime: pr.ServerTime}, nil
}

func (c *HTTPClient) Restore(ctx context.Context, collections map[string][]models.Record) error {
	body, err := json.Marshal(collections)
	if err != nil {
		return fmt.Errorf("restore: marshalling collections: %w", err)
	}

	resp, err := c.doAuthed(ctx, http.MethodPost, "/admin/restore", body)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("restore: server rejected upload: %s", resp.Status)
	}
	return nil
}

func (c *HTTPClient) Close() error {
	c.httpc.CloseIdleConnections()
	return nil
}

// doAuthed performs an authenticated request, logging in again once if the
// token is missing or rejected.
func (c *HTTPClient) doAuthed(ctx context.Context, method string, path string, body []byte) (*http.Response, error) {
	if c.token == "" && c.secret != "" {
		if err := c.login(ctx); err != nil {
			return nil, err
		}
	}

	resp, err := c.do(ctx, method, path, body, true)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && c.secret != "" {
		_ = resp.Body.Close()
		if err := c.login(ctx); err != nil {
			return nil, err
		}
		return c.do(ctx, method, path, body, true)
	}

	return resp, nil
}

func (c *HTTPClient) do(ctx context.Context, method string, path string, body []byte, authed bool) (*http.Response, error) {
	var resp *http.Response

	backoff := retry.WithMaxRetries(2, retry.NewFibonacci(200*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
		if err != nil {
			return err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if authed && c.token != "" {
			req.Header.Set(common.AuthorizationHeaderName, "Bearer "+c.token)
		}

		resp, err = c.httpc.Do(req)
		if err != nil {
			// Dial/reset errors are worth one more attempt; anything the
			// server actually answered came back as a response, not an error.
			var uerr *url.Error
			if errors.As(err, &uerr) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
