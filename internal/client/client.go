// Package client calls the aforo HTTP API from other processes.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"aforo/internal/occupancy"
	"aforo/internal/service"
)

const (
	apiKeyHeader   = "x-api-key"
	apiExtraHeader = "x-api-extra"
	actorHeader    = "X-Actor"
)

// Client talks to one aforo server with one set of credentials.
type Client struct {
	baseURL    string
	apiKey     string
	apiExtra   string
	actor      string
	httpClient *http.Client
}

// APIError is a non-2xx answer of the server.
type APIError struct {
	Status  int
	Message string
	Kind    string
}

func (e *APIError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("http %d: %s (%s)", e.Status, e.Message, e.Kind)
	}
	return fmt.Sprintf("http %d: %s", e.Status, e.Message)
}

func New(baseURL, apiKey, apiExtra string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		apiExtra:   apiExtra,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// WithActor sets the name recorded in upload and audit logs.
func (c *Client) WithActor(actor string) *Client {
	c.actor = actor
	return c
}

// Import uploads one export. With dryRun the server only parses it.
func (c *Client) Import(ctx context.Context, filename string, r io.Reader, dryRun bool) (*service.ImportSummary, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	endpoint := c.baseURL + "/api/v1/pool/import"
	if dryRun {
		endpoint += "?dry_run=true"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var summary service.ImportSummary
	if err := c.do(req, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// Occupancy fetches the slot picture of a date (YYYY-MM-DD).
func (c *Client) Occupancy(ctx context.Context, date string) (*occupancy.Day, error) {
	endpoint := fmt.Sprintf("%s/api/v1/occupancy?date=%s", c.baseURL, url.QueryEscape(date))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	var day occupancy.Day
	if err := c.do(req, &day); err != nil {
		return nil, err
	}
	return &day, nil
}

func (c *Client) do(req *http.Request, out any) error {
	c.addHeaders(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var body struct {
			Error string `json:"error"`
			Kind  string `json:"kind"`
		}
		if json.NewDecoder(resp.Body).Decode(&body) == nil {
			apiErr.Message = body.Error
			apiErr.Kind = body.Kind
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) addHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}
	if c.apiExtra != "" {
		req.Header.Set(apiExtraHeader, c.apiExtra)
	}
	if c.actor != "" {
		req.Header.Set(actorHeader, c.actor)
	}
}
