// Package license asks the licensing endpoint what the signed-in user owns.
package license

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/DenQuizon/comet-collections-extension/pkg/core/domain"
	"github.com/DenQuizon/comet-collections-extension/pkg/ports"
	"golang.org/x/oauth2"
)

var ErrUnexpectedStatus = errors.New("unexpected license response")

type Client struct {
	url  string
	http *http.Client
}

// NewClient returns a client whose requests carry a bearer token from ts.
func NewClient(ctx context.Context, licenseURL string, ts oauth2.TokenSource) *Client {
	httpClient := oauth2.NewClient(ctx, oauth2.ReuseTokenSource(nil, ts))
	httpClient.Timeout = 10 * time.Second
	return &Client{url: licenseURL, http: httpClient}
}

func (c *Client) Verify(ctx context.Context) (*domain.License, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("license request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}

	var license domain.License
	if err := json.NewDecoder(resp.Body).Decode(&license); err != nil {
		return nil, fmt.Errorf("decode license: %w", err)
	}
	return &license, nil
}

var _ ports.LicenseVerifier = (*Client)(nil)
