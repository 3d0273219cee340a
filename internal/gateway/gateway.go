// Package gateway is the HTTP transport to the comment platform API.
// It performs the token exchange, token refresh, user fetch, and token
// revocation calls. It decodes coded server failures into *APIError
// but never classifies them; classification belongs to the session
// controller.
package gateway

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	retry "github.com/appleboy/go-httpretry"

	"github.com/commentlab/widgetd/internal/domain"
)

// Paths of the platform endpoints the widget runtime talks to.
const (
	loginPath        = "/api/v1/login/oauth"
	loginRefreshPath = "/api/v1/login/refresh"
	usersPath        = "/api/v1/users"
	logoutPath       = "/api/v1/login"
)

// AuthGateway performs the authenticated network operations of the
// widget session lifecycle.
type AuthGateway interface {
	// ExchangeCode exchanges a provider authorization code for a
	// token pair. Fails locally with ErrMissingAuthorizationCode when
	// code is empty, without a network call.
	ExchangeCode(ctx context.Context, provider, code string) (domain.TokenPair, error)

	// RefreshAccessToken exchanges a refresh token for a new access
	// token.
	RefreshAccessToken(ctx context.Context, refreshToken string) (string, error)

	// FetchUser fetches the current user profile. An empty access
	// token yields a nil profile locally, without a network call.
	FetchUser(ctx context.Context, accessToken string) (*domain.UserProfile, error)

	// Revoke invalidates the access token server-side.
	Revoke(ctx context.Context, accessToken string) error
}

// Client implements AuthGateway over HTTP with retrying transport.
type Client struct {
	baseURL     string
	retryClient *retry.Client
	timeout     time.Duration
}

// NewClient creates an AuthGateway client for the given API base URL.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	baseHTTPClient := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}

	retryClient, err := retry.NewBackgroundClient(
		retry.WithHTTPClient(baseHTTPClient),
	)
	if err != nil {
		return nil, fmt.Errorf("create retry client: %w", err)
	}

	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		retryClient: retryClient,
		timeout:     timeout,
	}, nil
}

// ExchangeCode exchanges an authorization code for a token pair.
func (c *Client) ExchangeCode(ctx context.Context, provider, code string) (domain.TokenPair, error) {
	if code == "" {
		return domain.TokenPair{}, ErrMissingAuthorizationCode
	}

	body := map[string]string{
		"oauthProviderName": provider,
		"authorizationCode": code,
	}

	var pair domain.TokenPair
	if err := c.postJSON(ctx, loginPath, "", body, &pair); err != nil {
		return domain.TokenPair{}, fmt.Errorf("exchange authorization code: %w", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return domain.TokenPair{}, fmt.Errorf("exchange authorization code: incomplete token pair")
	}
	return pair, nil
}

// RefreshAccessToken exchanges a refresh token for a new access token.
func (c *Client) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	body := map[string]string{"refreshToken": refreshToken}

	var resp struct {
		AccessToken string `json:"accessToken"`
	}
	if err := c.postJSON(ctx, loginRefreshPath, "", body, &resp); err != nil {
		return "", fmt.Errorf("refresh access token: %w", err)
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("refresh access token: empty access token in response")
	}
	return resp.AccessToken, nil
}

// FetchUser fetches the current user profile. Without an access token
// there is no session to resolve, so a nil profile is returned without
// a network call.
func (c *Client) FetchUser(ctx context.Context, accessToken string) (*domain.UserProfile, error) {
	if accessToken == "" {
		return nil, nil
	}

	req, err := c.newRequest(ctx, http.MethodGet, usersPath, accessToken, nil)
	if err != nil {
		return nil, err
	}

	var user domain.UserProfile
	if err := c.do(req, &user); err != nil {
		return nil, fmt.Errorf("fetch user: %w", err)
	}
	return &user, nil
}

// Revoke invalidates the access token server-side.
func (c *Client) Revoke(ctx context.Context, accessToken string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, logoutPath, accessToken, nil)
	if err != nil {
		return err
	}
	if err := c.do(req, nil); err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path, accessToken string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request body: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, accessToken, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path, accessToken string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", path, err)
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	reqCtx, cancel := context.WithTimeout(req.Context(), c.timeout)
	defer cancel()
	req = req.WithContext(reqCtx)

	resp, err := c.retryClient.DoWithContext(reqCtx, req)
	if err != nil {
		return fmt.Errorf("request %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr APIError
		if jsonErr := json.Unmarshal(data, &apiErr); jsonErr == nil && apiErr.Code != 0 {
			return &apiErr
		}
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(data))
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
