package authsdk

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// SDKClient is a client for the patchnotes authentication service. It
// covers the public endpoints and creates authenticated Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a new auth service client.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Register creates an account and signs it in.
func (c *SDKClient) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	return c.authenticate(ctx, http.MethodPost, "/v1/auth/register", req, nil, http.StatusCreated)
}

// Login signs in with a username and password.
func (c *SDKClient) Login(ctx context.Context, username, password string) (*Session, error) {
	req := LoginRequest{Username: username, Password: password}
	return c.authenticate(ctx, http.MethodPost, "/v1/auth/login", req, nil, http.StatusOK)
}

// LoginWithTelegram signs in with raw Telegram Mini App init data.
func (c *SDKClient) LoginWithTelegram(ctx context.Context, initData string) (*Session, error) {
	headers := map[string]string{"Authorization": "tma " + initData}
	return c.authenticate(ctx, http.MethodPost, "/v1/auth/login/telegram", nil, headers, http.StatusCreated)
}

// LoginWithQRCode exchanges a confirmed QR code for a session.
func (c *SDKClient) LoginWithQRCode(ctx context.Context, code string) (*Session, error) {
	return c.authenticate(ctx, http.MethodPost, "/v1/auth/qr-code/login", QRCodeRequest{Code: code}, nil, http.StatusOK)
}

// NewSessionFromTokens wraps token cookie values obtained elsewhere.
func (c *SDKClient) NewSessionFromTokens(accessToken, refreshToken string) *Session {
	return &Session{client: c, accessToken: accessToken, refreshToken: refreshToken}
}

// NewAPIKeySession authenticates every request with the apiKey header.
// API key sessions cannot refresh or log out.
func (c *SDKClient) NewAPIKeySession(apiKey string) *Session {
	return &Session{client: c, apiKey: apiKey}
}

func (c *SDKClient) authenticate(
	ctx context.Context,
	method, path string,
	body any,
	headers map[string]string,
	expectedStatus int,
) (*Session, error) {
	resp, err := c.doRequest(ctx, method, path, body, headers)
	if err != nil {
		return nil, err
	}

	var user UserResponse
	if err := decodeJSON(resp, &user, expectedStatus); err != nil {
		return nil, err
	}

	access, refresh := tokenCookies(resp)
	if access == nil || refresh == nil {
		return nil, fmt.Errorf("response did not set token cookies")
	}

	s := &Session{client: c, user: &user}
	s.absorb(access, refresh)
	return s, nil
}
