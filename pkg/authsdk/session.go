package authsdk

import (
	"context"
	"errors"
	"net/http"
	"sync"
)

// Session is an authenticated session. It carries the token cookies and
// adopts rotated cookies from any response, so a refresh performed
// transparently by the server is picked up automatically.
type Session struct {
	client *SDKClient

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	apiKey       string
	user         *UserResponse
}

// User returns the user the session was created for, if the creating call
// returned one.
func (s *Session) User() *UserResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// AccessToken returns the current access token cookie value.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// RefreshToken returns the current refresh token cookie value.
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// Refresh rotates the token pair.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.RLock()
	refresh := s.refreshToken
	s.mu.RUnlock()

	if refresh == "" {
		return errors.New("no refresh token available")
	}

	resp, err := s.client.doRequest(ctx, http.MethodPost, "/v1/auth/refresh", nil, nil,
		&http.Cookie{Name: RefreshTokenCookie, Value: refresh})
	if err != nil {
		return err
	}

	var user UserResponse
	if err := decodeJSON(resp, &user, http.StatusOK); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = &user
	s.absorbLocked(tokenCookies(resp))
	return nil
}

// Logout revokes the refresh token and forgets both tokens.
func (s *Session) Logout(ctx context.Context) error {
	resp, err := s.do(ctx, http.MethodPost, "/v1/auth/logout", nil)
	if err != nil {
		return err
	}
	if err := decodeJSON(resp, &SuccessResponse{}, http.StatusOK); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = ""
	s.refreshToken = ""
	return nil
}

// ConfirmQRCode approves a code shown on another device.
func (s *Session) ConfirmQRCode(ctx context.Context, code string) error {
	resp, err := s.do(ctx, http.MethodPost, "/v1/auth/qr-code/confirm", QRCodeRequest{Code: code})
	if err != nil {
		return err
	}
	return decodeJSON(resp, &SuccessResponse{}, http.StatusOK)
}

// do sends an authenticated request with the token cookies, or the apiKey
// header for API key sessions.
func (s *Session) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	s.mu.RLock()
	var (
		headers map[string]string
		cookies []*http.Cookie
	)
	if s.apiKey != "" {
		headers = map[string]string{APIKeyHeader: s.apiKey}
	}
	if s.accessToken != "" {
		cookies = append(cookies, &http.Cookie{Name: AccessTokenCookie, Value: s.accessToken})
	}
	if s.refreshToken != "" {
		cookies = append(cookies, &http.Cookie{Name: RefreshTokenCookie, Value: s.refreshToken})
	}
	s.mu.RUnlock()

	resp, err := s.client.doRequest(ctx, method, path, body, headers, cookies...)
	if err != nil {
		return nil, err
	}

	s.absorb(tokenCookies(resp))
	return resp, nil
}

func (s *Session) absorb(access, refresh *http.Cookie) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.absorbLocked(access, refresh)
}

func (s *Session) absorbLocked(access, refresh *http.Cookie) {
	if access != nil {
		s.accessToken = access.Value
	}
	if refresh != nil {
		s.refreshToken = refresh.Value
	}
}
