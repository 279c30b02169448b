package authsdk

import (
	"context"
	"net/http"
	"net/url"
)

// Me returns the authenticated user.
func (s *Session) Me(ctx context.Context) (*UserResponse, error) {
	resp, err := s.do(ctx, http.MethodGet, "/v1/users/me", nil)
	if err != nil {
		return nil, err
	}

	var user UserResponse
	if err := decodeJSON(resp, &user, http.StatusOK); err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser creates an account. Requires the ADMIN role.
func (s *Session) CreateUser(ctx context.Context, req CreateUserRequest) (*UserResponse, error) {
	resp, err := s.do(ctx, http.MethodPost, "/v1/users", req)
	if err != nil {
		return nil, err
	}

	var user UserResponse
	if err := decodeJSON(resp, &user, http.StatusCreated); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUser fetches a user by id. Requires the ADMIN role.
func (s *Session) GetUser(ctx context.Context, id string) (*UserResponse, error) {
	resp, err := s.do(ctx, http.MethodGet, "/v1/users/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	var user UserResponse
	if err := decodeJSON(resp, &user, http.StatusOK); err != nil {
		return nil, err
	}
	return &user, nil
}
