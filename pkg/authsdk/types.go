package authsdk

import "time"

// Cookie and header names shared by the server and the SDK.
const (
	AccessTokenCookie  = "AccessToken"
	RefreshTokenCookie = "RefreshToken"
	APIKeyHeader       = "apiKey"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	StatusCode int    `json:"statusCode"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

// SuccessResponse acknowledges operations without a payload.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ============================================================================
// Users
// ============================================================================

// UserResponse is a user as clients see it. The password hash never leaves
// the server.
type UserResponse struct {
	ID                    string    `json:"id"`
	Username              string    `json:"username,omitempty"`
	FirstName             string    `json:"firstName"`
	LastName              string    `json:"lastName,omitempty"`
	LanguageCode          string    `json:"languageCode,omitempty"`
	PhotoURL              string    `json:"photoUrl,omitempty"`
	IsPremium             bool      `json:"isPremium"`
	IsBot                 bool      `json:"isBot"`
	AddedToAttachmentMenu bool      `json:"addedToAttachmentMenu"`
	Role                  string    `json:"role"`
	APIKey                string    `json:"apiKey,omitempty"`
	CreatedAt             time.Time `json:"createdAt"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

// RegisterRequest is the body of POST /v1/auth/register.
type RegisterRequest struct {
	ID                    string `json:"id"`
	FirstName             string `json:"firstName"`
	LastName              string `json:"lastName,omitempty"`
	Username              string `json:"username,omitempty"`
	Password              string `json:"password,omitempty"`
	LanguageCode          string `json:"languageCode,omitempty"`
	PhotoURL              string `json:"photoUrl,omitempty"`
	IsPremium             bool   `json:"isPremium,omitempty"`
	IsBot                 bool   `json:"isBot,omitempty"`
	AddedToAttachmentMenu bool   `json:"addedToAttachmentMenu,omitempty"`
}

// CreateUserRequest is the body of POST /v1/users (administrators only).
type CreateUserRequest struct {
	RegisterRequest
	Role string `json:"role,omitempty"`
}

// LoginRequest is the body of POST /v1/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ============================================================================
// QR login
// ============================================================================

// QRCodeResponse is returned by POST /v1/auth/qr-code/generate.
type QRCodeResponse struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// QRCodeStatusResponse is returned by GET /v1/auth/qr-code/{code}/status.
type QRCodeStatusResponse struct {
	Code   string `json:"code"`
	Status string `json:"status"`
}

// QRCodeRequest is the body of the confirm and login endpoints.
type QRCodeRequest struct {
	Code string `json:"code"`
}

// QR code statuses.
const (
	QRStatusPending   = "PENDING"
	QRStatusConfirmed = "CONFIRMED"
	QRStatusExpired   = "EXPIRED"
	QRStatusNotFound  = "NOT_FOUND"
)

// Websocket events for QR status subscriptions.
const (
	EventSubscribeQRCode   = "subscribeToQrCode"
	EventUnsubscribeQRCode = "unsubscribeFromQrCode"
	EventQRCodeStatus      = "qrCodeStatus"
	EventError             = "error"
)

// QRCodeStatusEvent is the data of a qrCodeStatus websocket message.
type QRCodeStatusEvent struct {
	QRCode string `json:"qrCode"`
	Status string `json:"status"`
}

// ============================================================================
// Health
// ============================================================================

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports each dependency as "ok" or "error: ...".
type HealthChecks struct {
	Database string `json:"database"`
	Cache    string `json:"cache"`
}
