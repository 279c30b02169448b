package http

import (
	"bytes"
	"image/png"
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/patchnotes/internal/auth/service"
	"github.com/aussiebroadwan/patchnotes/pkg/authsdk"
	"github.com/aussiebroadwan/patchnotes/pkg/httpx"
	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
)

const (
	qrImageDefaultSize = 256
	qrImageMinSize     = 64
	qrImageMaxSize     = 1024
)

// QRCodeHandler serves cross-device login: one device generates a code,
// another (signed in) confirms it, and the first exchanges it for cookies.
type QRCodeHandler struct {
	QR       *service.QRService
	Sessions *service.SessionService
	Cookies  CookieConfig
}

// HandleGenerate godoc
//
//	@Summary		Generate QR code
//	@Description	Creates a PENDING login code valid for five minutes.
//	@Tags			QR login
//	@Produce		json
//	@Success		201	{object}	authsdk.QRCodeResponse
//	@Router			/v1/auth/qr-code/generate [post].
func (h *QRCodeHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	q, err := h.QR.Generate(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, authsdk.QRCodeResponse{Code: q.Code, ExpiresAt: q.ExpiresAt})
}

// HandleStatus godoc
//
//	@Summary		QR code status
//	@Description	Reports PENDING, CONFIRMED, EXPIRED or NOT_FOUND. Codes past their window are expired on read. Sessions are purged QR_RETENTION (default 24h) after expiry, whatever their status, and then report NOT_FOUND.
//	@Tags			QR login
//	@Produce		json
//	@Param			code	path		string	true	"Code"
//	@Success		200		{object}	authsdk.QRCodeStatusResponse
//	@Router			/v1/auth/qr-code/{code}/status [get].
func (h *QRCodeHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	status, err := h.QR.CheckStatus(r.Context(), code)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.QRCodeStatusResponse{Code: code, Status: string(status)})
}

// HandleImage godoc
//
//	@Summary		QR code image
//	@Description	Renders the code as a PNG. The optional size is clamped to 64..1024 pixels.
//	@Tags			QR login
//	@Produce		png
//	@Param			code	path		string	true	"Code"
//	@Param			size	query		int		false	"Edge length in pixels"
//	@Success		200		{file}		binary
//	@Failure		400		{object}	authsdk.ErrorResponse
//	@Router			/v1/auth/qr-code/{code}/image [get].
func (h *QRCodeHandler) HandleImage(w http.ResponseWriter, r *http.Request) {
	size := qrImageDefaultSize
	if raw := r.URL.Query().Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			authsdk.NewAPIError(http.StatusBadRequest, "size must be an integer").WriteError(w)
			return
		}
		size = min(max(n, qrImageMinSize), qrImageMaxSize)
	}

	img, err := renderQRCode(r.PathValue("code"), size)
	if err != nil {
		authsdk.NewAPIError(http.StatusBadRequest, "code cannot be rendered").WriteError(w)
		return
	}

	httpx.NoCache(w)
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(img)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img)
}

func renderQRCode(content string, size int) ([]byte, error) {
	code, err := qr.Encode(content, qr.M, qr.Auto)
	if err != nil {
		return nil, err
	}
	code, err = barcode.Scale(code, size, size)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, code); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// HandleConfirm godoc
//
//	@Summary		Confirm QR code
//	@Description	Binds a PENDING code to the signed-in user.
//	@Tags			QR login
//	@Security		CookieAuth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.QRCodeRequest	true	"Code"
//	@Success		200		{object}	authsdk.SuccessResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"Invalid or expired code"
//	@Failure		401		{object}	authsdk.ErrorResponse	"Not signed in"
//	@Router			/v1/auth/qr-code/confirm [post].
func (h *QRCodeHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.PrincipalFromContext(r.Context())
	if !ok {
		authsdk.ErrUnauthorized.WriteError(w)
		return
	}

	code, ok := decodeCode(w, r)
	if !ok {
		return
	}

	if err := h.QR.Confirm(r.Context(), p.UserID, code); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.SuccessResponse{Success: true})
}

// HandleLogin godoc
//
//	@Summary		Log in with QR code
//	@Description	Exchanges a CONFIRMED code for session cookies of the user who confirmed it.
//	@Tags			QR login
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.QRCodeRequest	true	"Code"
//	@Success		200		{object}	authsdk.UserResponse	"AccessToken and RefreshToken cookies set"
//	@Failure		401		{object}	authsdk.ErrorResponse	"Code unknown or not confirmed"
//	@Router			/v1/auth/qr-code/login [post].
func (h *QRCodeHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	code, ok := decodeCode(w, r)
	if !ok {
		return
	}

	u, err := h.QR.LoginWithCode(r.Context(), code)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	sess, err := h.Sessions.Login(r.Context(), u)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.Cookies.setSessionCookies(w, sess)
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(u))
}

func decodeCode(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req authsdk.QRCodeRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		authsdk.NewAPIError(http.StatusBadRequest, err.Error()).WriteError(w)
		return "", false
	}
	if req.Code == "" {
		authsdk.NewAPIError(http.StatusBadRequest, "code is required").WriteError(w)
		return "", false
	}
	return req.Code, true
}
