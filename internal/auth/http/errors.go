package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/patchnotes/internal/auth/service"
	"github.com/aussiebroadwan/patchnotes/pkg/authsdk"
	"github.com/aussiebroadwan/patchnotes/pkg/slogx"
)

var kindStatus = map[service.Kind]int{
	service.KindUnauthorized: http.StatusUnauthorized,
	service.KindBadRequest:   http.StatusBadRequest,
	service.KindNotFound:     http.StatusNotFound,
	service.KindInternal:     http.StatusInternalServerError,
}

// writeServiceError renders a service failure. Internal causes are logged
// and never sent to the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var se *service.Error
	if !errors.As(err, &se) {
		se = service.Translate(err).(*service.Error)
	}

	status, ok := kindStatus[se.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	log := slogx.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "err", se.Err)
		authsdk.ErrServerError.WriteError(w)
		return
	}
	log.Debug("request rejected", "status", status, "err", se)

	authsdk.NewAPIError(status, se.Message).WriteError(w)
}

// writeAuthnError is the AuthnMiddleware failure hook.
func writeAuthnError(w http.ResponseWriter, err error) {
	var se *service.Error
	if errors.As(err, &se) && se.Kind == service.KindInternal {
		authsdk.ErrServerError.WriteError(w)
		return
	}
	authsdk.ErrUnauthorized.WriteError(w)
}
