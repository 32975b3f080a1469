package email

import (
	"net/http"

	emailUC "teamhub/internal/usecase/email"
)

// Register registers the email handlers with mux. Identity resolution and
// rate limiting are applied around the whole mux, not per route.
func Register(mux *http.ServeMux, svc *emailUC.Service) {
	mux.Handle("POST /v1/emails", SendHandler{svc})
	mux.Handle("POST /v1/emails/batch", BatchHandler{svc})
	mux.Handle("POST /v1/emails/password-reset", PasswordResetHandler{svc})
}
