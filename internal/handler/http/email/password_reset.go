package email

import (
	"net/http"

	"teamhub/internal/handler/http/respond"
	emailUC "teamhub/internal/usecase/email"
)

// PasswordResetHandler handles POST /v1/emails/password-reset.
type PasswordResetHandler struct{ Svc *emailUC.Service }

func (h PasswordResetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	if req.To == "" || req.ResetURL == "" {
		respond.Message(w, http.StatusBadRequest, "Invalid request", "to and reset_url are required")
		return
	}

	id, err := h.Svc.SendPasswordReset(r.Context(), req.To, req.ResetURL)
	if err != nil {
		writeSendError(w, err)
		return
	}
	respond.JSON(w, http.StatusAccepted, SendResponse{MessageID: id})
}
