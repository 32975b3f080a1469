package email

import (
	"context"
	"errors"
	"net/http"

	"teamhub/internal/handler/http/respond"
	"teamhub/internal/infra/mailer"
	"teamhub/internal/resilience"
	emailUC "teamhub/internal/usecase/email"
)

// writeSendError maps a dispatch error to a response.
//
//	invalid input        400
//	open circuit         503 + Retry-After
//	attempt timeout      504
//	anything else        502
func writeSendError(w http.ResponseWriter, err error) {
	var open *resilience.CircuitOpenError
	switch {
	case errors.Is(err, mailer.ErrInvalidMessage), errors.Is(err, emailUC.ErrInvalidResetURL):
		respond.Message(w, http.StatusBadRequest, "Invalid request", err.Error())
	case errors.As(err, &open):
		respond.RetryAfter(w, open.RetryAfter)
		respond.Message(w, http.StatusServiceUnavailable, "Service unavailable",
			"email delivery is temporarily suspended")
	case resilience.IsTimeout(err), errors.Is(err, context.DeadlineExceeded):
		respond.Message(w, http.StatusGatewayTimeout, "Gateway timeout",
			"email provider did not respond in time")
	default:
		respond.SafeError(w, http.StatusBadGateway, err)
	}
}

// batchError is the per-message error text in a batch response. Provider
// details are withheld as in writeSendError.
func batchError(err error) string {
	switch {
	case errors.Is(err, mailer.ErrInvalidMessage):
		return err.Error()
	case resilience.IsCircuitOpen(err):
		return "email delivery is temporarily suspended"
	case resilience.IsTimeout(err), errors.Is(err, context.DeadlineExceeded):
		return "email provider did not respond in time"
	default:
		return "delivery failed"
	}
}
