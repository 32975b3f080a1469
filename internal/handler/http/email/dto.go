// Package email provides the HTTP handlers for outbound email.
package email

// SendRequest is the body of POST /v1/emails.
type SendRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	// ID is an optional idempotency key. One is generated when empty.
	ID string `json:"message_id,omitempty"`
}

// PasswordResetRequest is the body of POST /v1/emails/password-reset.
type PasswordResetRequest struct {
	To       string `json:"to"`
	ResetURL string `json:"reset_url"`
}

// BatchRequest is the body of POST /v1/emails/batch.
type BatchRequest struct {
	Messages []SendRequest `json:"messages"`
}

// SendResponse is returned for an accepted message.
type SendResponse struct {
	MessageID string `json:"message_id"`
}

// BatchItem is the outcome of one message in a batch.
type BatchItem struct {
	Index     int    `json:"index"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// BatchResponse lists every message of a batch in request order.
type BatchResponse struct {
	Sent    int         `json:"sent"`
	Failed  int         `json:"failed"`
	Results []BatchItem `json:"results"`
}
