package email

import (
	"net/http"

	"teamhub/internal/handler/http/respond"
	"teamhub/internal/infra/mailer"
	emailUC "teamhub/internal/usecase/email"
)

// maxBatchSize bounds the messages accepted in one batch request.
const maxBatchSize = 100

// SendHandler handles POST /v1/emails.
type SendHandler struct{ Svc *emailUC.Service }

func (h SendHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	id, err := h.Svc.Send(r.Context(), req.message())
	if err != nil {
		writeSendError(w, err)
		return
	}
	respond.JSON(w, http.StatusAccepted, SendResponse{MessageID: id})
}

func (req SendRequest) message() *mailer.Message {
	return &mailer.Message{
		ID:      req.ID,
		To:      req.To,
		Subject: req.Subject,
		Text:    req.Text,
	}
}

// BatchHandler handles POST /v1/emails/batch. The response is 200 even when
// some messages fail; each result carries its own outcome.
type BatchHandler struct{ Svc *emailUC.Service }

func (h BatchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	if len(req.Messages) == 0 {
		respond.Message(w, http.StatusBadRequest, "Invalid request", "messages is required")
		return
	}
	if len(req.Messages) > maxBatchSize {
		respond.Message(w, http.StatusBadRequest, "Invalid request", "messages must not exceed 100 entries")
		return
	}

	msgs := make([]*mailer.Message, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = m.message()
	}

	results, err := h.Svc.SendBatch(r.Context(), msgs)
	if err != nil {
		writeSendError(w, err)
		return
	}

	resp := BatchResponse{Results: make([]BatchItem, len(results))}
	for i, res := range results {
		item := BatchItem{Index: res.Index, MessageID: res.MessageID}
		if res.Err != nil {
			item.Error = batchError(res.Err)
			resp.Failed++
		} else {
			resp.Sent++
		}
		resp.Results[i] = item
	}
	respond.JSON(w, http.StatusOK, resp)
}
