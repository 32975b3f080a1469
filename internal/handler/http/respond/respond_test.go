package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestJSON(t *testing.T) {
	tests := []struct {
		name         string
		code         int
		data         any
		expectedBody string
	}{
		{
			name:         "success with map",
			code:         http.StatusOK,
			data:         map[string]string{"message": "success"},
			expectedBody: `{"message":"success"}`,
		},
		{
			name:         "success with struct",
			code:         http.StatusAccepted,
			data:         struct{ ID string }{ID: "m-1"},
			expectedBody: `{"ID":"m-1"}`,
		},
		{
			name:         "nil body",
			code:         http.StatusNoContent,
			data:         nil,
			expectedBody: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			JSON(w, tt.code, tt.data)

			if w.Code != tt.code {
				t.Errorf("Code = %v, want %v", w.Code, tt.code)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %v, want application/json", ct)
			}
			if body := strings.TrimSpace(w.Body.String()); body != tt.expectedBody {
				t.Errorf("Body = %v, want %v", body, tt.expectedBody)
			}
		})
	}
}

func TestJSON_EncodingError(t *testing.T) {
	w := httptest.NewRecorder()
	JSON(w, http.StatusOK, make(chan int))

	if w.Code != http.StatusOK {
		t.Errorf("Code = %v, want %v", w.Code, http.StatusOK)
	}
}

func TestMessage(t *testing.T) {
	w := httptest.NewRecorder()
	Message(w, http.StatusTooManyRequests, "Rate limit exceeded", "try again in 5 seconds")

	var body ErrorBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "Rate limit exceeded" || body.Message != "try again in 5 seconds" {
		t.Errorf("body = %+v", body)
	}
}

func TestError_OmitsEmptyMessage(t *testing.T) {
	w := httptest.NewRecorder()
	Error(w, http.StatusBadRequest, errors.New("to is required"))

	if got := strings.TrimSpace(w.Body.String()); got != `{"error":"to is required"}` {
		t.Errorf("Body = %s", got)
	}
}

func TestRetryAfter(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "1"},
		{-time.Second, "1"},
		{time.Second, "1"},
		{1500 * time.Millisecond, "2"},
		{60 * time.Second, "60"},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		RetryAfter(w, tt.d)
		if got := w.Header().Get("Retry-After"); got != tt.want {
			t.Errorf("RetryAfter(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestSafeError(t *testing.T) {
	tests := []struct {
		name        string
		code        int
		err         error
		expectedMsg string
	}{
		{"validation - required", http.StatusBadRequest, errors.New("to is required"), "to is required"},
		{"validation - invalid", http.StatusBadRequest, errors.New("invalid recipient address"), "invalid recipient address"},
		{"not found", http.StatusNotFound, errors.New("route not found"), "route not found"},
		{"internal detail hidden", http.StatusBadGateway, errors.New("dial tcp 10.0.0.3:443: refused"), "internal server error"},
		{"5xx hides safe words", http.StatusInternalServerError, errors.New("invalid redis reply"), "internal server error"},
		{"unknown 4xx hidden", http.StatusBadRequest, errors.New("something odd"), "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			SafeError(w, tt.code, tt.err)

			if w.Code != tt.code {
				t.Errorf("Code = %v, want %v", w.Code, tt.code)
			}
			var body ErrorBody
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error != tt.expectedMsg {
				t.Errorf("error = %q, want %q", body.Error, tt.expectedMsg)
			}
		})
	}
}

func TestSafeError_Nil(t *testing.T) {
	w := httptest.NewRecorder()
	SafeError(w, http.StatusBadRequest, nil)
	if w.Body.Len() != 0 {
		t.Errorf("expected no body, got %q", w.Body.String())
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		To string `json:"to"`
	}

	tests := []struct {
		name    string
		body    string
		limit   int64
		wantErr string
	}{
		{"valid", `{"to":"a@example.com"}`, 1024, ""},
		{"unknown field", `{"to":"a","cc":"b"}`, 1024, "invalid JSON body"},
		{"trailing data", `{"to":"a"}{"to":"b"}`, 1024, "trailing data"},
		{"malformed", `{"to":`, 1024, "invalid JSON body"},
		{"too large", `{"to":"` + strings.Repeat("a", 64) + `"}`, 16, "request body too large"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			req.Body = http.MaxBytesReader(httptest.NewRecorder(), req.Body, tt.limit)

			var p payload
			err := DecodeJSON(req, &p)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
