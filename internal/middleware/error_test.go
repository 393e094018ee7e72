package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestErrorHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus int
		wantLogged bool
	}{
		{
			name:       "no panic",
			handler:    func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusAccepted) },
			wantStatus: http.StatusAccepted,
		},
		{
			name:       "string panic",
			handler:    func(w http.ResponseWriter, r *http.Request) { panic("boom\x1b[31m") },
			wantStatus: http.StatusInternalServerError,
			wantLogged: true,
		},
		{
			name: "runtime panic",
			handler: func(w http.ResponseWriter, r *http.Request) {
				var m map[string]string
				m["key"] = "value"
			},
			wantStatus: http.StatusInternalServerError,
			wantLogged: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zapcore.DebugLevel)
			req := httptest.NewRequest("GET", "/api/v1/tasks", nil)
			w := httptest.NewRecorder()
			RequestID(ErrorHandler(zap.New(core))(tt.handler)).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			entries := logs.FilterMessage("panic_recovered").All()
			if tt.wantLogged != (len(entries) == 1) {
				t.Fatalf("panic_recovered entries = %d, want logged %v", len(entries), tt.wantLogged)
			}
			if !tt.wantLogged {
				return
			}
			fields := entries[0].ContextMap()
			if fields["request_id"] != w.Header().Get("X-Request-ID") {
				t.Errorf("request_id = %v, header %q", fields["request_id"], w.Header().Get("X-Request-ID"))
			}
			if fields["stack"] == "" {
				t.Error("expected a stack trace")
			}
			if tt.name == "string panic" && fields["panic"] != "boom[31m" {
				t.Errorf("panic = %q, want control characters stripped", fields["panic"])
			}
		})
	}
}

func TestErrorHandler_ResponseBody(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	})

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	RequestID(ErrorHandler(zap.NewNop())(handler)).ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var body ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body.Success || body.Error != "Internal Server Error" || body.Message != "An unexpected error occurred" {
		t.Errorf("body = %+v", body)
	}
	if body.Path != "/test" || body.Timestamp == "" {
		t.Errorf("path/timestamp = %q/%q", body.Path, body.Timestamp)
	}
	if body.RequestID == "" || body.RequestID != resp.Header.Get("X-Request-ID") {
		t.Errorf("request id %q does not match header %q", body.RequestID, resp.Header.Get("X-Request-ID"))
	}
}

func TestErrorHandler_RepanicsAbort(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	})

	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Errorf("recovered %v, want http.ErrAbortHandler", rec)
		}
	}()
	ErrorHandler(zap.NewNop())(handler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	t.Error("expected ErrAbortHandler to propagate")
}
