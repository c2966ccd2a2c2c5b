package triage

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func setupMux(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()
	group := h.Routes()
	for _, route := range group.Routes {
		pattern := route.Method + " " + group.Prefix + route.Pattern
		mux.HandleFunc(pattern, route.Handler)
	}
	return mux
}

func TestHandlerProcessValidation(t *testing.T) {
	mux := setupMux(NewHandler(testRuntime(nil, nil, nil)))

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", "not json"},
		{"missing channel", `{"from":"pat@example.com","body":"Where is my order?"}`},
		{"missing body", `{"channel":"email","from":"pat@example.com"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest("POST", "/triage", bytes.NewReader([]byte(tt.body)))
			req.Header.Set("Content-Type", "application/json")
			mux.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestHandlerProcessBatchValidation(t *testing.T) {
	mux := setupMux(NewHandler(testRuntime(nil, nil, nil)))

	oversized := make([]Inbound, maxBatchSize+1)
	for i := range oversized {
		oversized[i] = Inbound{Channel: "email", Body: "hello"}
	}
	oversizedBody, _ := json.Marshal(oversized)

	tests := []struct {
		name string
		body []byte
	}{
		{"invalid json", []byte("not json")},
		{"empty batch", []byte(`[]`)},
		{"oversized batch", oversizedBody},
		{"invalid entry", []byte(`[{"channel":"email","body":"hi"},{"channel":"email"}]`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest("POST", "/triage/batch", bytes.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			mux.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestHandlerRoutes(t *testing.T) {
	h := NewHandler(testRuntime(nil, nil, nil))
	group := h.Routes()

	if group.Prefix != "/triage" {
		t.Errorf("prefix = %q, want /triage", group.Prefix)
	}

	want := []struct {
		method  string
		pattern string
	}{
		{"POST", ""},
		{"POST", "/batch"},
	}

	if len(group.Routes) != len(want) {
		t.Fatalf("route count = %d, want %d", len(group.Routes), len(want))
	}

	for i, w := range want {
		r := group.Routes[i]
		if r.Method != w.method || r.Pattern != w.pattern {
			t.Errorf("route[%d] = %s %s, want %s %s", i, r.Method, r.Pattern, w.method, w.pattern)
		}
	}
}
