package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// okHandler writes 200 "ok".
var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("ok"))
})

func serve(t *testing.T, h http.Handler, header, key string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	if key != "" {
		req.Header.Set(header, key)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestAPIKeyMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		mode   string
		key    string
		sent   string
		status int
	}{
		{"mode none passes", "none", "secret", "", http.StatusOK},
		{"empty key passes", "apikey", "", "", http.StatusOK},
		{"correct key passes", "apikey", "supersecret", "supersecret", http.StatusOK},
		{"wrong key rejected", "apikey", "supersecret", "wrong", http.StatusUnauthorized},
		{"missing header rejected", "apikey", "supersecret", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := APIKeyMiddleware(tt.mode, "X-API-Key", tt.key)(okHandler)
			rr := serve(t, h, "X-API-Key", tt.sent)
			if rr.Code != tt.status {
				t.Errorf("status: got %d, want %d", rr.Code, tt.status)
			}
		})
	}
}

func TestAPIKeyMiddleware_ErrorBodyIsJSON(t *testing.T) {
	h := APIKeyMiddleware("apikey", "X-API-Key", "k")(okHandler)
	rr := serve(t, h, "X-API-Key", "nope")
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q", ct)
	}
}

func TestSupervisor_Verify(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("open-sesame"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword: %v", err)
	}
	s, err := NewSupervisor(string(hash))
	if err != nil {
		t.Fatalf("NewSupervisor: %v", err)
	}
	if !s.Configured() {
		t.Error("Configured() = false")
	}
	if !s.Verify("open-sesame") {
		t.Error("correct credential rejected")
	}
	if s.Verify("open-sesame!") {
		t.Error("wrong credential accepted")
	}
	if s.Verify("") {
		t.Error("empty credential accepted")
	}
}

func TestSupervisor_Unconfigured_RejectsAll(t *testing.T) {
	s, err := NewSupervisor("")
	if err != nil {
		t.Fatalf("NewSupervisor: %v", err)
	}
	if s.Configured() || s.Verify("anything") {
		t.Error("unconfigured supervisor should reject everything")
	}
}

func TestNewSupervisor_BadHash(t *testing.T) {
	if _, err := NewSupervisor("not-a-bcrypt-hash"); err == nil {
		t.Error("expected error for malformed hash")
	}
}
