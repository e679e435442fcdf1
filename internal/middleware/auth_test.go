package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAuthMiddleware(t *testing.T) {
	auth := NewAuth("secret")
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := auth.Middleware(next)

	tests := []struct {
		name     string
		prepare  func(r *http.Request)
		expected int
	}{
		{"no credentials", func(r *http.Request) {}, http.StatusUnauthorized},
		{"wrong password", func(r *http.Request) { r.Header.Set(PasswordHeader, "nope") }, http.StatusUnauthorized},
		{"password header", func(r *http.Request) { r.Header.Set(PasswordHeader, "secret") }, http.StatusTeapot},
		{"forged cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: CookieName, Value: "true"}) }, http.StatusUnauthorized},
		{"login cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: CookieName, Value: auth.Token()}) }, http.StatusTeapot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/detections/clear", nil)
			tt.prepare(req)
			rr := httptest.NewRecorder()

			h.ServeHTTP(rr, req)

			if rr.Code != tt.expected {
				t.Errorf("Expected status %d, got %d", tt.expected, rr.Code)
			}
		})
	}
}

func TestAuth_TokensDifferPerInstance(t *testing.T) {
	if NewAuth("x").Token() == NewAuth("x").Token() {
		t.Error("Expected a fresh token per Auth")
	}
}
