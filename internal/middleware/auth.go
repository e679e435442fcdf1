package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/google/uuid"
)

const (
	CookieName     = "authenticated"
	PasswordHeader = "X-Password"
)

// Auth guards mutating endpoints with the configured password. A successful
// login is remembered with a per-process token cookie.
type Auth struct {
	password string
	token    string
}

func NewAuth(password string) *Auth {
	return &Auth{password: password, token: uuid.NewString()}
}

// Check compares a candidate password in constant time.
func (a *Auth) Check(password string) bool {
	return subtle.ConstantTimeCompare([]byte(password), []byte(a.password)) == 1
}

// Token is the cookie value issued on login.
func (a *Auth) Token() string {
	return a.token
}

// Middleware lets a request through when it carries the password header or
// the login cookie, and answers 401 otherwise.
func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.Check(r.Header.Get(PasswordHeader)) {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(CookieName)
		if err != nil || subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(a.token)) != 1 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
