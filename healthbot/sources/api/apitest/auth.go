// healthbot/sources/api/apitest/auth.go
package apitest

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const emailKey contextKey = "user_email"

// IssueToken signs a token for email the way the real backend does (HS256, sub=email).
func (s *Server) IssueToken(email string, ttl time.Duration) string {
	claims := jwt.MapClaims{
		"sub": email,
		"exp": time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		panic(err)
	}
	return signed
}

// Subject returns the sub claim of a token this server signed, or "".
func (s *Server) Subject(token string) string {
	parsed, err := jwt.Parse(token, func(*jwt.Token) (interface{}, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return ""
	}
	sub, _ := parsed.Claims.GetSubject()
	return sub
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		parts := strings.Split(auth, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return s.secret, nil
		})
		if err != nil || !token.Valid {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		email, err := token.Claims.GetSubject()
		if err != nil || email == "" {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		s.mu.Lock()
		_, known := s.users[email]
		s.mu.Unlock()
		if !known {
			writeDetail(w, http.StatusNotFound, "User not found")
			return
		}
		ctx := context.WithValue(r.Context(), emailKey, email)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userEmail(r *http.Request) string {
	email, _ := r.Context().Value(emailKey).(string)
	return email
}
