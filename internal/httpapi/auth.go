package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pingmedaddy/pingmedaddy/internal/config"
)

type contextKey string

const authedContextKey contextKey = "authed"

// LoginRequest is the single-admin login body. There is no user table --
// the operator credential lives in configuration, matching the original's
// single hard-coded admin account rather than a multi-tenant user model.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// HandleLogin checks the request against the configured admin
// credential with constant-time comparison, mirroring the original's
// hmac.compare_digest guard against timing attacks on the password
// check, then issues a JWT.
func HandleLogin(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeDetail(w, http.StatusBadRequest, "invalid request")
			return
		}

		userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(cfg.AdminUsername)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(cfg.AdminPassword)) == 1
		if !userOK || !passOK {
			log.Println("login: authentication failed")
			writeDetail(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		token, err := generateJWT(cfg.AuthSecret, time.Duration(cfg.AuthTokenMinutes)*time.Minute)
		if err != nil {
			writeDetail(w, http.StatusInternalServerError, "failed to generate token")
			return
		}

		writeJSON(w, http.StatusOK, LoginResponse{AccessToken: token, TokenType: "bearer"})
	}
}

func generateJWT(secret string, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "admin",
		"exp": time.Now().Add(ttl).Unix(),
	})
	return token.SignedString([]byte(secret))
}

// AuthMiddleware requires a valid bearer token on every wrapped route.
// There's only one account, so the middleware marks the request
// authenticated rather than loading a user record.
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == "" || tokenString == authHeader {
				writeDetail(w, http.StatusUnauthorized, "missing or malformed authorization header")
				return
			}

			token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
				return []byte(secret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
			if err != nil || !token.Valid {
				writeDetail(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), authedContextKey, true)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
