package middleware

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
	"github.com/workstream/access-management/internal"
	"github.com/workstream/access-management/pkg/logger"
)

// Authenticator validates bearer tokens issued by the platform's identity
// service and places the operator on the request context. Token issuance
// happens elsewhere; this engine only consumes identities.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

type operatorClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		claims := &operatorClaims{}
		token, err := jwt.ParseWithClaims(authHeader[7:], claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return a.secret, nil
		})
		if err != nil || !token.Valid {
			logger.From(r.Context()).Warn("invalid bearer token", "error", err)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		operatorID, err := strconv.ParseInt(claims.Subject, 10, 64)
		if err != nil || operatorID <= 0 {
			logger.From(r.Context()).Warn("bearer token has invalid subject", "subject", claims.Subject)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := internal.ContextWithOperator(r.Context(), &internal.Operator{
			ID:    operatorID,
			Email: claims.Email,
		})
		ctx = logger.With(ctx, "operator_id", operatorID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
