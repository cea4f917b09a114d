package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/backend"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const SessionHeader = "X-Session-ID"

type ownerKey struct{}

// CustomerClaims are the identity provider claims the storefront reads.
type CustomerClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// TokenValidator checks HS256 bearer tokens issued by the identity provider.
type TokenValidator struct {
	secret []byte
}

// NewTokenValidator returns nil for an empty secret: every request is then treated as a guest.
func NewTokenValidator(secret string) *TokenValidator {
	if secret == "" {
		return nil
	}
	return &TokenValidator{secret: []byte(secret)}
}

func (v *TokenValidator) Validate(tokenStr string) (*CustomerClaims, error) {
	claims := &CustomerClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token subject is required")
	}
	return claims, nil
}

// OwnerMiddleware resolves whose cart and checkout the request acts on. A bearer token makes the
// request a signed-in customer's; otherwise the X-Session-ID header names a guest session, and a
// new one is issued (and echoed back) when it is missing.
func OwnerMiddleware(validator *TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var owner domain.Owner

			if authHeader := r.Header.Get("Authorization"); authHeader != "" {
				scheme, tokenStr, ok := strings.Cut(authHeader, " ")
				if !ok || !strings.EqualFold(scheme, "Bearer") || tokenStr == "" {
					respondError(w, http.StatusUnauthorized, "unauthorized", "invalid Authorization header format (expected 'Bearer <token>')")
					return
				}
				if validator == nil {
					respondError(w, http.StatusUnauthorized, "unauthorized", "authentication not configured")
					return
				}
				claims, err := validator.Validate(tokenStr)
				if err != nil {
					logger.FromContext(r.Context()).Debug("rejected bearer token", zap.Error(err))
					respondError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
					return
				}
				owner = domain.Owner{CustomerID: claims.Subject, Email: claims.Email, Token: tokenStr}
			}

			sessionID := strings.TrimSpace(r.Header.Get(SessionHeader))
			if _, err := uuid.Parse(sessionID); err != nil {
				sessionID = uuid.NewString()
			}
			owner.SessionID = sessionID
			w.Header().Set(SessionHeader, sessionID)

			ctx := context.WithValue(r.Context(), ownerKey{}, owner)
			if owner.Token != "" {
				ctx = backend.WithToken(ctx, owner.Token)
			}
			ctx = logger.WithContext(ctx, logger.FromContext(ctx).With(zap.String("owner", owner.Key())))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func ownerFromContext(ctx context.Context) (domain.Owner, bool) {
	owner, ok := ctx.Value(ownerKey{}).(domain.Owner)
	return owner, ok
}

// RequestLogger puts a request-scoped zap logger into the context and logs every request once
// it completes.
func RequestLogger(base *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			l := base.With(zap.String("request_id", middleware.GetReqID(r.Context())))
			ctx := logger.WithContext(r.Context(), l)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			logger.FromContext(ctx).Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)))
		})
	}
}

// MaxBodySize limits request bodies to n bytes.
func MaxBodySize(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}
