package middleware

import (
	"context"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/taskhive/backend/domain"
)

// SessionChecker validates that the session referenced by a token is
// still live, so logout takes effect before the JWT expires.
type SessionChecker interface {
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
}

// JWTAuth authenticates requests via a bearer token and exposes the
// caller's identity to handlers through request headers.
func JWTAuth(secret string, sessions SessionChecker, logger *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			tokenString := extractToken(ctx)
			if tokenString == "" {
				ctx.SetStatusCode(fasthttp.StatusUnauthorized)
				return
			}

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				logger.Warn("invalid jwt token", zap.Error(err))
				ctx.SetStatusCode(fasthttp.StatusUnauthorized)
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				ctx.SetStatusCode(fasthttp.StatusUnauthorized)
				return
			}

			sessionID, _ := claims["session_id"].(string)
			if sessions != nil {
				if sessionID == "" {
					ctx.SetStatusCode(fasthttp.StatusUnauthorized)
					return
				}
				if _, err := sessions.GetSession(ctx, sessionID); err != nil {
					ctx.SetStatusCode(fasthttp.StatusUnauthorized)
					return
				}
			}
			if sessionID != "" {
				ctx.Request.Header.Set("X-Session-ID", sessionID)
			}

			if userID, ok := claims["user_id"].(string); ok {
				ctx.Request.Header.Set("X-User-ID", userID)
			}
			if email, ok := claims["email"].(string); ok {
				ctx.Request.Header.Set("X-User-Email", email)
			}

			next(ctx)
		}
	}
}

// extractToken reads the bearer token from the Authorization header, or
// from the token query parameter for EventSource clients that cannot set
// headers.
func extractToken(ctx *fasthttp.RequestCtx) string {
	header := string(ctx.Request.Header.Peek("Authorization"))
	if header != "" {
		if strings.HasPrefix(header, "Bearer ") {
			return strings.TrimPrefix(header, "Bearer ")
		}
		return header
	}
	return string(ctx.QueryArgs().Peek("token"))
}
