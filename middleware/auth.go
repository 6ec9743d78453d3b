package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/studytutor/utils"
)

const (
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextTokenKey holds the raw bearer token when the request used one.
	ContextTokenKey = "auth_token"
	// ContextClaimsKey holds the parsed JWT claims.
	ContextClaimsKey = "auth_claims"
)

// TokenParser validates bearer tokens.
type TokenParser interface {
	Parse(token string) (*utils.Claims, error)
}

// RevocationChecker reports revoked tokens.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, token string) bool
}

// SessionReader resolves a user id from a cookie session.
type SessionReader interface {
	UserID(r *http.Request) (uint, bool)
}

// Auth resolves the caller's identity.
type Auth struct {
	tokens   TokenParser
	revoked  RevocationChecker
	sessions SessionReader
}

// NewAuth builds the identity middleware. sessions may be nil to accept bearer tokens only.
func NewAuth(tokens TokenParser, revoked RevocationChecker, sessions SessionReader) *Auth {
	return &Auth{tokens: tokens, revoked: revoked, sessions: sessions}
}

// Required rejects requests without a valid bearer token or cookie session.
func (a *Auth) Required() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			if a.sessions != nil {
				if id, ok := a.sessions.UserID(ctx.Request); ok {
					ctx.Set(ContextUserIDKey, id)
					ctx.Next()
					return
				}
			}
			utils.Abort(ctx, http.StatusUnauthorized, 40101, "authorization header missing")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			utils.Abort(ctx, http.StatusUnauthorized, 40102, "invalid authorization header format")
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			utils.Abort(ctx, http.StatusUnauthorized, 40103, "empty bearer token")
			return
		}

		if a.revoked != nil && a.revoked.IsRevoked(ctx.Request.Context(), tokenString) {
			utils.Abort(ctx, http.StatusUnauthorized, 40104, "token revoked")
			return
		}

		claims, err := a.tokens.Parse(tokenString)
		if err != nil {
			utils.Abort(ctx, http.StatusUnauthorized, 40105, "invalid token")
			return
		}

		ctx.Set(ContextUserIDKey, claims.UserID)
		ctx.Set(ContextTokenKey, tokenString)
		ctx.Set(ContextClaimsKey, claims)
		ctx.Next()
	}
}
