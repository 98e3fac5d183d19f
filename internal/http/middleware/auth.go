// JWT bearer authentication middleware.
//
// Protected routes expect "Authorization: Bearer <token>" where the token is
// an HS256 JWT whose subject is the user id. On success the user id is
// stashed in the Gin context under "userID" for handlers to read.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// ContextUserKey is the Gin context key holding the authenticated user id.
const ContextUserKey = "userID"

// Auth validates bearer tokens signed with secret and injects the subject
// into the request context. Requests without a valid token are rejected
// with 401 before reaching handlers.
func Auth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			abortUnauthorized(c, "missing bearer token")
			return
		}
		raw := strings.TrimSpace(header[len(prefix):])

		claims := &jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return secret, nil
		})
		if err != nil || !token.Valid || claims.Subject == "" {
			abortUnauthorized(c, "invalid or expired token")
			return
		}

		c.Set(ContextUserKey, claims.Subject)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code":    "unauthorized",
		"message": msg,
	})
}
