package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ctxUserID     = "userID"
	ctxViewerRole = "viewerRole"
)

// viewerClaims is the subset of token claims the search core consumes
type viewerClaims struct {
	UserID string `json:"uid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// OptionalAuth extracts the viewer identity from a Bearer token when one
// is present. Anonymous requests pass through; an invalid token is
// treated as anonymous rather than rejected, since search is public.
func OptionalAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.Next()
			return
		}

		claims := &viewerClaims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.Next()
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxViewerRole, claims.Role)
		c.Next()
	}
}

// GetUserID extracts user ID from context
func GetUserID(c *gin.Context) string {
	if v, ok := c.Get(ctxUserID); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetViewerRole extracts the viewer role from context
func GetViewerRole(c *gin.Context) string {
	if v, ok := c.Get(ctxViewerRole); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// CanViewDrafts reports whether the viewer may see unpublished content
func CanViewDrafts(c *gin.Context) bool {
	switch GetViewerRole(c) {
	case "admin", "moderator":
		return true
	}
	return false
}
