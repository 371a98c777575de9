package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	authUtils "meriawaaz-be/utils"
)

const (
	ContextUserID   = "user_id"
	ContextIdentity = "identity"
)

// RequireAuth rejects requests without a valid token.
func RequireAuth(verifier authUtils.Verifier, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := tokenFromRequest(c, cookieName)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "No authorization token provided"})
			return
		}

		identity, err := verifier.Verify(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid authorization token"})
			return
		}

		setIdentity(c, identity)
		c.Next()
	}
}

// OptionalAuth attaches the identity when a valid token is present and lets
// every request through.
func OptionalAuth(verifier authUtils.Verifier, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString := tokenFromRequest(c, cookieName); tokenString != "" {
			if identity, err := verifier.Verify(tokenString); err == nil {
				setIdentity(c, identity)
			}
		}
		c.Next()
	}
}

// IdentityFrom returns the caller attached by RequireAuth or OptionalAuth.
func IdentityFrom(c *gin.Context) (*authUtils.Identity, bool) {
	v, ok := c.Get(ContextIdentity)
	if !ok {
		return nil, false
	}
	identity, ok := v.(*authUtils.Identity)
	return identity, ok && identity != nil
}

func setIdentity(c *gin.Context, identity *authUtils.Identity) {
	c.Set(ContextUserID, identity.UID)
	c.Set(ContextIdentity, identity)
}

// Bearer header first, then the auth cookie.
func tokenFromRequest(c *gin.Context, cookieName string) string {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	if cookieName == "" {
		return ""
	}
	cookie, err := c.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return cookie
}
