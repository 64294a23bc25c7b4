package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/chamsedd0/neighbor/internal/models"
	"github.com/chamsedd0/neighbor/internal/stores"
	"github.com/chamsedd0/neighbor/pkg/utils"
	"github.com/gin-gonic/gin"
)

const (
	sessionKey = "session"
	toastsKey  = "toasts"
)

// RevocationChecker reports tokens revoked by sign-out.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) bool
}

// SessionMiddleware gives every request its own session. A valid bearer
// token signs the session in; a missing or bad token leaves it anonymous and
// AuthRequired decides whether that is acceptable.
func SessionMiddleware(deps stores.Deps, revoked RevocationChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec := &stores.ToastRecorder{}
		d := deps
		d.Notifier = rec
		session := stores.NewSession(c.Request.Context(), d)
		defer session.Close()

		c.Set(sessionKey, session)
		c.Set(toastsKey, rec)

		if token, ok := bearerToken(c.GetHeader("Authorization")); ok {
			claims, err := utils.ValidateToken(token)
			switch {
			case err != nil:
				c.Set("authError", "Invalid or expired token")
			case revoked != nil && revoked.IsRevoked(c.Request.Context(), claims.GetJTI()):
				c.Set("authError", "Token has been revoked")
			default:
				session.Auth.Restore(c.Request.Context(), token, claims)
				c.Set("userId", claims.UserID)
				c.Set("claims", claims)
			}
		}

		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// AuthRequired rejects anonymous requests.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get("userId"); !exists {
			msg := "Authorization header required"
			if reason := c.GetString("authError"); reason != "" {
				msg = reason
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": msg})
			c.Abort()
			return
		}
		c.Next()
	}
}

// RoleRequired admits signed-in users holding one of roles. Admins always pass.
func RoleRequired(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := GetSession(c)
		if session == nil || session.Auth.CurrentUserID() == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		role := session.Auth.Role()
		if role == models.RoleAdmin {
			c.Next()
			return
		}
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}

		c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
		c.Abort()
	}
}

// AdminOnly restricts access to users with the admin role.
func AdminOnly() gin.HandlerFunc {
	return RoleRequired(models.RoleAdmin)
}

// GetSession returns the request's session, or nil outside SessionMiddleware.
func GetSession(c *gin.Context) *stores.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	s, _ := v.(*stores.Session)
	return s
}

// GetToasts returns the toasts raised while handling the request so far.
func GetToasts(c *gin.Context) []stores.Toast {
	v, ok := c.Get(toastsKey)
	if !ok {
		return nil
	}
	rec, _ := v.(*stores.ToastRecorder)
	if rec == nil {
		return nil
	}
	return rec.Toasts()
}
