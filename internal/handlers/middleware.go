package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
)

const adminContextKey = "admin"

// AdminMiddleware rejects requests without a valid admin Bearer token.
// The admin's username is stored in the gin context under "admin".
func (h *HTTPHandler) AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
			return
		}
		claims, err := h.auth.Verify(token)
		if err != nil {
			logger.Warningf("rejected admin token on %s: %v", c.Request.URL.Path, err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
			return
		}
		c.Set(adminContextKey, claims.Username)
		c.Next()
	}
}

func bearerToken(header string) string {
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
