package server

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/motorbook/internal/observability/context"
)

const adminActor = "admin"

// AdminRequired checks the bearer token against ADMIN_TOKEN. Routes are open when no token is configured.
func (s *Server) AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		expected := strings.TrimSpace(s.cfg.AdminToken)
		if expected == "" {
			c.Next()
			return
		}

		parts := strings.Fields(strings.TrimSpace(c.GetHeader("Authorization")))
		if len(parts) != 2 || parts[0] != "Bearer" {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(expected)) != 1 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Request = c.Request.WithContext(obscontext.WithActor(c.Request.Context(), adminActor))
		c.Next()
	}
}

func setDocumentType(c *gin.Context, documentType string) {
	if documentType = strings.TrimSpace(documentType); documentType != "" {
		c.Set(obscontext.DocumentTypeKey, documentType)
	}
}
