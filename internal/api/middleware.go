package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/toolgate/toolgate/internal/gateway"
	"github.com/toolgate/toolgate/pkg/types"
)

// credentialContextFunc copies the Authorization header into the request
// context for MCP tool handlers.
func credentialContextFunc(ctx context.Context, r *http.Request) context.Context {
	return gateway.WithCredential(ctx, r.Header.Get("Authorization"))
}

// requireCredential verifies the bearer credential on non-tool API endpoints.
// Failures get the public unauthorized kind, never the verifier's detail.
func (s *Server) requireCredential() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := s.verifier.Verify(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": &types.ErrorDescriptor{
					Kind:    types.ErrorKindUnauthorized,
					Message: "a valid bearer credential is required",
				},
			})
			return
		}
		c.Set("subject", claims.Subject)
		c.Next()
	}
}
