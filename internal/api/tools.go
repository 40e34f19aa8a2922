package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/toolgate/toolgate/pkg/types"
)

func (s *Server) listToolsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, s.gatewayService.Tools())
	}
}

func (s *Server) invokeToolHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input types.ToolInvokeRequest
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if input.Tool == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "tool is required"})
			return
		}

		result := s.gatewayService.InvokeTool(
			c.Request.Context(),
			input.Tool,
			input.Parameters,
			c.GetHeader("Authorization"),
		)
		c.JSON(statusForResult(result), result)
	}
}

func (s *Server) healthCheckHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, s.gatewayService.HealthCheck(c.Request.Context()))
	}
}

// statusForResult maps a tool invocation envelope onto an HTTP status code.
func statusForResult(result *types.ToolInvokeResult) int {
	if !result.IsError() {
		return http.StatusOK
	}
	switch result.Error.Kind {
	case types.ErrorKindUnauthorized:
		return http.StatusUnauthorized
	case types.ErrorKindInvalidInput:
		return http.StatusBadRequest
	case types.ErrorKindRateLimited:
		return http.StatusTooManyRequests
	case types.ErrorKindUpstreamUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
