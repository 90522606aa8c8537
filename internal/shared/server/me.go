package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"compliance-backend/internal/shared/server/middleware"
	"compliance-backend/internal/shared/server/respond"
)

// registerMeRoutes attaches the /me endpoint.
func registerMeRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", meHandler)
}

// meHandler lets a client confirm which API key principal it is calling as.
func meHandler(c *gin.Context) {
	principal := middleware.PrincipalFromContext(c)
	if principal == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid api key", nil)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{
		"principal": principal,
		"anonymous": principal == middleware.AnonymousPrincipal,
	})
}
