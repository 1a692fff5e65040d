package handler

import (
	"net/http"

	"agentstore-payments/internal/adapter/http/dto"
	"agentstore-payments/internal/core/ports"
	"agentstore-payments/pkg/apperror"
	"agentstore-payments/pkg/response"

	"github.com/gin-gonic/gin"
)

// EntitlementHandler handles entitlement token validation.
type EntitlementHandler struct {
	entitlementSvc ports.EntitlementService
}

// NewEntitlementHandler creates a new EntitlementHandler.
func NewEntitlementHandler(entitlementSvc ports.EntitlementService) *EntitlementHandler {
	return &EntitlementHandler{entitlementSvc: entitlementSvc}
}

// Validate handles POST /api/v1/entitlements/validate.
func (h *EntitlementHandler) Validate(c *gin.Context) {
	var req dto.ValidateTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	grant, err := h.entitlementSvc.ValidateToken(c.Request.Context(), req.Token)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.AccessResponse{
		AccessToken: grant.AccessToken,
		ExpiresAt:   grant.ExpiresAt.Unix(),
		Entitlement: toEntitlementResponse(grant.Entitlement),
	})
}

// HealthCheck handles GET /health — deep health check verifying all dependencies.
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		type depStatus struct {
			Status string `json:"status"`
			Error  string `json:"error,omitempty"`
		}

		deps := make(map[string]depStatus)
		allHealthy := true

		for _, checker := range checkers {
			if err := checker.Ping(c.Request.Context()); err != nil {
				deps[checker.Name()] = depStatus{Status: "unhealthy", Error: err.Error()}
				allHealthy = false
			} else {
				deps[checker.Name()] = depStatus{Status: "healthy"}
			}
		}

		status := "healthy"
		httpCode := http.StatusOK
		if !allHealthy {
			status = "degraded"
			httpCode = http.StatusServiceUnavailable
		}

		c.JSON(httpCode, gin.H{
			"status":       status,
			"dependencies": deps,
		})
	}
}
