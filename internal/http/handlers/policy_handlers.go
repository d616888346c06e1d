package handlers

import (
	"net/http"

	"github.com/dadecresce/maestro-energy-management-sub000/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PolicyHandlers manages RBAC policies
type PolicyHandlers struct {
	policies domain.PolicyService
	logger   *zap.Logger
}

// NewPolicyHandlers creates policy handlers
func NewPolicyHandlers(policies domain.PolicyService, logger *zap.Logger) *PolicyHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PolicyHandlers{policies: policies, logger: logger.Named("http")}
}

// PolicyRequest is one policy rule; Sub is a role subject such as role_admin
type PolicyRequest struct {
	Sub string `json:"sub" binding:"required"`
	Obj string `json:"obj" binding:"required"`
	Act string `json:"act" binding:"required"`
}

func (h *PolicyHandlers) List(c *gin.Context) {
	policies := h.policies.GetPolicies()
	if policies == nil {
		policies = [][]string{}
	}
	c.JSON(http.StatusOK, gin.H{"data": policies})
}

func (h *PolicyHandlers) Add(c *gin.Context) {
	var r PolicyRequest
	if err := c.ShouldBindJSON(&r); err != nil {
		respondBindError(c, err)
		return
	}
	if err := h.policies.AddPolicy(r.Sub, r.Obj, r.Act); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PolicyHandlers) Remove(c *gin.Context) {
	var r PolicyRequest
	if err := c.ShouldBindJSON(&r); err != nil {
		respondBindError(c, err)
		return
	}
	if err := h.policies.RemovePolicy(r.Sub, r.Obj, r.Act); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
