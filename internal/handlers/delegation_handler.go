package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"workflow-service/internal/services"
)

// DelegationHandler handles HTTP requests for approval delegations
type DelegationHandler struct {
	service *services.DelegationService
}

// NewDelegationHandler creates a new DelegationHandler
func NewDelegationHandler(service *services.DelegationService) *DelegationHandler {
	return &DelegationHandler{service: service}
}

// CreateDelegation creates a new delegation
// @Summary Create delegation
// @Tags Delegations
// @Accept json
// @Produce json
// @Param delegation body services.CreateDelegationInput true "Delegation"
// @Success 201 {object} models.ApprovalDelegation
// @Router /api/v1/delegations [post]
func (h *DelegationHandler) CreateDelegation(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	act, ok := requireActor(c)
	if !ok {
		return
	}

	var input services.CreateDelegationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	delegation, err := h.service.CreateDelegation(c.Request.Context(), tenantID, act.ID, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, delegation)
}

type revokeInput struct {
	Reason string `json:"reason,omitempty"`
}

// RevokeDelegation revokes a delegation before its end date
// @Summary Revoke delegation
// @Tags Delegations
// @Accept json
// @Produce json
// @Param id path string true "Delegation ID"
// @Param body body revokeInput false "Reason"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/delegations/{id}/revoke [post]
func (h *DelegationHandler) RevokeDelegation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid delegation id"})
		return
	}
	act, ok := requireActor(c)
	if !ok {
		return
	}

	var input revokeInput
	_ = c.ShouldBindJSON(&input)

	if err := h.service.RevokeDelegation(c.Request.Context(), id, act.ID, act.Role, input.Reason); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "revoked": true})
}

// ListGiven lists delegations created by the caller
// @Summary List delegations given
// @Tags Delegations
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/delegations/given [get]
func (h *DelegationHandler) ListGiven(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	act, ok := requireActor(c)
	if !ok {
		return
	}
	includeExpired := c.Query("includeExpired") == "true"

	delegations, err := h.service.ListGiven(c.Request.Context(), tenantID, act.ID, includeExpired)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"delegations": delegations})
}

// ListReceived lists delegations granted to the caller
// @Summary List delegations received
// @Tags Delegations
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/delegations/received [get]
func (h *DelegationHandler) ListReceived(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	act, ok := requireActor(c)
	if !ok {
		return
	}
	includeExpired := c.Query("includeExpired") == "true"

	delegations, err := h.service.ListReceived(c.Request.Context(), tenantID, act.ID, includeExpired)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"delegations": delegations})
}
