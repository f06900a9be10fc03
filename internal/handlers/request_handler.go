package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"workflow-service/internal/models"
	"workflow-service/internal/services"
)

// RequestHandler handles HTTP requests for approval requests
type RequestHandler struct {
	service *services.RequestService
}

// NewRequestHandler creates a new RequestHandler
func NewRequestHandler(service *services.RequestService) *RequestHandler {
	return &RequestHandler{service: service}
}

type actor struct {
	ID   uuid.UUID
	Role models.Role
	Name string
}

// requireActor pulls the authenticated identity off the gin context
func requireActor(c *gin.Context) (actor, bool) {
	userIDStr := c.GetString("user_id")
	roleStr := c.GetString("user_role")
	if userIDStr == "" || roleStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user identity is required"})
		return actor{}, false
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return actor{}, false
	}
	role := models.Role(roleStr)
	if !role.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown role"})
		return actor{}, false
	}
	return actor{ID: userID, Role: role, Name: c.GetString("user_name")}, true
}

// httpStatus maps engine errors to HTTP status codes
func httpStatus(err error) int {
	switch services.ErrorCode(err) {
	case "NOT_FOUND":
		return http.StatusNotFound
	case "PERMISSION_DENIED", "NOT_ASSIGNED", "SELF_APPROVAL":
		return http.StatusForbidden
	case "ALREADY_FINALIZED", "STATE_CONFLICT", "ACTIVE_REQUEST_EXISTS", "DUPLICATE_DECISION":
		return http.StatusConflict
	case "WORKFLOW_INACTIVE", "TEMPLATE_NOT_APPLICABLE":
		return http.StatusUnprocessableEntity
	}
	switch {
	case errors.Is(err, services.ErrTemplateInvalid):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrTemplateNotFound), errors.Is(err, services.ErrDelegationNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrDelegationOverlap):
		return http.StatusConflict
	case errors.Is(err, services.ErrDelegationNotYours):
		return http.StatusForbidden
	case errors.Is(err, services.ErrSelfDelegation),
		errors.Is(err, services.ErrRoleNotDelegatable),
		errors.Is(err, services.ErrDelegationInvalid):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	status := httpStatus(err)
	if status == http.StatusInternalServerError {
		c.JSON(status, gin.H{"error": "An internal error occurred", "code": "INTERNAL"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": services.ErrorCode(err)})
}

// CreateRequest creates a new approval request
// @Summary Create approval request
// @Tags Requests
// @Accept json
// @Produce json
// @Param request body services.CreateRequestInput true "Create Request"
// @Success 201 {object} models.ApprovalRequest
// @Router /api/v1/requests [post]
func (h *RequestHandler) CreateRequest(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	act, ok := requireActor(c)
	if !ok {
		return
	}

	var input services.CreateRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	request, err := h.service.CreateRequest(c.Request.Context(), tenantID, act.ID, act.Name, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, request)
}

// GetRequest retrieves an approval request by ID
// @Summary Get approval request
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} models.ApprovalRequest
// @Router /api/v1/requests/{id} [get]
func (h *RequestHandler) GetRequest(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}
	request, err := h.service.GetRequest(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

// ListRequests lists approval requests for the tenant
// @Summary List approval requests
// @Tags Requests
// @Produce json
// @Param status query string false "Status filter"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/requests [get]
func (h *RequestHandler) ListRequests(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	limit, offset := pagination(c)

	requests, total, err := h.service.ListRequests(c.Request.Context(), tenantID, c.Query("status"), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests, "total": total, "limit": limit, "offset": offset})
}

// ListMyRequests lists requests submitted by the caller
// @Summary List own approval requests
// @Tags Requests
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/requests/my-requests [get]
func (h *RequestHandler) ListMyRequests(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	act, ok := requireActor(c)
	if !ok {
		return
	}
	limit, offset := pagination(c)

	requests, total, err := h.service.ListMyRequests(c.Request.Context(), tenantID, act.ID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests, "total": total, "limit": limit, "offset": offset})
}

// GetHistory retrieves the audit trail of a request
// @Summary Get request history
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {array} models.ApprovalAction
// @Router /api/v1/requests/{id}/history [get]
func (h *RequestHandler) GetHistory(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}
	actions, err := h.service.GetRequestHistory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"actions": actions})
}

// ApplyAction applies one action to a request
// @Summary Apply an action to a request
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param action body services.ActionInput true "Action"
// @Success 200 {object} services.ApplyResult
// @Router /api/v1/requests/{id}/actions [post]
func (h *RequestHandler) ApplyAction(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}
	act, ok := requireActor(c)
	if !ok {
		return
	}

	var input services.ActionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	input.ActorID = act.ID
	input.ActorRole = act.Role

	result, err := h.service.Apply(c.Request.Context(), id, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CancelRequest is the cancel shortcut for the requester
// @Summary Cancel approval request
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} services.ApplyResult
// @Router /api/v1/requests/{id} [delete]
func (h *RequestHandler) CancelRequest(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}
	act, ok := requireActor(c)
	if !ok {
		return
	}

	result, err := h.service.Apply(c.Request.Context(), id, services.ActionInput{
		ActorID:   act.ID,
		ActorRole: act.Role,
		Action:    models.ActionCancel,
		Comment:   c.Query("reason"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// BulkAction applies one action to many requests
// @Summary Apply an action to many requests
// @Tags Requests
// @Accept json
// @Produce json
// @Param bulk body services.BulkActionInput true "Bulk Action"
// @Success 200 {object} services.BulkResult
// @Router /api/v1/requests/bulk-actions [post]
func (h *RequestHandler) BulkAction(c *gin.Context) {
	act, ok := requireActor(c)
	if !ok {
		return
	}

	var input services.BulkActionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.ApplyBulk(c.Request.Context(), act.ID, act.Role, input)
	if err != nil {
		if errors.Is(err, services.ErrBulkTooLarge) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func pagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
