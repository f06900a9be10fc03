package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"workflow-service/internal/services"
)

// TemplateHandler handles HTTP requests for templates and workflow
// bindings
type TemplateHandler struct {
	service *services.TemplateService
}

// NewTemplateHandler creates a new TemplateHandler
func NewTemplateHandler(service *services.TemplateService) *TemplateHandler {
	return &TemplateHandler{service: service}
}

// CreateTemplate creates a new workflow template
// @Summary Create workflow template
// @Tags Templates
// @Accept json
// @Produce json
// @Param template body services.TemplateInput true "Template"
// @Success 201 {object} models.WorkflowTemplate
// @Router /api/v1/admin/templates [post]
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	var input services.TemplateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	template, err := h.service.CreateTemplate(c.Request.Context(), tenantID, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, template)
}

// ReviseTemplate writes a new version of a template
// @Summary Revise workflow template
// @Tags Templates
// @Accept json
// @Produce json
// @Param id path string true "Template ID"
// @Param template body services.TemplateInput true "Template"
// @Success 201 {object} models.WorkflowTemplate
// @Router /api/v1/admin/templates/{id}/revisions [post]
func (h *TemplateHandler) ReviseTemplate(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid template id"})
		return
	}

	var input services.TemplateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	template, err := h.service.ReviseTemplate(c.Request.Context(), tenantID, id, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, template)
}

// GetTemplate retrieves a template by ID
// @Summary Get workflow template
// @Tags Templates
// @Produce json
// @Param id path string true "Template ID"
// @Success 200 {object} models.WorkflowTemplate
// @Router /api/v1/admin/templates/{id} [get]
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid template id"})
		return
	}
	template, err := h.service.GetTemplate(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, template)
}

// ListTemplates lists templates visible to the tenant
// @Summary List workflow templates
// @Tags Templates
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/admin/templates [get]
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	templates, err := h.service.ListTemplates(c.Request.Context(), tenantID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"templates": templates})
}

type activateTemplateInput struct {
	Scope string `json:"scope,omitempty"`
}

// ActivateTemplate binds a template to a scope, creating a workflow
// @Summary Activate a template as a workflow
// @Tags Workflows
// @Accept json
// @Produce json
// @Param id path string true "Template ID"
// @Param body body activateTemplateInput false "Scope"
// @Success 201 {object} models.ApprovalWorkflow
// @Router /api/v1/admin/templates/{id}/activate [post]
func (h *TemplateHandler) ActivateTemplate(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid template id"})
		return
	}
	act, ok := requireActor(c)
	if !ok {
		return
	}

	var input activateTemplateInput
	_ = c.ShouldBindJSON(&input)

	workflow, err := h.service.ActivateWorkflow(c.Request.Context(), tenantID, id, input.Scope, act.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, workflow)
}

// ListWorkflows lists the tenant's workflow bindings
// @Summary List workflows
// @Tags Workflows
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/admin/workflows [get]
func (h *TemplateHandler) ListWorkflows(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	workflows, err := h.service.ListWorkflows(c.Request.Context(), tenantID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"workflows": workflows})
}

type setActiveInput struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

// SetWorkflowActive toggles whether a binding accepts new requests
// @Summary Activate or deactivate a workflow binding
// @Tags Workflows
// @Accept json
// @Produce json
// @Param id path string true "Workflow ID"
// @Param body body setActiveInput true "Active flag"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/admin/workflows/{id}/active [put]
func (h *TemplateHandler) SetWorkflowActive(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid workflow id"})
		return
	}

	var input setActiveInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.SetWorkflowActive(c.Request.Context(), id, *input.IsActive); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "isActive": *input.IsActive})
}
