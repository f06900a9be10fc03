package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"workflow-service/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(handler *RequestHandler, identity gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	if identity != nil {
		router.Use(identity)
	}
	router.POST("/api/v1/requests/:id/actions", handler.ApplyAction)
	router.POST("/api/v1/requests", handler.CreateRequest)
	return router
}

func withIdentity(userID uuid.UUID, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("tenant_id", "tenant-1")
		c.Set("user_id", userID.String())
		c.Set("user_role", role)
		c.Next()
	}
}

func TestApplyAction_InvalidRequestID(t *testing.T) {
	handler := NewRequestHandler(nil)
	router := newRouter(handler, withIdentity(uuid.New(), "reviewer"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/requests/not-a-uuid/actions",
		bytes.NewBufferString(`{"action":"approve"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestApplyAction_MissingIdentity(t *testing.T) {
	handler := NewRequestHandler(nil)
	router := newRouter(handler, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/requests/"+uuid.NewString()+"/actions",
		bytes.NewBufferString(`{"action":"approve"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestApplyAction_UnknownRole(t *testing.T) {
	handler := NewRequestHandler(nil)
	router := newRouter(handler, withIdentity(uuid.New(), "wizard"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/requests/"+uuid.NewString()+"/actions",
		bytes.NewBufferString(`{"action":"approve"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateRequest_MalformedBody(t *testing.T) {
	handler := NewRequestHandler(nil)
	router := newRouter(handler, withIdentity(uuid.New(), "editor"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/requests",
		bytes.NewBufferString(`{"workflowId": 42}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[error]int{
		services.ErrRequestNotFound:        http.StatusNotFound,
		services.ErrWorkflowNotFound:       http.StatusNotFound,
		services.ErrTemplateNotFound:       http.StatusNotFound,
		services.ErrPermissionDenied:       http.StatusForbidden,
		services.ErrNotAssigned:            http.StatusForbidden,
		services.ErrSelfApprovalNotAllowed: http.StatusForbidden,
		services.ErrAlreadyFinalized:       http.StatusConflict,
		services.ErrStateConflict:          http.StatusConflict,
		services.ErrActiveRequestExists:    http.StatusConflict,
		services.ErrDuplicateDecision:      http.StatusConflict,
		services.ErrWorkflowInactive:       http.StatusUnprocessableEntity,
		services.ErrTemplateNotApplicable:  http.StatusUnprocessableEntity,
		services.ErrTemplateInvalid:        http.StatusUnprocessableEntity,
		services.ErrDelegationOverlap:      http.StatusConflict,
	}
	for err, want := range cases {
		assert.Equal(t, want, httpStatus(err), err.Error())
	}
	assert.Equal(t, http.StatusInternalServerError, httpStatus(assert.AnError))
}

func TestPaginationBounds(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?limit=1000&offset=-5", nil)

	limit, offset := pagination(c)
	assert.Equal(t, 50, limit)
	assert.Equal(t, 0, offset)
}
