package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"workflow-service/internal/models"
)

// Entity states pushed to the owning service when a request finalizes
const (
	EntityStateDraft     = "draft"
	EntityStateApproved  = "approved"
	EntityStateRejected  = "rejected"
	EntityStatePublished = "published"
)

// EntityStateSetter pushes workflow outcomes to the service that owns the
// target entity
type EntityStateSetter interface {
	SetEntityState(ctx context.Context, targetType models.TargetType, targetID uuid.UUID, state string) error
}

// EntityClient is the HTTP implementation of EntityStateSetter
type EntityClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewEntityClient creates an entity client against the given base URL
func NewEntityClient(baseURL string) *EntityClient {
	return &EntityClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type entityStateRequest struct {
	State  string `json:"state"`
	Source string `json:"source"`
}

// SetEntityState posts the new state to the entity service
func (c *EntityClient) SetEntityState(ctx context.Context, targetType models.TargetType, targetID uuid.UUID, state string) error {
	payload, err := json.Marshal(entityStateRequest{State: state, Source: "workflow-service"})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/api/v1/entities/%s/%s/state", c.baseURL, targetType, targetID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("entity state update failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("entity service returned status %d for %s/%s", resp.StatusCode, targetType, targetID)
	}
	return nil
}
