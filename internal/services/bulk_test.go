package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"workflow-service/internal/models"
)

func TestApplyBulk_IsolatesFailures(t *testing.T) {
	template := twoStageTemplate()

	finalized := requestInReview(template)
	finalized.Status = models.StatusApproved
	finalized.SetStageIndices(nil)
	open1 := requestInReview(template)
	open2 := requestInReview(template)

	repo := new(MockRequestRepository)
	repo.On("GetRequestForUpdate", mock.Anything, finalized.ID).Return(finalized, nil)
	repo.On("GetRequestForUpdate", mock.Anything, open1.ID).Return(open1, nil)
	repo.On("GetRequestForUpdate", mock.Anything, open2.ID).Return(open2, nil)
	repo.On("SaveStageInstance", mock.Anything, mock.Anything).Return(nil)
	repo.On("UpdateRequest", mock.Anything, mock.Anything).Return(nil)
	repo.On("CreateAction", mock.Anything, mock.Anything).Return(nil)
	svc, _ := newTestService(repo)

	res, err := svc.ApplyBulk(context.Background(), uuid.New(), models.RoleReviewer, BulkActionInput{
		RequestIDs: []uuid.UUID{finalized.ID, open1.ID, open2.ID},
		Action:     models.ActionApprove,
	})
	assert.NoError(t, err)
	assert.Len(t, res.Items, 3)
	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 1, res.Failed)

	// results preserve input order
	assert.Equal(t, finalized.ID, res.Items[0].RequestID)
	assert.False(t, res.Items[0].Succeeded)
	assert.Equal(t, "ALREADY_FINALIZED", res.Items[0].ErrorCode)
	assert.True(t, res.Items[1].Succeeded)
	assert.Equal(t, models.StatusInProgress, res.Items[1].Status)
	assert.True(t, res.Items[2].Succeeded)
}

func TestApplyBulk_EmptyAndOversized(t *testing.T) {
	repo := new(MockRequestRepository)
	svc, _ := newTestService(repo)

	res, err := svc.ApplyBulk(context.Background(), uuid.New(), models.RoleReviewer, BulkActionInput{
		Action: models.ActionApprove,
	})
	assert.NoError(t, err)
	assert.Empty(t, res.Items)

	ids := make([]uuid.UUID, MaxBulkItems+1)
	for i := range ids {
		ids[i] = uuid.New()
	}
	_, err = svc.ApplyBulk(context.Background(), uuid.New(), models.RoleReviewer, BulkActionInput{
		RequestIDs: ids,
		Action:     models.ActionApprove,
	})
	assert.ErrorIs(t, err, ErrBulkTooLarge)
}
