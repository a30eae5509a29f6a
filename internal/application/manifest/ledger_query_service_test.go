package manifest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/manifest/backend/internal/domain/manifest"
	"github.com/manifest/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLedgerQueryService_LastManifestLog(t *testing.T) {
	ctx := context.Background()

	t.Run("no logs yet", func(t *testing.T) {
		repo := new(MockLedgerRepository)
		repo.On("LastLog", ctx, manifest.OperationCreate).Return(nil, shared.ErrNotFound)
		svc := NewLedgerQueryService(repo)

		view, err := svc.LastManifestLog(ctx)
		require.NoError(t, err)
		assert.Nil(t, view)
	})

	t.Run("returns the newest create log", func(t *testing.T) {
		batchID := uuid.New()
		l, err := manifest.NewResponseLog(batchID, manifest.OperationCreate, map[string]any{"ok": true})
		require.NoError(t, err)

		repo := new(MockLedgerRepository)
		repo.On("LastLog", ctx, manifest.OperationCreate).Return(l, nil)
		svc := NewLedgerQueryService(repo)

		view, err := svc.LastManifestLog(ctx)
		require.NoError(t, err)
		assert.Equal(t, l.ID, view.ID)
		assert.Equal(t, "create", view.Operation)
		assert.JSONEq(t, `{"ok":true}`, string(view.ResponsePayload))
	})
}

func TestLedgerQueryService_BatchLogs(t *testing.T) {
	ctx := context.Background()
	batch := manifest.NewBatch("Main", 1)
	reqLog, _ := manifest.NewRequestLog(batch.ID, manifest.OperationCreate, map[string]any{})
	respLog, _ := manifest.NewResponseLog(batch.ID, manifest.OperationCreate, map[string]any{})

	repo := new(MockLedgerRepository)
	repo.On("FindBatch", ctx, batch.ID).Return(batch, nil)
	repo.On("ListLogs", ctx, batch.ID).Return([]*manifest.Log{reqLog, respLog}, nil)
	svc := NewLedgerQueryService(repo)

	result, err := svc.BatchLogs(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Count)
	assert.Equal(t, "pending", result.Batch.Status)
	assert.Equal(t, reqLog.ID, result.Logs[0].ID)
	assert.Equal(t, respLog.ID, result.Logs[1].ID)

	t.Run("unknown batch", func(t *testing.T) {
		missing := uuid.New()
		repo.On("FindBatch", ctx, missing).Return(nil, shared.ErrNotFound)
		_, err := svc.BatchLogs(ctx, missing)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestLedgerQueryService_PendingBatches(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)
	stuck := manifest.NewBatch("Main", 3)

	repo := new(MockLedgerRepository)
	repo.On("FindPendingBatches", ctx, now.Add(-DefaultPendingBatchAge)).Return([]*manifest.Batch{stuck}, nil)
	svc := NewLedgerQueryService(repo)
	svc.now = func() time.Time { return now }

	views, err := svc.PendingBatches(ctx, DefaultPendingBatchAge)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, stuck.ID, views[0].ID)
	assert.Equal(t, 3, views[0].TotalCount)
	repo.AssertCalled(t, "FindPendingBatches", ctx, mock.AnythingOfType("time.Time"))
}
