package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationService_MarkRead_Idempotent(t *testing.T) {
	t.Parallel()

	read := map[uint]bool{}
	repo := noopNotificationRepo()
	repo.markReadFn = func(_ context.Context, _, id uint) (bool, error) {
		if read[id] {
			return false, nil
		}
		read[id] = true
		return true, nil
	}
	svc := NewNotificationService(repo)
	ctx := context.Background()

	updated, err := svc.MarkRead(ctx, 1, 5)
	require.NoError(t, err)
	assert.True(t, updated)

	updated, err = svc.MarkRead(ctx, 1, 5)
	require.NoError(t, err)
	assert.False(t, updated)
}

func TestNotificationService_MarkAllRead(t *testing.T) {
	t.Parallel()

	repo := noopNotificationRepo()
	repo.markAllReadFn = func(_ context.Context, _ uint) (int64, error) { return 4, nil }
	svc := NewNotificationService(repo)

	n, err := svc.MarkAllRead(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}
