package lock

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "vigil/pkg/domain"
	"vigil/pkg/platform/sentinel"
)

func TestMemoryLock(t *testing.T) {
	ctx := context.Background()
	locks := NewMemory()
	visitID := id.VisitID(uuid.New())

	t.Run("second acquire fails while held", func(t *testing.T) {
		release, err := locks.Acquire(ctx, visitID)
		require.NoError(t, err)

		_, err = locks.Acquire(ctx, visitID)
		assert.ErrorIs(t, err, sentinel.ErrLockHeld)

		release()
		release2, err := locks.Acquire(ctx, visitID)
		require.NoError(t, err, "lock is free again after release")
		release2()
	})

	t.Run("different visits do not contend", func(t *testing.T) {
		releaseA, err := locks.Acquire(ctx, visitID)
		require.NoError(t, err)
		defer releaseA()

		releaseB, err := locks.Acquire(ctx, id.VisitID(uuid.New()))
		require.NoError(t, err)
		releaseB()
	})

	t.Run("release is idempotent", func(t *testing.T) {
		otherID := id.VisitID(uuid.New())
		release, err := locks.Acquire(ctx, otherID)
		require.NoError(t, err)
		release()
		release()

		again, err := locks.Acquire(ctx, otherID)
		require.NoError(t, err)
		again()
	})
}
