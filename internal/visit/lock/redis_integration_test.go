//go:build integration

package lock_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"vigil/internal/visit/lock"
	id "vigil/pkg/domain"
	"vigil/pkg/platform/sentinel"
	"vigil/pkg/testutil/containers"
)

type RedisLockSuite struct {
	suite.Suite
	redis *containers.RedisContainer
}

func TestRedisLockSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisLockSuite))
}

func (s *RedisLockSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
}

func (s *RedisLockSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisLockSuite) TestSingleWriterAcrossClients() {
	ctx := context.Background()
	visitID := id.VisitID(uuid.New())

	// Two locks over the same backend model two engine instances.
	first := lock.NewRedis(s.redis.Client)
	second := lock.NewRedis(s.redis.Client)

	release, err := first.Acquire(ctx, visitID)
	s.Require().NoError(err)

	_, err = second.Acquire(ctx, visitID)
	s.Require().ErrorIs(err, sentinel.ErrLockHeld)

	release()

	release2, err := second.Acquire(ctx, visitID)
	s.Require().NoError(err, "lock transfers after release")
	release2()
}

func (s *RedisLockSuite) TestExpiredLockIsReacquirable() {
	ctx := context.Background()
	visitID := id.VisitID(uuid.New())

	short := lock.NewRedis(s.redis.Client, lock.WithTTL(50*time.Millisecond))
	staleRelease, err := short.Acquire(ctx, visitID)
	s.Require().NoError(err)

	time.Sleep(100 * time.Millisecond)

	normal := lock.NewRedis(s.redis.Client)
	release, err := normal.Acquire(ctx, visitID)
	s.Require().NoError(err, "expired lock no longer blocks")

	// The stale owner's release must not free the new owner's lock.
	staleRelease()
	_, err = short.Acquire(ctx, visitID)
	s.Require().ErrorIs(err, sentinel.ErrLockHeld)

	release()
}
