package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"credledger/pkg/platform/circuit"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Begin(ctx context.Context, key, requestHash string, ttl time.Duration) (*Record, error) {
	args := m.Called(ctx, key, requestHash, ttl)
	rec, _ := args.Get(0).(*Record)
	return rec, args.Error(1)
}

func (m *mockStore) Complete(ctx context.Context, key string, rec Record, ttl time.Duration) error {
	return m.Called(ctx, key, rec, ttl).Error(0)
}

func (m *mockStore) Release(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

// FallbackStoreSuite covers routing between Redis and the in-process store.
//
// Justification: a key reserved in one store must finish in the same store or
// a retry would run the handler twice.
type FallbackStoreSuite struct {
	suite.Suite
	primary  *mockStore
	fallback *MemoryStore
	store    *FallbackStore
	ctx      context.Context
}

func TestFallbackStoreSuite(t *testing.T) {
	suite.Run(t, new(FallbackStoreSuite))
}

func (s *FallbackStoreSuite) SetupTest() {
	s.primary = new(mockStore)
	s.fallback = NewMemoryStore()
	s.store = NewFallbackStore(s.primary, s.fallback,
		circuit.New("redis", circuit.WithFailureThreshold(2), circuit.WithSuccessThreshold(1)), nil)
	s.ctx = context.Background()
}

func (s *FallbackStoreSuite) TearDownTest() {
	s.primary.AssertExpectations(s.T())
}

func (s *FallbackStoreSuite) TestHealthyPrimary() {
	s.primary.On("Begin", s.ctx, "k", "h", time.Minute).Return(nil, nil).Once()
	s.primary.On("Complete", s.ctx, "k", mock.Anything, time.Minute).Return(nil).Once()

	rec, err := s.store.Begin(s.ctx, "k", "h", time.Minute)
	s.Require().NoError(err)
	s.Nil(rec)
	s.NoError(s.store.Complete(s.ctx, "k", Record{Status: 201}, time.Minute))
}

func (s *FallbackStoreSuite) TestInProgressIsNotAFailure() {
	s.primary.On("Begin", s.ctx, "k", "h", time.Minute).Return(nil, ErrInProgress).Times(3)
	for range 3 {
		_, err := s.store.Begin(s.ctx, "k", "h", time.Minute)
		s.ErrorIs(err, ErrInProgress)
	}
}

func (s *FallbackStoreSuite) TestFailsOverWhenBreakerOpens() {
	down := errors.New("connection refused")
	s.primary.On("Begin", s.ctx, mock.Anything, "h", time.Minute).Return(nil, down).Twice()

	_, err := s.store.Begin(s.ctx, "k1", "h", time.Minute)
	s.ErrorIs(err, down, "below the threshold the error surfaces")

	rec, err := s.store.Begin(s.ctx, "k2", "h", time.Minute)
	s.Require().NoError(err, "threshold reached, fallback reserved the key")
	s.Nil(rec)

	s.Require().NoError(s.store.Complete(s.ctx, "k2", Record{RequestHash: "h", Status: 201}, time.Minute))
	replay, err := s.fallback.Begin(s.ctx, "k2", "h", time.Minute)
	s.Require().NoError(err)
	s.Require().NotNil(replay)
	s.Equal(201, replay.Status)
}

func (s *FallbackStoreSuite) TestRecoversAndRoutesReleases() {
	down := errors.New("timeout")
	s.primary.On("Begin", s.ctx, "k1", "h", time.Minute).Return(nil, down).Once()
	s.primary.On("Begin", s.ctx, "k2", "h", time.Minute).Return(nil, down).Once()
	s.primary.On("Begin", s.ctx, "k3", "h", time.Minute).Return(nil, nil).Once()
	s.primary.On("Release", s.ctx, "k3").Return(nil).Once()

	_, _ = s.store.Begin(s.ctx, "k1", "h", time.Minute)
	_, err := s.store.Begin(s.ctx, "k2", "h", time.Minute)
	s.Require().NoError(err)

	_, err = s.store.Begin(s.ctx, "k3", "h", time.Minute)
	s.Require().NoError(err)

	s.NoError(s.store.Release(s.ctx, "k2"), "reserved in fallback, released there")
	s.NoError(s.store.Release(s.ctx, "k3"))

	rec, err := s.fallback.Begin(s.ctx, "k2", "h", time.Minute)
	s.NoError(err)
	s.Nil(rec)
}
