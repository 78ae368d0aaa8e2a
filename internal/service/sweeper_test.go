package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/streamnotify/channel-resolver/config"
	"github.com/streamnotify/channel-resolver/internal/domain/model"
	"github.com/streamnotify/channel-resolver/internal/mocks"
)

func newTestSweeper(t *testing.T) (*SweeperService, *mocks.MockJobStore, *mocks.MockEventPublisher) {
	t.Helper()
	ctrl := gomock.NewController(t)
	store := mocks.NewMockJobStore(ctrl)
	bus := mocks.NewMockEventPublisher(ctrl)

	cfg := config.SweeperConfig{
		Interval:        time.Minute,
		ResolvingMaxAge: 10 * time.Minute,
		BatchSize:       100,
	}

	svc, err := NewSweeperService(SweeperServiceOptions{
		Store:  store,
		Bus:    bus,
		Config: cfg,
		Now:    testClock,
	})
	require.NoError(t, err)
	return svc, store, bus
}

func stuckRecord(t *testing.T, channel, email string) model.JobRecord {
	t.Helper()
	created := testClock().Add(-time.Hour)
	rec := model.NewJobRecord(channel, email, created)
	require.NoError(t, rec.MarkResolving(created))
	return rec
}

func TestNewSweeperServiceRequiresDeps(t *testing.T) {
	ctrl := gomock.NewController(t)

	_, err := NewSweeperService(SweeperServiceOptions{Bus: mocks.NewMockEventPublisher(ctrl)})
	require.Error(t, err)

	_, err = NewSweeperService(SweeperServiceOptions{Store: mocks.NewMockJobStore(ctrl)})
	require.Error(t, err)
}

func TestSweepRepublishesStuckJobs(t *testing.T) {
	svc, store, bus := newTestSweeper(t)
	ctx := context.Background()

	first := stuckRecord(t, "@first", "first@example.com")
	second := stuckRecord(t, "@second", "second@example.com")

	store.EXPECT().
		StuckResolving(gomock.Any(), testClock().Add(-10*time.Minute), 100).
		Return([]model.JobRecord{first, second}, nil)

	var published []model.JobSubmitted
	bus.EXPECT().
		Publish(gomock.Any(), model.TopicJobSubmitted, gomock.Any()).
		Times(2).
		DoAndReturn(func(_ context.Context, _ string, payload any) error {
			published = append(published, payload.(model.JobSubmitted))
			return nil
		})

	require.NoError(t, svc.sweep(ctx))

	require.Len(t, published, 2)
	assert.Equal(t, model.JobSubmitted{
		JobID:   first.JobID,
		Channel: "@first",
		Email:   "first@example.com",
	}, published[0])
	assert.Equal(t, second.JobID, published[1].JobID)
}

func TestSweepNothingStuck(t *testing.T) {
	svc, store, _ := newTestSweeper(t)

	store.EXPECT().
		StuckResolving(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, nil)

	require.NoError(t, svc.sweep(context.Background()))
}

func TestSweepPublishErrorContinues(t *testing.T) {
	svc, store, bus := newTestSweeper(t)

	first := stuckRecord(t, "@first", "first@example.com")
	second := stuckRecord(t, "@second", "second@example.com")

	store.EXPECT().
		StuckResolving(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]model.JobRecord{first, second}, nil)

	gomock.InOrder(
		bus.EXPECT().
			Publish(gomock.Any(), model.TopicJobSubmitted, gomock.Any()).
			Return(errors.New("bus down")),
		bus.EXPECT().
			Publish(gomock.Any(), model.TopicJobSubmitted, gomock.Any()).
			Return(nil),
	)

	err := svc.sweep(context.Background())
	require.Error(t, err, "partial failure still reported")
}

func TestSweepScanError(t *testing.T) {
	svc, store, _ := newTestSweeper(t)

	store.EXPECT().
		StuckResolving(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("scan failed"))

	err := svc.sweep(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan stuck jobs")
}

func TestSweeperRunStopsOnCancel(t *testing.T) {
	svc, store, _ := newTestSweeper(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store.EXPECT().
		StuckResolving(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, context.Canceled).
		AnyTimes()

	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err, "cancellation is a graceful shutdown")
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}
