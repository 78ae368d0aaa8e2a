package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/streamnotify/channel-resolver/internal/domain/model"
	apperrors "github.com/streamnotify/channel-resolver/internal/errors"
	"github.com/streamnotify/channel-resolver/internal/mocks"
)

var testClock = func() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func newTestIntake(t *testing.T) (*IntakeService, *mocks.MockJobStore, *mocks.MockEventPublisher) {
	t.Helper()
	ctrl := gomock.NewController(t)
	store := mocks.NewMockJobStore(ctrl)
	bus := mocks.NewMockEventPublisher(ctrl)

	svc, err := NewIntakeService(IntakeServiceOptions{
		Store: store,
		Bus:   bus,
		Now:   testClock,
	})
	require.NoError(t, err)
	return svc, store, bus
}

func TestNewIntakeServiceRequiresDeps(t *testing.T) {
	ctrl := gomock.NewController(t)

	_, err := NewIntakeService(IntakeServiceOptions{Bus: mocks.NewMockEventPublisher(ctrl)})
	require.Error(t, err)

	_, err = NewIntakeService(IntakeServiceOptions{Store: mocks.NewMockJobStore(ctrl)})
	require.Error(t, err)
}

func TestSubmitValidation(t *testing.T) {
	tests := []struct {
		name  string
		req   SubmitRequest
		field string
	}{
		{name: "empty channel", req: SubmitRequest{Email: "user@example.com"}, field: "channel"},
		{name: "blank channel", req: SubmitRequest{Channel: "   ", Email: "user@example.com"}, field: "channel"},
		{name: "empty email", req: SubmitRequest{Channel: "@someone"}, field: "email"},
		{name: "malformed email", req: SubmitRequest{Channel: "@someone", Email: "not-an-email"}, field: "email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newTestIntake(t)

			_, err := svc.Submit(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))

			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.field, appErr.Field)
		})
	}
}

func TestSubmitSuccess(t *testing.T) {
	svc, store, bus := newTestIntake(t)
	ctx := context.Background()

	var created model.JobRecord
	store.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, rec model.JobRecord) error {
			created = rec
			return nil
		})

	var published model.JobSubmitted
	bus.EXPECT().
		Publish(gomock.Any(), model.TopicJobSubmitted, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, payload any) error {
			published = payload.(model.JobSubmitted)
			return nil
		})

	rec, err := svc.Submit(ctx, SubmitRequest{Channel: "  @someone  ", Email: "user@example.com"})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(rec.JobID, "job_"))
	assert.Equal(t, "@someone", rec.ChannelInput, "input should be trimmed")
	assert.Equal(t, model.JobStatusQueued, rec.Status)
	assert.Equal(t, testClock(), rec.CreatedAt)

	assert.Equal(t, created.JobID, rec.JobID)
	assert.Equal(t, model.JobSubmitted{
		JobID:   rec.JobID,
		Channel: "@someone",
		Email:   "user@example.com",
	}, published)
}

func TestSubmitStoreErrorSkipsPublish(t *testing.T) {
	svc, store, _ := newTestIntake(t)

	store.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		Return(errors.New("store down"))

	_, err := svc.Submit(context.Background(), SubmitRequest{Channel: "@someone", Email: "user@example.com"})
	require.Error(t, err)
}

func TestSubmitPublishErrorSurfaces(t *testing.T) {
	svc, store, bus := newTestIntake(t)

	store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	bus.EXPECT().
		Publish(gomock.Any(), model.TopicJobSubmitted, gomock.Any()).
		Return(errors.New("bus down"))

	_, err := svc.Submit(context.Background(), SubmitRequest{Channel: "@someone", Email: "user@example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish submission event")
}
