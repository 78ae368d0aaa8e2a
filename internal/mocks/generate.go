// Package mocks provides mock implementations for testing the channel resolution system.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for the core
// interfaces. The mocks are generated using go:generate directives and provide a fluent
// API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	store := mocks.NewMockJobStore(ctrl)
//	store.EXPECT().Get(gomock.Any(), "job_1").Return(rec, nil)
package mocks

// Generate mock for the JobStore interface from internal/core.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=job_store_mock.go github.com/streamnotify/channel-resolver/internal/core JobStore

// Generate mock for the EventBus and EventPublisher interfaces from internal/core.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=event_bus_mock.go github.com/streamnotify/channel-resolver/internal/core EventBus,EventPublisher

// Generate mock for the ChannelDirectory interface from internal/core.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=channel_directory_mock.go github.com/streamnotify/channel-resolver/internal/core ChannelDirectory

// Generate mock for the ArchiveRepository interface from internal/core.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=archive_repository_mock.go github.com/streamnotify/channel-resolver/internal/core ArchiveRepository
