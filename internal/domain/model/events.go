package model

import "errors"

// Event topics carried by the bus. Payloads are the structs below; handlers
// validate at the boundary and drop what they cannot route.
const (
	// TopicJobSubmitted announces a freshly queued (or swept) job.
	TopicJobSubmitted = "jobs.submitted"
	// TopicChannelResolved announces a successful terminal outcome.
	TopicChannelResolved = "channels.resolved"
	// TopicChannelResolutionFailed announces a failed terminal outcome.
	TopicChannelResolutionFailed = "channels.resolution_failed"
)

// JobSubmitted is published by the intake after the job record is durably
// written, and re-published by the sweeper for stuck jobs.
type JobSubmitted struct {
	JobID   string `json:"jobId"`
	Channel string `json:"channel"`
	Email   string `json:"email"`
}

// ErrUnroutableEvent indicates an inbound event lacks the fields needed to
// report an outcome anywhere. Such events are logged and dropped; the
// system never fabricates a notification destination.
var ErrUnroutableEvent = errors.New("event is missing jobId or email")

// Routable reports whether a failure for this event could be attributed to
// a job and delivered to a user.
func (e *JobSubmitted) Routable() bool {
	return e.JobID != "" && e.Email != ""
}

// ChannelResolved is published when a job reaches the resolved state. It is
// consumed by the downstream notification service.
type ChannelResolved struct {
	JobID       string `json:"jobId"`
	Email       string `json:"email"`
	ChannelID   string `json:"channelId"`
	ChannelName string `json:"channelName"`
}

// ChannelResolutionFailed is published when a job reaches the failed state.
type ChannelResolutionFailed struct {
	JobID string `json:"jobId"`
	Email string `json:"email"`
	Error string `json:"error"`
}
