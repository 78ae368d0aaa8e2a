// Package metrics defines the standard metric shapes emitted by the job
// pipeline so that intake, resolution, and sweeping all tag consistently.
package metrics

import (
	"time"

	obserrors "github.com/streamnotify/channel-resolver/internal/observability/errors"
	"github.com/streamnotify/channel-resolver/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// Stage constants identifying where in the pipeline a metric originated.
const (
	StageIntake     = "intake"
	StageResolution = "resolution"
	StageSweep      = "sweep"
)

// JobMetric captures a job lifecycle event for metric emission.
type JobMetric struct {
	Stage    string
	Status   string
	Result   string
	Duration time.Duration
	Err      error
}

// EmitJobLifecycle emits standardised job lifecycle metrics.
func EmitJobLifecycle(sink statsd.Sink, in JobMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"stage":  in.Stage,
		"result": in.Result,
	}
	if in.Status != "" {
		tags["status"] = in.Status
	}

	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("job.transition", 1, tags)

	if in.Duration > 0 {
		sink.Timing("job.duration", in.Duration, CloneTags(tags))
	}
}

// CloneTags creates a shallow copy of a tag map, filtering out empty maps.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
