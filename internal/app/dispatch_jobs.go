package app

import (
	"context"
	"fmt"

	"service-dispatch/internal/queue"
	"service-dispatch/internal/service/dispatch"
	"service-dispatch/internal/transport/kafka"
)

// makeDispatchHandler routes dispatch jobs from the topic to the
// orchestrator. Unknown kinds are permanent: redelivery cannot fix them.
func makeDispatchHandler(orch *dispatch.Orchestrator) kafka.HandleFunc {
	return func(ctx context.Context, job queue.Job) error {
		switch job.Kind {
		case queue.KindSearch:
			return orch.HandleSearch(ctx, *job.Search, job.Attempt)
		case queue.KindTimeout:
			return orch.HandleTimeout(ctx, *job.Timeout, job.Attempt)
		default:
			return kafka.Permanent(fmt.Errorf("job %s: unknown kind %q", job.ID, job.Kind))
		}
	}
}
