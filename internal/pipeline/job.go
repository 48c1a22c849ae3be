package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/jonathan/blog-agent/internal/queue"
	"github.com/jonathan/blog-agent/internal/types"
)

// HandleJob runs a queued PublishRequest and reports stage progress on the job.
func (s *Service) HandleJob(ctx context.Context, job *queue.Job) (any, error) {
	var req types.PublishRequest
	if err := job.Decode(&req); err != nil {
		return nil, err
	}

	progress := func(ev ProgressEvent) {
		if err := job.UpdateProgress(ctx, ev.Percent); err != nil {
			s.logger.Warn("failed to record job progress", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
	return s.Publish(ctx, req, progress)
}
