package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/jonathan/blog-agent/internal/types"
)

// PublishBatch publishes each topic in order. Failed topics are logged and
// left out of the result; later topics still run.
func (s *Service) PublishBatch(ctx context.Context, req types.BatchRequest) ([]*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	requests := req.Requests()
	results := make([]*Result, 0, len(requests))
	for i, r := range requests {
		if ctx.Err() != nil {
			s.logger.Warn("batch interrupted", zap.Int("remaining", len(requests)-i), zap.Error(ctx.Err()))
			break
		}
		res, err := s.Publish(ctx, r, nil)
		if err != nil {
			s.logger.Error("failed to generate topic",
				zap.Int("index", i),
				zap.String("topic", r.Topic),
				zap.Error(err))
			continue
		}
		results = append(results, res)
	}

	s.logger.Info("batch finished", zap.Int("requested", len(requests)), zap.Int("created", len(results)))
	return results, nil
}
