package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/siteworks/siteworks-cli/internal/dem"
	"github.com/siteworks/siteworks-cli/internal/resilience"
)

// EnqueueDEM builds an elevation-grid job for the boundary and hands
// it to the queue. Zero resolution or empty method fall back to the
// configured defaults. Returns the job payload and the queue message
// id.
func (s *Service) EnqueueDEM(ctx context.Context, boundaryID string, resolutionM float64, method string) (*dem.JobPayload, string, error) {
	boundary, err := s.store.GetBoundary(ctx, boundaryID)
	if err != nil {
		return nil, "", err
	}

	if resolutionM == 0 {
		resolutionM = s.cfg.DEM.DefaultResolutionM
	}
	if method == "" {
		method = s.cfg.DEM.DefaultMethod
	}

	job, err := dem.NewJob(boundary.ProjectID, boundary.ID, boundary.Geometry, resolutionM, method)
	if err != nil {
		return nil, "", err
	}
	payload, err := job.Marshal()
	if err != nil {
		return nil, "", err
	}

	retryCfg := resilience.DefaultRetryConfig()
	retryCfg.OnRetry = resilience.RetryLogger("queue", "enqueue")
	msgID, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (string, error) {
		return s.queue.Enqueue(ctx, payload)
	})
	if err != nil {
		return nil, "", err
	}
	zap.L().Info("DEM job enqueued",
		zap.String("job_id", job.JobID),
		zap.String("boundary_id", boundaryID),
		zap.String("message_id", msgID),
		zap.Float64("resolution_m", resolutionM),
		zap.String("method", method))
	return job, msgID, nil
}
