package job

import (
	"context"
	"fmt"

	rds "verifront/internal/platform/redis"
)

type Service struct{ redis *rds.Service }

func NewService(redis *rds.Service) *Service { return &Service{redis: redis} }

func (s *Service) GetStatus(ctx context.Context, jobID string) (*Job, error) {
	var j Job
	if err := s.redis.CacheGet(ctx, key(jobID), &j); err != nil {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	return &j, nil
}

func (s *Service) store(ctx context.Context, jobID string, status Status, summary *RunSummary) error {
	var j Job
	_ = s.redis.CacheGet(ctx, key(jobID), &j)
	j.JobID = jobID
	j.Status = status
	if summary != nil {
		j.Summary = summary
	}
	if err := s.redis.CacheSet(ctx, key(jobID), j, ttl(status)); err != nil {
		return err
	}
	// Update event for anyone watching the run.
	_ = s.redis.Client().Publish(ctx, key(jobID), "updated").Err()
	return nil
}

func (s *Service) InitPending(ctx context.Context, jobID string) error {
	return s.store(ctx, jobID, StatusPending, nil)
}

func (s *Service) SetProcessing(ctx context.Context, jobID string) error {
	return s.store(ctx, jobID, StatusProcessing, nil)
}

func (s *Service) Complete(ctx context.Context, jobID string, status Status, summary *RunSummary) error {
	return s.store(ctx, jobID, status, summary)
}

func key(id string) string { return "extraction:" + id }

func ttl(s Status) int {
	if s == StatusCompleted || s == StatusFailed {
		return 3600
	}
	return 600
}
