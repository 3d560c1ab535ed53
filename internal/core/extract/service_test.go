package extract

import (
	"context"
	"errors"
	"testing"

	"verifront/internal/config"
	"verifront/internal/core/job"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

func TestLandedOnTarget(t *testing.T) {
	testCases := []struct {
		name   string
		landed string
		target string
		want   bool
	}{
		{
			name:   "exact match",
			landed: "https://app.example.com/companies/c1",
			target: "https://app.example.com/companies/c1",
			want:   true,
		},
		{
			name:   "spa appended state",
			landed: "https://app.example.com/companies/c1/overview?tab=profile",
			target: "https://app.example.com/companies/c1",
			want:   true,
		},
		{
			name:   "redirected to login",
			landed: "https://app.example.com/login?next=%2Fcompanies%2Fc1",
			target: "https://app.example.com/companies/c1",
			want:   false,
		},
		{
			name:   "wrong entity",
			landed: "https://app.example.com/companies/c2",
			target: "https://app.example.com/companies/c1",
			want:   false,
		},
		{
			name:   "sibling entity extending the target id",
			landed: "https://app.example.com/companies/c10",
			target: "https://app.example.com/companies/c1",
			want:   false,
		},
		{
			name:   "different host",
			landed: "https://auth.example.com/companies/c1",
			target: "https://app.example.com/companies/c1",
			want:   false,
		},
		{
			name:   "unparseable landed url passes through",
			landed: "::not-a-url",
			target: "https://app.example.com/companies/c1",
			want:   true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, landedOnTarget(tc.landed, tc.target))
		})
	}
}

type fakeJobStore struct {
	pending []string
	status  map[string]job.Status
	summary map[string]*job.RunSummary
}

func (f *fakeJobStore) InitPending(_ context.Context, jobID string) error {
	f.pending = append(f.pending, jobID)
	return nil
}

func (f *fakeJobStore) SetProcessing(_ context.Context, _ string) error { return nil }

func (f *fakeJobStore) Complete(_ context.Context, jobID string, status job.Status, summary *job.RunSummary) error {
	if f.status == nil {
		f.status = make(map[string]job.Status)
		f.summary = make(map[string]*job.RunSummary)
	}
	f.status[jobID] = status
	f.summary[jobID] = summary
	return nil
}

type captureEnqueuer struct {
	queue string
	err   error
}

func (c *captureEnqueuer) Enqueue(_ *asynq.Task, queue string, _ int) error {
	c.queue = queue
	return c.err
}

func TestEnqueueUsesExtractQueue(t *testing.T) {
	store := &fakeJobStore{}
	enq := &captureEnqueuer{}
	svc := NewService(config.Config{}, store, nil, nil)

	jobID, err := svc.Enqueue(context.Background(), enq, "")
	require.NoError(t, err)
	require.NotEmpty(t, jobID)
	require.Equal(t, QueueExtract, enq.queue)
	require.Equal(t, []string{jobID}, store.pending)
	require.NotContains(t, store.status, jobID)
}

func TestEnqueueFailureDoesNotStrandPendingJob(t *testing.T) {
	store := &fakeJobStore{}
	enq := &captureEnqueuer{err: errors.New("redis down")}
	svc := NewService(config.Config{}, store, nil, nil)

	_, err := svc.Enqueue(context.Background(), enq, "")
	require.Error(t, err)

	require.Len(t, store.pending, 1)
	jobID := store.pending[0]
	require.Equal(t, job.StatusFailed, store.status[jobID])
	require.Contains(t, store.summary[jobID].Error, "redis down")
}
