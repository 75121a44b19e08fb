package jobs

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivertype"
)

type Client struct {
	*river.Client[pgx.Tx]
}

func NewClient(pool *pgxpool.Pool, worker *ExtractWorker, maxWorkers int) (*Client, error) {
	workers := river.NewWorkers()
	river.AddWorker(workers, worker)

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			DefaultQueue: {MaxWorkers: maxWorkers},
		},
		Workers: workers,
	})
	if err != nil {
		return nil, err
	}

	return &Client{Client: riverClient}, nil
}

func (c *Client) InsertJob(ctx context.Context, args ExtractArgs) (int64, error) {
	result, err := c.Insert(ctx, args, &river.InsertOpts{
		Queue:       DefaultQueue,
		MaxAttempts: MaxJobRetries,
	})
	if err != nil {
		return 0, err
	}
	return result.Job.ID, nil
}

// CancelJob asks River to stop an in-flight job. Cancellation of a running
// worker is cooperative, the definitive cancel is the status row itself.
func (c *Client) CancelJob(ctx context.Context, jobID int64) error {
	job, err := c.JobGet(ctx, jobID)
	if err != nil {
		return err
	}
	if isJobFinished(job.State) {
		return nil
	}

	_, err = c.JobCancel(ctx, jobID)
	return err
}

func isJobFinished(state rivertype.JobState) bool {
	switch state {
	case rivertype.JobStateCompleted, rivertype.JobStateCancelled, rivertype.JobStateDiscarded:
		return true
	default:
		return false
	}
}
