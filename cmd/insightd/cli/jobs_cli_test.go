package cli

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightd/insightd/jobs"
)

type stubEnqueuer struct {
	warmupScopes []string
	flagCalls    []string
	err          error
}

func (s *stubEnqueuer) EnqueueInsightWarmup(ctx context.Context, scope string) (string, error) {
	s.warmupScopes = append(s.warmupScopes, scope)
	if s.err != nil {
		return "", s.err
	}
	return "task-warmup-1", nil
}

func (s *stubEnqueuer) EnqueueReviewFlag(ctx context.Context, listingID, issue string) (string, error) {
	s.flagCalls = append(s.flagCalls, listingID+"/"+issue)
	if s.err != nil {
		return "", s.err
	}
	return "task-flag-1", nil
}

func (s *stubEnqueuer) Close() error { return nil }

type stubInspector struct {
	info    *asynq.QueueInfo
	infoErr error
}

func (s *stubInspector) GetQueueInfo(qname string) (*asynq.QueueInfo, error) {
	if s.infoErr != nil {
		return nil, s.infoErr
	}
	return s.info, nil
}

func (s *stubInspector) ListScheduledTasks(qname string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error) {
	return nil, nil
}

func (s *stubInspector) Close() error { return nil }

func TestTriggerWarmup(t *testing.T) {
	client := &stubEnqueuer{}
	cli := &JobsCLI{client: client}

	id, err := cli.Trigger(context.Background(), jobs.TaskInsightWarmup)
	require.NoError(t, err)
	assert.Equal(t, "task-warmup-1", id)
	assert.Equal(t, []string{"all"}, client.warmupScopes)
}

func TestTriggerRejectsUnknownJob(t *testing.T) {
	cli := &JobsCLI{client: &stubEnqueuer{}}

	_, err := cli.Trigger(context.Background(), "mail:send")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported job")
}

func TestTriggerReviewFlagNeedsParameters(t *testing.T) {
	client := &stubEnqueuer{}
	cli := &JobsCLI{client: client}

	_, err := cli.Trigger(context.Background(), jobs.TaskReviewFlag)
	require.Error(t, err)

	_, err = cli.TriggerReviewFlag(context.Background(), "car001", "")
	require.Error(t, err)
	assert.Empty(t, client.flagCalls)

	id, err := cli.TriggerReviewFlag(context.Background(), "car001", "dirty")
	require.NoError(t, err)
	assert.Equal(t, "task-flag-1", id)
	assert.Equal(t, []string{"car001/dirty"}, client.flagCalls)
}

func TestInspectQueue(t *testing.T) {
	cli := &JobsCLI{inspector: &stubInspector{info: &asynq.QueueInfo{Queue: jobs.QueueDefault, Pending: 3, Retry: 1}}}

	stats, err := cli.InspectQueue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, QueueStats{Queue: jobs.QueueDefault, Pending: 3, Retry: 1}, stats)
}

func TestInspectQueueUnavailable(t *testing.T) {
	cli := &JobsCLI{inspector: &stubInspector{infoErr: errors.New("dial tcp: connection refused")}}

	_, err := cli.InspectQueue(context.Background())
	require.Error(t, err)

	_, err = (&JobsCLI{}).InspectQueue(context.Background())
	require.Error(t, err)
}
