package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	JobIDHeartbeat  = "authclient.heartbeat"
	JobIDRenewal    = "authclient.renewal"
	JobIDQueueDrain = "authclient.queue.drain"
)

const jobRetryDelay = 30 * time.Second

// ScheduleJob hands a client job to the configured enqueuer. Deployments
// that run heartbeat and renewal on an external queue instead of in-process
// timers enqueue these from their scheduler.
func (c *Client) ScheduleJob(ctx context.Context, jobID string, params map[string]any) error {
	if c == nil {
		return nil
	}
	if c.jobEnqueuer == nil {
		return newClientError(
			"core: job enqueuer is not configured",
			goerrors.CategoryBadInput,
			ClientErrorBadInput,
		)
	}
	jobID = strings.TrimSpace(jobID)
	if !isClientJobID(jobID) {
		return newClientError(
			fmt.Sprintf("core: unknown job id %q", jobID),
			goerrors.CategoryBadInput,
			ClientErrorBadInput,
		)
	}
	return c.mapError(c.jobEnqueuer.Enqueue(ctx, &JobExecutionMessage{
		JobID:          jobID,
		Parameters:     copyAnyMap(params),
		IdempotencyKey: jobID,
		DedupPolicy:    "replace",
	}))
}

// HandleJob executes one delivered client job and settles the delivery:
// ack on success, delayed requeue on transient failure, dead-letter for
// unknown job ids.
func (c *Client) HandleJob(ctx context.Context, delivery JobDelivery) error {
	if c == nil || delivery == nil {
		return nil
	}
	msg := delivery.Message()
	if msg == nil {
		return delivery.Nack(ctx, JobNackOptions{
			DeadLetter: true,
			Reason:     "empty execution message",
		})
	}

	startedAt := c.clock.Now()
	var err error
	switch strings.TrimSpace(msg.JobID) {
	case JobIDHeartbeat:
		err = c.lifecycle.CheckAndRefresh(ctx)
	case JobIDRenewal:
		_, err = c.lifecycle.RenewToken(ctx)
	case JobIDQueueDrain:
		c.drainQueue(ctx)
	default:
		return delivery.Nack(ctx, JobNackOptions{
			DeadLetter: true,
			Reason:     fmt.Sprintf("unknown job id %q", msg.JobID),
		})
	}

	c.observeOperation(ctx, startedAt, "job", err, map[string]any{
		"job_id": msg.JobID,
	})
	if err != nil {
		return delivery.Nack(ctx, JobNackOptions{
			Delay:   jobRetryDelay,
			Requeue: true,
			Reason:  err.Error(),
		})
	}
	return delivery.Ack(ctx)
}

// RunJobLoop drains deliveries from the dequeuer until the context ends.
// Dequeue errors are logged and the loop backs off briefly before retrying.
func (c *Client) RunJobLoop(ctx context.Context, dequeuer JobDequeuer) error {
	if c == nil || dequeuer == nil {
		return nil
	}
	for {
		if err := ctx.Err(); err != nil {
			return c.mapError(err)
		}
		delivery, err := dequeuer.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return c.mapError(ctx.Err())
			}
			c.logError(ctx, "job dequeue failed", map[string]any{"error": err.Error()})
			if waitErr := waitWithContext(ctx, c.clock, time.Second); waitErr != nil {
				return c.mapError(waitErr)
			}
			continue
		}
		if handleErr := c.HandleJob(ctx, delivery); handleErr != nil {
			c.logError(ctx, "job handling failed", map[string]any{"error": handleErr.Error()})
		}
	}
}

func isClientJobID(jobID string) bool {
	switch jobID {
	case JobIDHeartbeat, JobIDRenewal, JobIDQueueDrain:
		return true
	}
	return false
}
