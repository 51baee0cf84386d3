// Package scheduler provides the asynq-backed task queue that sweeps stale
// RSA assignments some time after they were handed out.
package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"workshop_portal_backend/platform/config"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// Client enqueues delayed assignment-release sweeps.
type Client struct {
	client *asynq.Client
	queue  string
	delay  time.Duration
}

// NewClient creates a scheduler client from the redis configuration. The
// sweep runs one assignment timeout after scheduling, so an assignment that
// was never acted on is released right when it expires.
func NewClient(cfg config.SchedulerConfig, assignment config.AssignmentConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
		delay:  assignment.GetAssignmentTimeout(),
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// ScheduleAssignmentRelease enqueues a sweep for the company, delayed by the
// assignment timeout.
func (c *Client) ScheduleAssignmentRelease(ctx context.Context, companyID uuid.UUID) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewAssignmentReleaseTask(AssignmentReleasePayload{CompanyID: companyID.String()})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.ProcessIn(c.delay), asynq.Queue(c.queue))
	return err
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
