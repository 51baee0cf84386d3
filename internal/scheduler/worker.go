package scheduler

import (
	"context"
	"fmt"
	"time"

	"workshop_portal_backend/internal/leads/repository"
	"workshop_portal_backend/platform/config"
	"workshop_portal_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Worker consumes queued tasks and runs the assignment-release sweep.
type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	repo    *repository.Repository
	timeout time.Duration
	log     *logger.Logger
}

// NewWorker creates a scheduler worker bound to the lead repository.
func NewWorker(cfg config.SchedulerConfig, assignment config.AssignmentConfig, pool *pgxpool.Pool, log *logger.Logger) (*Worker, error) {
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

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:  server,
		mux:     mux,
		repo:    repository.New(pool),
		timeout: assignment.GetAssignmentTimeout(),
		log:     log,
	}

	mux.HandleFunc(TaskAssignmentRelease, w.handleAssignmentRelease)

	return w, nil
}

func (w *Worker) handleAssignmentRelease(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseAssignmentReleasePayload(task)
	if err != nil {
		return err
	}

	companyID, err := uuid.Parse(payload.CompanyID)
	if err != nil {
		return err
	}

	released, err := w.repo.ReleaseExpiredAssignments(ctx, companyID, w.timeout)
	if err != nil {
		return err
	}
	if released > 0 {
		w.log.Info("released expired assignments", "company_id", companyID.String(), "count", released)
	}
	return nil
}

// Run serves tasks until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
