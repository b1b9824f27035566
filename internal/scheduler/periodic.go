package scheduler

import (
	"fmt"

	"leadrouting_backend/platform/config"
	"leadrouting_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Periodic registers the recurring sweep and archive tasks on their cron
// specs and runs the asynq scheduler loop.
type Periodic struct {
	scheduler *asynq.Scheduler
	log       *logger.Logger
}

func NewPeriodic(cfg config.SchedulerConfig, log *logger.Logger) (*Periodic, error) {
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

	sched := asynq.NewScheduler(opt, &asynq.SchedulerOpts{})

	sweepTask, err := NewBatchQualifyTask(BatchQualifyPayload{})
	if err != nil {
		return nil, err
	}
	if _, err := sched.Register(cfg.GetBatchSweepSpec(), sweepTask, asynq.Queue(queue)); err != nil {
		return nil, fmt.Errorf("register batch sweep: %w", err)
	}

	archiveTask, err := NewAuditArchiveTask()
	if err != nil {
		return nil, err
	}
	if _, err := sched.Register(cfg.GetAuditArchiveSpec(), archiveTask, asynq.Queue(queue)); err != nil {
		return nil, fmt.Errorf("register audit archive: %w", err)
	}

	return &Periodic{scheduler: sched, log: log}, nil
}

// Run blocks until the scheduler stops.
func (p *Periodic) Run() {
	if err := p.scheduler.Run(); err != nil {
		p.log.Error("periodic scheduler stopped", "error", err)
	}
}

// Shutdown stops the scheduler loop.
func (p *Periodic) Shutdown() {
	p.scheduler.Shutdown()
}
