// Package scheduler runs the pipeline on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"mediawatch/orchestrator"
	"mediawatch/types"

	"github.com/robfig/cron/v3"
)

const jobTimeout = 10 * time.Minute

// Job is the unit of work the scheduler triggers. orchestrator.Runner
// satisfies it.
type Job interface {
	RunOnce(ctx context.Context, forDate string) (*types.DailyBatch, error)
}

// Scheduler triggers pipeline runs on a cron spec (standard 5-field format).
// A tick that lands while a run is still active is skipped, not queued.
type Scheduler struct {
	cron *cron.Cron
	job  Job
	spec string
}

// New creates a scheduler for the given spec.
func New(spec string, job Job) (*Scheduler, error) {
	c := cron.New()
	s := &Scheduler{cron: c, job: job, spec: spec}

	if _, err := c.AddFunc(spec, s.runJob); err != nil {
		return nil, fmt.Errorf("scheduler: invalid cron spec %q: %w", spec, err)
	}
	return s, nil
}

// Start begins scheduling. Jobs run on the cron goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Printf("Scheduler started with spec %q", s.spec)
}

// Stop stops scheduling; a job already running is not interrupted.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

func (s *Scheduler) runJob() {
	log.Println("Cron triggered: starting pipeline run")
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if _, err := s.job.RunOnce(ctx, ""); err != nil {
		if errors.Is(err, orchestrator.ErrRunInProgress) {
			log.Println("Cron skipped: a run is already in progress")
			return
		}
		log.Printf("Cron run error: %v", err)
	}
}
