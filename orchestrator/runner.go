package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"mediawatch/config"
	"mediawatch/rssfeeds"
	"mediawatch/types"

	"github.com/google/uuid"
)

// ErrRunInProgress is returned when a run is triggered while another is active.
var ErrRunInProgress = errors.New("a pipeline run is already in progress")

const runTimeout = 10 * time.Minute

// Reporter writes end-of-run artifacts for a finished batch. A report failure
// never fails the run; the batch is already persisted by then.
type Reporter interface {
	Publish(ctx context.Context, batch *types.DailyBatch) error
}

// Runner executes end-to-end runs (fetch, pipeline, report) and tracks their
// state for the API and dashboard. At most one run is active at a time.
type Runner struct {
	pipeline *Pipeline
	fetcher  *rssfeeds.Fetcher
	sources  []config.FeedSource
	reporter Reporter
	state    *Manager

	mu      sync.Mutex
	running bool
}

// NewRunner wires a Runner. reporter may be nil to skip report generation.
func NewRunner(pipeline *Pipeline, fetcher *rssfeeds.Fetcher, sources []config.FeedSource, reporter Reporter) *Runner {
	return &Runner{
		pipeline: pipeline,
		fetcher:  fetcher,
		sources:  sources,
		reporter: reporter,
		state:    NewManager(),
	}
}

// Status returns a snapshot of the current run state.
func (r *Runner) Status() StatusResponse {
	return r.state.GetStatus()
}

// TriggerRun starts an asynchronous run for forDate (empty means today) and
// returns its run ID immediately. Progress is observable via Status.
func (r *Runner) TriggerRun(forDate string) (string, error) {
	if err := r.acquire(); err != nil {
		return "", err
	}

	runID := uuid.New().String()
	go func() {
		defer r.release()
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()
		if _, err := r.execute(ctx, forDate, runID); err != nil {
			log.Printf("Pipeline run %s failed: %v", runID, err)
		}
	}()
	return runID, nil
}

// RunOnce executes a synchronous run; used by the CLI and the scheduler.
func (r *Runner) RunOnce(ctx context.Context, forDate string) (*types.DailyBatch, error) {
	if err := r.acquire(); err != nil {
		return nil, err
	}
	defer r.release()
	return r.execute(ctx, forDate, uuid.New().String())
}

func (r *Runner) acquire() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return ErrRunInProgress
	}
	r.running = true
	return nil
}

func (r *Runner) release() {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
}

func (r *Runner) execute(ctx context.Context, forDate, runID string) (*types.DailyBatch, error) {
	if forDate == "" {
		forDate = time.Now().UTC().Format(config.DateLayout)
	}
	r.state.StartRun(runID, forDate)
	r.state.AddLog(fmt.Sprintf("Run %s started for %s", runID, forDate))

	r.state.AddLog(fmt.Sprintf("Fetching %d source(s)...", len(r.sources)))
	raw, statuses := r.fetcher.FetchAll(ctx, r.sources)
	for _, st := range statuses {
		if st.Err != nil {
			r.state.AddLog(fmt.Sprintf("Source %s failed after %d attempt(s): %v", st.Source, st.Attempts, st.Err))
		} else {
			r.state.AddLog(fmt.Sprintf("Source %s: %d entries", st.Source, st.Count))
		}
	}

	r.state.SetState(StateProcessing)
	batch, err := r.pipeline.run(ctx, raw, forDate, runID)
	if err != nil {
		r.state.SetError(err)
		return nil, err
	}
	sum := batch.Summary()
	r.state.AddLog(fmt.Sprintf("Batch %s: %d items, %d duplicates, %d skipped", batch.Date, sum.ItemCount, sum.Duplicates, sum.Skipped))

	if r.reporter != nil {
		r.state.SetState(StateReporting)
		if err := r.reporter.Publish(ctx, batch); err != nil {
			r.state.AddLog(fmt.Sprintf("Report generation failed: %v", err))
			log.Printf("Warning: report generation failed: %v", err)
		}
	}

	r.state.SetLastBatch(sum)
	r.state.SetState(StateComplete)
	r.state.AddLog("Run complete")
	return batch, nil
}
