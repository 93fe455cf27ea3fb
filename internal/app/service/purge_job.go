package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sifan077/LinkRewards/config"
	apprepository "github.com/sifan077/LinkRewards/internal/app/repository"
	"github.com/sifan077/LinkRewards/internal/infra/prometheus"
	"go.uber.org/zap"
)

// PurgeTaskName identifies the purge job in the timed task table.
const PurgeTaskName = "billinglinks_purge"

const purgeTimeout = 5 * time.Minute

// PurgeReport counts the rows removed by one run.
type PurgeReport struct {
	Deleted   int64
	Completed int64
	// Partial is set when the deleted sweep succeeded but the completed sweep failed.
	Partial bool
}

// PurgeJob hard-deletes links whose terminal state has aged out.
type PurgeJob struct {
	logger             *zap.Logger
	links              apprepository.LinkRepository
	tasks              apprepository.TimedTaskRepository
	schedule           string
	interval           time.Duration
	deletedRetention   time.Duration
	completedRetention time.Duration
	cron               *cron.Cron
	now                func() time.Time
}

// NewPurgeJob creates a purge job. Zero config values fall back to a daily
// run with 7 and 30 day retention.
func NewPurgeJob(logger *zap.Logger, links apprepository.LinkRepository, tasks apprepository.TimedTaskRepository, cfg config.PurgeConfig) *PurgeJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	job := &PurgeJob{
		logger:             logger,
		links:              links,
		tasks:              tasks,
		schedule:           cfg.Schedule,
		interval:           cfg.Interval,
		deletedRetention:   cfg.DeletedRetention,
		completedRetention: cfg.CompletedRetention,
		now:                time.Now,
	}
	if job.schedule == "" {
		job.schedule = "@every 1h"
	}
	if job.interval <= 0 {
		job.interval = 24 * time.Hour
	}
	if job.deletedRetention <= 0 {
		job.deletedRetention = 7 * 24 * time.Hour
	}
	if job.completedRetention <= 0 {
		job.completedRetention = 30 * 24 * time.Hour
	}
	return job
}

// Start schedules the job and runs one due check right away.
func (j *PurgeJob) Start() error {
	j.cron = cron.New()
	if _, err := j.cron.AddFunc(j.schedule, j.tick); err != nil {
		return fmt.Errorf("schedule purge job: %w", err)
	}
	j.cron.Start()
	go j.tick()
	return nil
}

// Stop waits for a running tick to finish.
func (j *PurgeJob) Stop() {
	if j.cron == nil {
		return
	}
	<-j.cron.Stop().Done()
	j.logger.Info("purge job stopped")
}

func (j *PurgeJob) tick() {
	defer func() {
		if r := recover(); r != nil {
			j.logger.Error("purge job panicked", zap.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), purgeTimeout)
	defer cancel()

	if _, _, err := j.RunIfDue(ctx); err != nil {
		j.logger.Error("purge job failed, retrying on next tick", zap.Error(err))
	}
}

// RunIfDue runs the purge when the last successful run is at least one
// interval old. It reports whether a run happened.
func (j *PurgeJob) RunIfDue(ctx context.Context) (PurgeReport, bool, error) {
	task, err := j.tasks.Get(ctx, PurgeTaskName)
	if err != nil {
		return PurgeReport{}, false, fmt.Errorf("load purge task: %w", err)
	}
	now := j.now()
	if task != nil && task.LastSuccessAt != nil && now.Sub(*task.LastSuccessAt) < j.interval {
		return PurgeReport{}, false, nil
	}

	report, runErr := j.Run(ctx)

	message := fmt.Sprintf("deleted=%d completed=%d", report.Deleted, report.Completed)
	if runErr != nil {
		message = runErr.Error()
	}
	if err := j.tasks.MarkRun(ctx, PurgeTaskName, now, runErr == nil, message); err != nil {
		j.logger.Error("failed to record purge run", zap.Error(err))
	}
	return report, true, runErr
}

// Run executes both sweeps. A failure of the first aborts the run; a failure
// of the second leaves the first committed and marks the report partial.
func (j *PurgeJob) Run(ctx context.Context) (PurgeReport, error) {
	var report PurgeReport
	now := j.now()

	deletedBefore := now.Add(-j.deletedRetention)
	deleted, err := j.links.PurgeDeleted(ctx, deletedBefore)
	if err != nil {
		return report, fmt.Errorf("purge deleted links: %w", err)
	}
	report.Deleted = deleted
	prometheus.PurgedLinks.WithLabelValues("deleted").Add(float64(deleted))

	completedBefore := now.Add(-j.completedRetention)
	completed, err := j.links.PurgeCompleted(ctx, completedBefore)
	if err != nil {
		report.Partial = true
		j.logger.Warn("purge partially applied",
			zap.Int64("deleted", deleted),
			zap.Error(err))
		return report, fmt.Errorf("purge completed links: %w", err)
	}
	report.Completed = completed
	prometheus.PurgedLinks.WithLabelValues("completed").Add(float64(completed))

	j.logger.Info("purged expired links",
		zap.Int64("deleted", report.Deleted),
		zap.Int64("completed", report.Completed),
		zap.Time("deleted_before", deletedBefore),
		zap.Time("completed_before", completedBefore),
	)
	return report, nil
}
