package cronrunner

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Runner schedules the daily jobs in the report timezone so anchor-time
// specs fire at the right local instant.
type Runner struct {
	cron    *cron.Cron
	logger  *zap.Logger
	baseCtx context.Context
}

func New(logger *zap.Logger, baseCtx context.Context, loc *time.Location) *Runner {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Runner{
		cron:    cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		logger:  logger,
		baseCtx: baseCtx,
	}
}

// Add registers a named job. Job errors are logged, never propagated; one
// failed run must not unschedule the job.
func (r *Runner) Add(name, spec string, job func(context.Context) error) (cron.EntryID, error) {
	id, err := r.cron.AddFunc(spec, func() {
		ctx := r.baseCtx
		if ctx == nil {
			ctx = context.Background()
		}
		if err := job(ctx); err != nil {
			r.logger.Error("cron job failed",
				zap.String("job", name),
				zap.Error(err))
		}
	})
	if err != nil {
		return 0, err
	}
	r.logger.Info("cron job registered",
		zap.String("job", name),
		zap.String("spec", spec))
	return id, nil
}

func (r *Runner) Start() {
	if r.logger != nil {
		r.logger.Info("cron started")
	}
	r.cron.Start()
}

func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	if r.logger != nil {
		r.logger.Info("cron stopped")
	}
}
