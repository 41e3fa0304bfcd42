package scheduler

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Runner is anything the scheduler can trigger; the fetch service in practice.
type Runner interface {
	Run(ctx context.Context)
}

type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	spec   string
	log    *slog.Logger
}

func New(spec string, runner Runner, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		cron:   cron.New(),
		runner: runner,
		spec:   spec,
		log:    log,
	}
}

func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.log.Info("scheduled fetch triggered", "spec", s.spec)
		go s.runner.Run(context.Background())
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
