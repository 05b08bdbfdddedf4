package provisioning

import (
	"context"
	"time"

	"sentinal-social/internal/repository"
	"sentinal-social/pkg/logger"
)

type Runner struct {
	processor *Processor
}

func NewRunner(processor *Processor) *Runner {
	return &Runner{processor: processor}
}

func (r *Runner) Start(ctx context.Context) {
	go r.processor.Run(ctx)
}

func DefaultProcessor(store repository.Store, threads ThreadProvisioner, log *logger.Logger) *Processor {
	return NewProcessor(store, threads, log, 100, time.Second*5, 10)
}
