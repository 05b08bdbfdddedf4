// Package provisioning retries direct-thread creation for connections whose
// accept succeeded while the thread store was unavailable.
package provisioning

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sentinal-social/internal/domain"
	"sentinal-social/internal/domain/relationship"
	"sentinal-social/internal/domain/thread"
	"sentinal-social/internal/repository"
	sentinal_errors "sentinal-social/pkg/errors"
	"sentinal-social/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxBackoff = time.Hour

type ThreadProvisioner interface {
	GetOrCreateDirect(ctx context.Context, a, b uuid.UUID) (thread.Thread, error)
}

type Processor struct {
	store       repository.Store
	threads     ThreadProvisioner
	log         *logger.Logger
	clock       func() time.Time
	batchSize   int
	interval    time.Duration
	maxAttempts int
}

func NewProcessor(store repository.Store, threads ThreadProvisioner, log *logger.Logger, batchSize int, interval time.Duration, maxAttempts int) *Processor {
	if log == nil {
		log = logger.Nop()
	}
	return &Processor{
		store:       store,
		threads:     threads,
		log:         log,
		clock:       time.Now,
		batchSize:   batchSize,
		interval:    interval,
		maxAttempts: maxAttempts,
	}
}

// Enqueue records the pair for a later attempt.
func (p *Processor) Enqueue(ctx context.Context, pair domain.Pair, cause error) error {
	now := p.clock()
	entry := thread.PendingDirect{
		Pair:          pair,
		NextAttemptAt: now.Add(p.interval),
		CreatedAt:     now,
	}
	if cause != nil {
		entry.LastError = cause.Error()
	}
	return p.store.Provisioning().Enqueue(ctx, entry)
}

// Pending reports whether pair is still waiting for its direct thread.
func (p *Processor) Pending(ctx context.Context, pair domain.Pair) (bool, error) {
	_, err := p.store.Provisioning().Get(ctx, pair)
	if sentinal_errors.IsNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

func (p *Processor) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.ProcessDue(ctx); err != nil {
				p.log.WithContext(ctx).Error("provisioning batch failed", zap.Error(err))
			}
		}
	}
}

// ProcessDue attempts every entry whose retry time has come and returns how
// many direct threads were provisioned. An entry that fails its last allowed
// attempt is logged and removed from the queue.
func (p *Processor) ProcessDue(ctx context.Context) (int, error) {
	now := p.clock()
	due, err := p.store.Provisioning().GetDue(ctx, now, p.batchSize)
	if err != nil {
		return 0, err
	}

	var (
		provisioned int
		errs        []error
	)
	for _, entry := range due {
		log := p.log.WithContext(ctx).With(zap.String("pair", entry.Pair.Key()))

		if entry.Attempts >= p.maxAttempts {
			errs = append(errs, p.giveUp(ctx, log, entry.Pair, entry.Attempts, entry.LastError))
			continue
		}

		rel, err := p.store.Relationships().Get(ctx, entry.Pair)
		if err != nil && !sentinal_errors.IsNotFound(err) {
			errs = append(errs, p.retryLater(ctx, log, entry, now, err))
			continue
		}
		if err != nil || rel.Status != relationship.StatusConnected {
			// the pair is no longer connected; nothing to provision
			if err := p.store.Provisioning().Complete(ctx, entry.Pair); err != nil {
				errs = append(errs, fmt.Errorf("drop %s: %w", entry.Pair.Key(), err))
			}
			continue
		}

		if _, err := p.threads.GetOrCreateDirect(ctx, entry.Pair.Low, entry.Pair.High); err != nil {
			log.Warn("direct thread provisioning retry failed", zap.Int("attempt", entry.Attempts+1), zap.Error(err))
			errs = append(errs, p.retryLater(ctx, log, entry, now, err))
			continue
		}
		if err := p.store.Provisioning().Complete(ctx, entry.Pair); err != nil {
			return provisioned, errors.Join(append(errs, fmt.Errorf("complete %s: %w", entry.Pair.Key(), err))...)
		}
		provisioned++
		log.Info("direct thread provisioned on retry", zap.Int("attempts", entry.Attempts+1))
	}
	return provisioned, errors.Join(errs...)
}

// retryLater records a failed attempt, or gives up when it was the last one.
func (p *Processor) retryLater(ctx context.Context, log *zap.Logger, entry thread.PendingDirect, now time.Time, cause error) error {
	attempts := entry.Attempts + 1
	if attempts >= p.maxAttempts {
		return p.giveUp(ctx, log, entry.Pair, attempts, cause.Error())
	}
	if err := p.store.Provisioning().MarkFailed(ctx, entry.Pair, now.Add(p.backoff(attempts)), cause.Error()); err != nil {
		return fmt.Errorf("mark failed %s: %w", entry.Pair.Key(), err)
	}
	return nil
}

func (p *Processor) giveUp(ctx context.Context, log *zap.Logger, pair domain.Pair, attempts int, lastError string) error {
	log.Error("direct thread provisioning gave up", zap.Int("attempts", attempts), zap.String("last_error", lastError))
	if err := p.store.Provisioning().Complete(ctx, pair); err != nil {
		return fmt.Errorf("drop %s: %w", pair.Key(), err)
	}
	return nil
}

func (p *Processor) backoff(attempt int) time.Duration {
	d := p.interval
	for i := 1; i < attempt && d < maxBackoff; i++ {
		d *= 2
	}
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}
