package events

import (
	"context"

	"sentinal-social/pkg/logger"

	"go.uber.org/zap"
)

// Notifier is the fire-and-forget hook the core calls after a state change
// commits. Publish failures are logged and never reach the caller.
type Notifier struct {
	publisher Publisher
	log       *logger.Logger
}

func NewNotifier(publisher Publisher, log *logger.Logger) *Notifier {
	if log == nil {
		log = logger.Nop()
	}
	return &Notifier{publisher: publisher, log: log}
}

func (n *Notifier) Notify(ctx context.Context, event Event) {
	if n == nil || n.publisher == nil {
		return
	}
	if err := n.publisher.Publish(ctx, event); err != nil {
		n.log.WithContext(ctx).Warn("notification publish failed",
			zap.String("event_type", string(event.Type())),
			zap.Error(err),
		)
	}
}
