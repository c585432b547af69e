package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogNotifier writes notifications to the log. Used when email delivery is
// disabled, so the pipeline still exercises its full path.
type LogNotifier struct {
	Logger *zap.Logger
}

func (l *LogNotifier) Notify(_ context.Context, n Notification) error {
	l.Logger.Info("notification (email disabled)",
		zap.String("kind", string(n.Kind)),
		zap.String("subject", n.Subject),
		zap.String("recipients", string(n.Recipients)),
		zap.String("body", n.Body))
	return nil
}
