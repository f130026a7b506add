// Package notify delivers user facing toast notifications.
package notify

import (
	"github.com/google/uuid"
	"log/slog"
	"time"
	"wallet/internal/models"
	"wallet/internal/storage"
)

type Notifier interface {
	Notify(message string, duration time.Duration, position models.Position)
}

// Inbox keeps toasts in storage until their display duration has elapsed.
type Inbox struct {
	storage storage.Storage
	logger  *slog.Logger
	now     func() time.Time
}

func NewInbox(storage storage.Storage, logger *slog.Logger) *Inbox {
	return &Inbox{
		storage: storage,
		logger:  logger,
		now:     time.Now,
	}
}

func (i *Inbox) Notify(message string, duration time.Duration, position models.Position) {
	toast := models.Toast{
		ID:        uuid.NewString(),
		Message:   message,
		Duration:  duration,
		Position:  position,
		CreatedAt: i.now(),
	}
	if err := i.storage.SaveToast(toast); err != nil {
		i.logger.Error("failed to save toast", "message", message, "error", err)
		return
	}
	i.logger.Info("toast", "id", toast.ID, "message", message, "position", position)
}

// Active returns the toasts currently displayed and drops expired ones.
func (i *Inbox) Active() ([]models.Toast, error) {
	now := i.now()
	if _, err := i.storage.PurgeExpired(now); err != nil {
		i.logger.Warn("failed to purge toasts", "error", err)
	}
	return i.storage.ActiveToasts(now)
}

// LogNotifier writes toasts to the log, for the command line.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(message string, duration time.Duration, position models.Position) {
	l.logger.Info(message, "duration", duration, "position", position)
}
