package storage

import (
	"errors"
	"time"
	"wallet/internal/models"
)

var (
	ErrInvalidToast = errors.New("invalid toast")
)

// Storage keeps the toasts shown to the user.
type Storage interface {
	Init() error
	SaveToast(toast models.Toast) error
	ActiveToasts(now time.Time) ([]models.Toast, error)
	PurgeExpired(now time.Time) (int64, error)
}
