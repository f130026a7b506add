package sqlite

import (
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"wallet/internal/models"
	"wallet/internal/storage"
)

type StorageTestSuite struct {
	suite.Suite
	db      *sql.DB
	storage storage.Storage
	logger  *slog.Logger
	now     time.Time
}

func (s *StorageTestSuite) SetupTest() {
	db, err := Open(":memory:")
	require.NoError(s.T(), err)
	s.db = db

	s.logger = slog.New(slog.NewTextHandler(os.Stdout, nil))
	s.storage = NewStorage(db, s.logger)
	require.NoError(s.T(), s.storage.Init())

	s.now = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
}

func (s *StorageTestSuite) TearDownTest() {
	s.db.Close()
}

func (s *StorageTestSuite) saveToast(message string, createdAt time.Time, duration time.Duration) models.Toast {
	toast := models.Toast{
		ID:        uuid.NewString(),
		Message:   message,
		Duration:  duration,
		Position:  models.PositionTop,
		CreatedAt: createdAt,
	}
	require.NoError(s.T(), s.storage.SaveToast(toast))
	return toast
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageTestSuite))
}

func (s *StorageTestSuite) TestInit_Idempotent() {
	assert.NoError(s.T(), s.storage.Init())
}

func (s *StorageTestSuite) TestActiveToasts_WithinDuration() {
	// Arrange
	saved := s.saveToast("Tokens Sent", s.now, 3*time.Second)

	// Act
	toasts, err := s.storage.ActiveToasts(s.now.Add(2999 * time.Millisecond))

	// Assert
	require.NoError(s.T(), err)
	require.Len(s.T(), toasts, 1)
	assert.Equal(s.T(), saved.ID, toasts[0].ID)
	assert.Equal(s.T(), "Tokens Sent", toasts[0].Message)
	assert.Equal(s.T(), 3*time.Second, toasts[0].Duration)
	assert.Equal(s.T(), models.PositionTop, toasts[0].Position)
	assert.True(s.T(), s.now.Equal(toasts[0].CreatedAt))
}

func (s *StorageTestSuite) TestActiveToasts_Expired() {
	s.saveToast("Tokens Sent", s.now, 3*time.Second)

	toasts, err := s.storage.ActiveToasts(s.now.Add(3 * time.Second))

	assert.NoError(s.T(), err)
	assert.Empty(s.T(), toasts)
}

func (s *StorageTestSuite) TestActiveToasts_Order() {
	s.saveToast("second", s.now.Add(time.Second), 3*time.Second)
	s.saveToast("first", s.now, 3*time.Second)

	toasts, err := s.storage.ActiveToasts(s.now.Add(1500 * time.Millisecond))

	require.NoError(s.T(), err)
	require.Len(s.T(), toasts, 2)
	assert.Equal(s.T(), "first", toasts[0].Message)
	assert.Equal(s.T(), "second", toasts[1].Message)
}

func (s *StorageTestSuite) TestSaveToast_Invalid() {
	testCases := []struct {
		name  string
		toast models.Toast
	}{
		{"Missing id", models.Toast{Message: "m", Duration: time.Second}},
		{"Zero duration", models.Toast{ID: uuid.NewString(), Message: "m"}},
	}

	for _, tc := range testCases {
		s.T().Run(tc.name, func(t *testing.T) {
			err := s.storage.SaveToast(tc.toast)
			assert.ErrorIs(t, err, storage.ErrInvalidToast)
		})
	}
}

func (s *StorageTestSuite) TestSaveToast_DuplicateID() {
	toast := s.saveToast("Tokens Sent", s.now, time.Second)

	err := s.storage.SaveToast(toast)

	assert.Error(s.T(), err)
}

func (s *StorageTestSuite) TestPurgeExpired() {
	s.saveToast("old", s.now.Add(-10*time.Second), 3*time.Second)
	s.saveToast("fresh", s.now, 3*time.Second)

	n, err := s.storage.PurgeExpired(s.now)

	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(1), n)

	var count int
	require.NoError(s.T(), s.db.QueryRow("SELECT COUNT(*) FROM toasts").Scan(&count))
	assert.Equal(s.T(), 1, count)
}
