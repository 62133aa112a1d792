package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/Jhaamlal/Equals-Crypto/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// watchlistsKey is the single fixed key the watchlist collection is
// JSON-encoded under.
const watchlistsKey = "watchlists"

// Store persists application state in a local SQLite database.
type Store struct {
	db *gorm.DB
}

// NewStore opens (or creates) the SQLite database. An empty path resolves
// to the per-user config directory.
func NewStore(path string) (*Store, error) {
	dbPath := path
	if dbPath == "" {
		resolved, err := defaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve DB path: %w", err)
		}
		dbPath = resolved
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Pure Go SQLite
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&domain.Setting{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

// defaultDBPath resolves the database file path based on OS
func defaultDBPath() (string, error) {
	var configDir string
	var err error

	if runtime.GOOS == "windows" {
		configDir = os.Getenv("LOCALAPPDATA")
		if configDir == "" {
			configDir, err = os.UserConfigDir()
		}
	} else {
		configDir, err = os.UserConfigDir()
	}

	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "EqualsCrypto", "data", "equals.db"), nil
}

// LoadWatchlists returns the persisted watchlist collection. A missing key
// is an empty collection, not an error.
func (s *Store) LoadWatchlists() ([]domain.Watchlist, error) {
	var row domain.Setting
	err := s.db.First(&row, "key = ?", watchlistsKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.PersistenceError{Op: "load", Err: err}
	}

	var lists []domain.Watchlist
	if err := json.Unmarshal([]byte(row.Value), &lists); err != nil {
		return nil, &domain.PersistenceError{Op: "load", Err: err}
	}
	return lists, nil
}

// SaveWatchlists replaces the persisted watchlist collection.
func (s *Store) SaveWatchlists(lists []domain.Watchlist) error {
	data, err := json.Marshal(lists)
	if err != nil {
		return &domain.PersistenceError{Op: "save", Err: err}
	}

	row := domain.Setting{Key: watchlistsKey, Value: string(data)}
	if err := s.db.Save(&row).Error; err != nil {
		return &domain.PersistenceError{Op: "save", Err: err}
	}
	return nil
}
