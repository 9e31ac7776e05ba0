package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nikbrunner/gamecrate/internal/model"
)

var (
	// ErrNotFound is returned when a folder, favorite or setting key does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateGame is returned when a second active favorite for a game is written.
	ErrDuplicateGame = errors.New("game already has an active favorite")
)

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
)

// Repository persists folders, favorites and the settings blob.
// Every read and write happens inside a transaction so that a whole
// read-modify-write over a folder commits or fails as one unit.
type Repository interface {
	View(ctx context.Context, fn func(Tx) error) error
	Update(ctx context.Context, fn func(Tx) error) error
	Path() string
	Close() error
}

// Tx is the per-transaction view of the three record collections.
type Tx interface {
	// ListFolders returns all folders, oldest first.
	ListFolders() ([]model.Folder, error)
	GetFolder(id string) (model.Folder, error)
	PutFolder(f model.Folder) error
	DeleteFolder(id string) error

	GetFavorite(id string) (model.Favorite, error)
	// PutFavorite inserts or replaces a favorite. It fails with
	// ErrDuplicateGame when another active favorite has the same game.
	PutFavorite(f model.Favorite) error
	DeleteFavorite(id string) error
	// FavoritesInFolder returns active and trashed favorites of a folder,
	// ordered by sort order.
	FavoritesInFolder(folderID string) ([]model.Favorite, error)
	// FavoritesByGame returns every favorite, active or trashed, of a game.
	FavoritesByGame(gameID string) ([]model.Favorite, error)
	// Trash returns all soft-deleted favorites.
	Trash() ([]model.Favorite, error)
	ListFavorites() ([]model.Favorite, error)

	GetSetting(key string) ([]byte, error)
	PutSetting(key string, value []byte) error

	// WipeCollection removes every folder and favorite. Settings are kept.
	WipeCollection() error
}

// Open opens the repository for the given backend.
func Open(backend, path string) (Repository, error) {
	switch backend {
	case BackendSQLite, "":
		return NewSQLiteStorage(path)
	case BackendBolt:
		return NewBoltStorage(path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

// DefaultDataDir returns the default data directory: ~/.config/gamecrate
func DefaultDataDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "gamecrate"), nil
}

// DefaultPath returns the default database path for a backend.
func DefaultPath(backend string) (string, error) {
	dir, err := DefaultDataDir()
	if err != nil {
		return "", err
	}
	if backend == BackendBolt {
		return filepath.Join(dir, "gamecrate.bolt"), nil
	}
	return filepath.Join(dir, "gamecrate.db"), nil
}

func ensureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0755)
}
