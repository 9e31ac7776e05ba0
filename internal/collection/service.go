// Package collection is the durable store of folders and favorites.
//
// Every operation runs in one repository transaction, so the sort orders of
// a folder are renumbered atomically with the change that caused it.
// Operations that reorder a folder are serialized per folder; WipeAll,
// DeleteFolder and EmptyTrash exclude everything else.
package collection

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/nikbrunner/gamecrate/internal/model"
	"github.com/nikbrunner/gamecrate/internal/storage"
	"github.com/nikbrunner/gamecrate/internal/validation"
)

// DefaultFolderNames are seeded, in this order, into an empty collection.
// The first one becomes the protected folder.
var DefaultFolderNames = []string{"Favorites", "Wishlist", "Play Later"}

// Service implements the collection operations over a storage.Repository.
type Service struct {
	repo      storage.Repository
	log       *slog.Logger
	validator *validation.Validator
	now       func() time.Time

	mu    sync.RWMutex
	locks *folderLocks
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service.
func NewService(repo storage.Repository, log *slog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		log:       log,
		validator: validation.New(),
		now:       time.Now,
		locks:     newFolderLocks(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// translate maps repository errors to domain errors. Domain errors and
// context errors pass through unchanged.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	var domainErr *model.Error
	if errors.As(err, &domainErr) {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, storage.ErrNotFound):
		return model.NotFoundf("%s: not found", op)
	case errors.Is(err, storage.ErrDuplicateGame):
		return model.Conflictf("%s: game is already in the collection", op).WithCause(err)
	default:
		return model.Storage(op, err)
	}
}

// view runs a read transaction under the shared lock.
func (s *Service) view(ctx context.Context, op string, fn func(storage.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return translate(op, s.repo.View(ctx, fn))
}

// update runs a write transaction. The caller holds whatever locks the
// operation needs.
func (s *Service) update(ctx context.Context, op string, fn func(storage.Tx) error) error {
	return translate(op, s.repo.Update(ctx, fn))
}

// withFolders holds the shared lock and the locks of folderIDs while fn runs.
func (s *Service) withFolders(fn func() error, folderIDs ...string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	unlock := s.locks.lock(folderIDs...)
	defer unlock()
	return fn()
}

// withFavorite locks the folder currently holding favorite id, plus extra
// folders, and runs fn. A favorite only changes folder under its source
// folder's lock, so the folder read after locking is stable.
func (s *Service) withFavorite(ctx context.Context, op, id string, fn func() error, extra ...string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for {
		folderID, err := s.favoriteFolder(ctx, op, id)
		if err != nil {
			return err
		}

		unlock := s.locks.lock(append([]string{folderID}, extra...)...)
		current, err := s.favoriteFolder(ctx, op, id)
		if err != nil {
			unlock()
			return err
		}
		if current != folderID {
			unlock()
			continue
		}

		err = fn()
		unlock()
		return err
	}
}

func (s *Service) favoriteFolder(ctx context.Context, op, id string) (string, error) {
	var folderID string
	err := s.repo.View(ctx, func(tx storage.Tx) error {
		f, err := tx.GetFavorite(id)
		if err != nil {
			return err
		}
		folderID = f.FolderID
		return nil
	})
	if errors.Is(err, storage.ErrNotFound) {
		return "", model.NotFoundf("favorite %s not found", id)
	}
	return folderID, translate(op, err)
}

// WipeAll deletes every folder and favorite. Settings are kept.
func (s *Service) WipeAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.update(ctx, "wipe collection", func(tx storage.Tx) error {
		return tx.WipeCollection()
	}); err != nil {
		return err
	}
	s.log.Info("collection wiped")
	return nil
}
