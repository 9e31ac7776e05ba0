package collection

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/nikbrunner/gamecrate/internal/model"
	"github.com/nikbrunner/gamecrate/internal/storage"
)

// DeleteFolderOptions controls DeleteFolder.
type DeleteFolderOptions struct {
	// Cascade permanently deletes the folder's favorites, active and trashed.
	Cascade bool
}

// EnsureDefaults seeds DefaultFolderNames when the collection has no
// folders and returns the folders afterwards.
func (s *Service) EnsureDefaults(ctx context.Context) ([]model.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var folders []model.Folder
	err := s.update(ctx, "seed default folders", func(tx storage.Tx) error {
		existing, err := tx.ListFolders()
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			folders = existing
			return nil
		}

		base := s.now()
		for i, name := range DefaultFolderNames {
			f := model.NewFolder(model.NewFolderParams{
				Name:      name,
				CreatedAt: base.Add(time.Duration(i) * time.Millisecond),
			})
			if err := tx.PutFolder(f); err != nil {
				return err
			}
			folders = append(folders, f)
		}
		s.log.Info("seeded default folders", "count", len(folders))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return folders, nil
}

// AddFolder creates a folder. The name is trimmed and must be 1 to
// model.MaxFolderNameLength characters. The new folder is always newer
// than every existing one, so the protected folder never changes.
func (s *Service) AddFolder(ctx context.Context, name string) (model.Folder, error) {
	params := model.NewFolderParams{Name: strings.TrimSpace(name)}
	if err := s.validator.Validate(params); err != nil {
		return model.Folder{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var folder model.Folder
	err := s.update(ctx, "add folder", func(tx storage.Tx) error {
		existing, err := tx.ListFolders()
		if err != nil {
			return err
		}

		params.CreatedAt = s.now()
		if n := len(existing); n > 0 {
			newest := existing[n-1].CreatedAt
			if !params.CreatedAt.After(newest) {
				params.CreatedAt = newest.Add(time.Microsecond)
			}
		}

		folder = model.NewFolder(params)
		return tx.PutFolder(folder)
	})
	if err != nil {
		return model.Folder{}, err
	}

	s.log.Debug("folder added", "id", folder.ID, "name", folder.Name)
	return folder, nil
}

// RenameFolder changes a folder's name.
func (s *Service) RenameFolder(ctx context.Context, id, name string) (model.Folder, error) {
	params := model.NewFolderParams{Name: strings.TrimSpace(name)}
	if err := s.validator.Validate(params); err != nil {
		return model.Folder{}, err
	}

	var folder model.Folder
	err := s.withFolders(func() error {
		return s.update(ctx, "rename folder", func(tx storage.Tx) error {
			f, err := getFolder(tx, id)
			if err != nil {
				return err
			}
			f.Name = params.Name
			folder = f
			return tx.PutFolder(f)
		})
	}, id)
	if err != nil {
		return model.Folder{}, err
	}

	s.log.Debug("folder renamed", "id", id, "name", folder.Name)
	return folder, nil
}

// DeleteFolder removes a folder. The protected folder cannot be deleted.
// A folder still holding favorites, including trashed ones, is only
// deleted with opts.Cascade, which permanently deletes them first.
func (s *Service) DeleteFolder(ctx context.Context, id string, opts DeleteFolderOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	err := s.update(ctx, "delete folder", func(tx storage.Tx) error {
		folder, err := getFolder(tx, id)
		if err != nil {
			return err
		}

		folders, err := tx.ListFolders()
		if err != nil {
			return err
		}
		if protected, ok := model.OldestFolder(folders); ok && protected.ID == id {
			return model.Protectedf("folder %q is protected and cannot be deleted", folder.Name)
		}

		favs, err := tx.FavoritesInFolder(id)
		if err != nil {
			return err
		}
		if len(favs) > 0 && !opts.Cascade {
			return model.Conflictf("folder %q still holds %d favorites", folder.Name, len(favs))
		}
		for _, f := range favs {
			if err := tx.DeleteFavorite(f.ID); err != nil {
				return err
			}
		}
		removed = len(favs)

		return tx.DeleteFolder(id)
	})
	if err != nil {
		return err
	}

	s.log.Debug("folder deleted", "id", id, "favorites_removed", removed)
	return nil
}

// ListFolders returns all folders, oldest first.
func (s *Service) ListFolders(ctx context.Context) ([]model.Folder, error) {
	var folders []model.Folder
	err := s.view(ctx, "list folders", func(tx storage.Tx) error {
		var err error
		folders, err = tx.ListFolders()
		return err
	})
	return folders, err
}

// GetFolder returns a folder by id.
func (s *Service) GetFolder(ctx context.Context, id string) (model.Folder, error) {
	var folder model.Folder
	err := s.view(ctx, "get folder", func(tx storage.Tx) error {
		var err error
		folder, err = getFolder(tx, id)
		return err
	})
	return folder, err
}

// ProtectedFolder returns the oldest folder.
func (s *Service) ProtectedFolder(ctx context.Context) (model.Folder, error) {
	folders, err := s.ListFolders(ctx)
	if err != nil {
		return model.Folder{}, err
	}
	protected, ok := model.OldestFolder(folders)
	if !ok {
		return model.Folder{}, model.NotFoundf("collection has no folders")
	}
	return protected, nil
}

func getFolder(tx storage.Tx, id string) (model.Folder, error) {
	f, err := tx.GetFolder(id)
	if errors.Is(err, storage.ErrNotFound) {
		return model.Folder{}, model.NotFoundf("folder %s not found", id)
	}
	return f, err
}
