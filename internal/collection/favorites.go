package collection

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/nikbrunner/gamecrate/internal/model"
	"github.com/nikbrunner/gamecrate/internal/storage"
)

// AddFavoriteParams holds parameters for AddFavorite.
type AddFavoriteParams struct {
	FolderID string `validate:"required"`
	GameID   string `validate:"required"`
	// SortOrder is the 1-based position to insert at, clamped to 1..N+1.
	// Zero appends.
	SortOrder int `validate:"gte=0"`
	// CreatedAt defaults to now.
	CreatedAt time.Time
}

// ListActiveFavorites returns the favorites of a folder that are not in
// the trash, by sort order.
func (s *Service) ListActiveFavorites(ctx context.Context, folderID string) ([]model.Favorite, error) {
	var favs []model.Favorite
	err := s.view(ctx, "list favorites", func(tx storage.Tx) error {
		if _, err := getFolder(tx, folderID); err != nil {
			return err
		}
		var err error
		favs, err = activeIn(tx, folderID)
		return err
	})
	return favs, err
}

// ListTrash returns every trashed favorite, oldest first.
func (s *Service) ListTrash(ctx context.Context) ([]model.Favorite, error) {
	var favs []model.Favorite
	err := s.view(ctx, "list trash", func(tx storage.Tx) error {
		var err error
		favs, err = tx.Trash()
		return err
	})
	return favs, err
}

// GetFavorite returns a favorite by id, trashed or not.
func (s *Service) GetFavorite(ctx context.Context, id string) (model.Favorite, error) {
	var fav model.Favorite
	err := s.view(ctx, "get favorite", func(tx storage.Tx) error {
		var err error
		fav, err = getFavorite(tx, id)
		return err
	})
	return fav, err
}

// FindActiveByGame returns the active favorite of a game, if any.
func (s *Service) FindActiveByGame(ctx context.Context, gameID string) (model.Favorite, bool, error) {
	var (
		fav   model.Favorite
		found bool
	)
	err := s.view(ctx, "find favorite", func(tx storage.Tx) error {
		var err error
		fav, found, err = activeByGame(tx, gameID)
		return err
	})
	return fav, found, err
}

// AddFavorite files a game under a folder. It fails with a conflict error
// when the game already has an active favorite anywhere.
func (s *Service) AddFavorite(ctx context.Context, params AddFavoriteParams) (model.Favorite, error) {
	if err := s.validator.Validate(params); err != nil {
		return model.Favorite{}, err
	}

	var fav model.Favorite
	err := s.withFolders(func() error {
		return s.update(ctx, "add favorite", func(tx storage.Tx) error {
			if _, err := getFolder(tx, params.FolderID); err != nil {
				return err
			}
			if existing, found, err := activeByGame(tx, params.GameID); err != nil {
				return err
			} else if found {
				return model.Conflictf("game %s is already in the collection as favorite %s", params.GameID, existing.ID)
			}

			siblings, err := activeIn(tx, params.FolderID)
			if err != nil {
				return err
			}

			pos := len(siblings) + 1
			if params.SortOrder > 0 {
				pos = min(params.SortOrder, pos)
			}

			createdAt := params.CreatedAt
			if createdAt.IsZero() {
				createdAt = s.now()
			}
			fav = model.NewFavorite(model.NewFavoriteParams{
				FolderID:  params.FolderID,
				GameID:    params.GameID,
				SortOrder: pos,
				CreatedAt: createdAt,
			})

			ordered := slices.Insert(siblings, pos-1, fav)
			if err := tx.PutFavorite(fav); err != nil {
				return err
			}
			return renumber(tx, ordered, fav.ID)
		})
	}, params.FolderID)
	if err != nil {
		return model.Favorite{}, err
	}

	s.log.Debug("favorite added", "id", fav.ID, "game", fav.GameID, "folder", fav.FolderID, "sort_order", fav.SortOrder)
	return fav, nil
}

// MoveFavorite moves an active favorite to the end of another folder and
// renumbers the folder it left. Moving to its own folder does nothing.
func (s *Service) MoveFavorite(ctx context.Context, id, folderID string) (model.Favorite, error) {
	var fav model.Favorite
	err := s.withFavorite(ctx, "move favorite", id, func() error {
		return s.update(ctx, "move favorite", func(tx storage.Tx) error {
			f, err := getFavorite(tx, id)
			if err != nil {
				return err
			}
			if f.Deleted {
				return model.Validation("cannot move a favorite that is in the trash")
			}
			if _, err := getFolder(tx, folderID); err != nil {
				return err
			}
			if f.FolderID == folderID {
				fav = f
				return nil
			}

			source, err := activeIn(tx, f.FolderID)
			if err != nil {
				return err
			}
			dest, err := activeIn(tx, folderID)
			if err != nil {
				return err
			}

			f.FolderID = folderID
			f.SortOrder = len(dest) + 1
			if err := tx.PutFavorite(f); err != nil {
				return err
			}
			fav = f
			return renumber(tx, without(source, id), "")
		})
	}, folderID)
	if err != nil {
		return model.Favorite{}, err
	}

	s.log.Debug("favorite moved", "id", id, "folder", folderID, "sort_order", fav.SortOrder)
	return fav, nil
}

// Reorder moves an active favorite to the 0-based newIndex within its
// folder, clamped to the folder's bounds. The other favorites keep their
// relative order. It returns the folder's favorites in their new order.
func (s *Service) Reorder(ctx context.Context, id string, newIndex int) ([]model.Favorite, error) {
	var ordered []model.Favorite
	err := s.withFavorite(ctx, "reorder favorite", id, func() error {
		return s.update(ctx, "reorder favorite", func(tx storage.Tx) error {
			f, err := getFavorite(tx, id)
			if err != nil {
				return err
			}
			if f.Deleted {
				return model.Validation("cannot reorder a favorite that is in the trash")
			}

			siblings, err := activeIn(tx, f.FolderID)
			if err != nil {
				return err
			}
			rest := without(siblings, id)
			idx := max(0, min(newIndex, len(rest)))

			ordered = slices.Insert(rest, idx, f)
			return renumber(tx, ordered, "")
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug("favorite reordered", "id", id, "index", newIndex)
	return ordered, nil
}

// SoftDelete moves a favorite to the trash and renumbers its folder.
// The favorite keeps its folder so Restore can put it back. Trashing an
// already trashed favorite does nothing.
func (s *Service) SoftDelete(ctx context.Context, id string) error {
	err := s.withFavorite(ctx, "trash favorite", id, func() error {
		return s.update(ctx, "trash favorite", func(tx storage.Tx) error {
			f, err := getFavorite(tx, id)
			if err != nil {
				return err
			}
			if f.Deleted {
				return nil
			}

			siblings, err := activeIn(tx, f.FolderID)
			if err != nil {
				return err
			}

			f.Deleted = true
			if err := tx.PutFavorite(f); err != nil {
				return err
			}
			return renumber(tx, without(siblings, id), "")
		})
	})
	if err != nil {
		return err
	}

	s.log.Debug("favorite trashed", "id", id)
	return nil
}

// Restore takes a favorite out of the trash and appends it to the end of
// its folder. It fails with a conflict error when the game was added
// again in the meantime.
func (s *Service) Restore(ctx context.Context, id string) (model.Favorite, error) {
	var fav model.Favorite
	err := s.withFavorite(ctx, "restore favorite", id, func() error {
		return s.update(ctx, "restore favorite", func(tx storage.Tx) error {
			f, err := getFavorite(tx, id)
			if err != nil {
				return err
			}
			if !f.Deleted {
				return model.Validation("favorite is not in the trash")
			}
			if _, found, err := activeByGame(tx, f.GameID); err != nil {
				return err
			} else if found {
				return model.Conflictf("game %s was added to the collection again", f.GameID)
			}

			siblings, err := activeIn(tx, f.FolderID)
			if err != nil {
				return err
			}

			f.Deleted = false
			f.SortOrder = len(siblings) + 1
			fav = f
			return tx.PutFavorite(f)
		})
	})
	if err != nil {
		return model.Favorite{}, err
	}

	s.log.Debug("favorite restored", "id", id, "folder", fav.FolderID, "sort_order", fav.SortOrder)
	return fav, nil
}

// HardDelete permanently removes a favorite and renumbers its folder.
func (s *Service) HardDelete(ctx context.Context, id string) error {
	err := s.withFavorite(ctx, "delete favorite", id, func() error {
		return s.update(ctx, "delete favorite", func(tx storage.Tx) error {
			f, err := getFavorite(tx, id)
			if err != nil {
				return err
			}
			if err := tx.DeleteFavorite(id); err != nil {
				return err
			}
			if f.Deleted {
				return nil
			}

			siblings, err := activeIn(tx, f.FolderID)
			if err != nil {
				return err
			}
			return renumber(tx, siblings, "")
		})
	})
	if err != nil {
		return err
	}

	s.log.Debug("favorite deleted", "id", id)
	return nil
}

// Remove deletes a favorite permanently when permanent is set, otherwise
// moves it to the trash.
func (s *Service) Remove(ctx context.Context, id string, permanent bool) error {
	if permanent {
		return s.HardDelete(ctx, id)
	}
	return s.SoftDelete(ctx, id)
}

// EmptyTrash permanently deletes every trashed favorite and returns how
// many were removed.
func (s *Service) EmptyTrash(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	err := s.update(ctx, "empty trash", func(tx storage.Tx) error {
		trash, err := tx.Trash()
		if err != nil {
			return err
		}
		for _, f := range trash {
			if err := tx.DeleteFavorite(f.ID); err != nil {
				return err
			}
		}
		count = len(trash)
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.log.Debug("trash emptied", "count", count)
	return count, nil
}

func getFavorite(tx storage.Tx, id string) (model.Favorite, error) {
	f, err := tx.GetFavorite(id)
	if errors.Is(err, storage.ErrNotFound) {
		return model.Favorite{}, model.NotFoundf("favorite %s not found", id)
	}
	return f, err
}

func activeIn(tx storage.Tx, folderID string) ([]model.Favorite, error) {
	favs, err := tx.FavoritesInFolder(folderID)
	if err != nil {
		return nil, err
	}
	return model.Active(favs), nil
}

func activeByGame(tx storage.Tx, gameID string) (model.Favorite, bool, error) {
	favs, err := tx.FavoritesByGame(gameID)
	if err != nil {
		return model.Favorite{}, false, err
	}
	for _, f := range favs {
		if !f.Deleted {
			return f, true, nil
		}
	}
	return model.Favorite{}, false, nil
}

// renumber assigns sort orders 1..N in slice order and writes the
// favorites whose order changed. skipID was just written with its final
// order and is not written again.
func renumber(tx storage.Tx, ordered []model.Favorite, skipID string) error {
	for i := range ordered {
		want := i + 1
		if ordered[i].SortOrder == want {
			continue
		}
		ordered[i].SortOrder = want
		if ordered[i].ID == skipID {
			continue
		}
		if err := tx.PutFavorite(ordered[i]); err != nil {
			return err
		}
	}
	return nil
}

func without(favs []model.Favorite, id string) []model.Favorite {
	return slices.DeleteFunc(slices.Clone(favs), func(f model.Favorite) bool {
		return f.ID == id
	})
}
