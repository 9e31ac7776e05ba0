package storage_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nikbrunner/gamecrate/internal/model"
	"github.com/nikbrunner/gamecrate/internal/storage"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// forEachBackend runs fn against a fresh repository of every backend.
func forEachBackend(t *testing.T, fn func(t *testing.T, repo storage.Repository)) {
	t.Helper()
	for _, backend := range []string{storage.BackendSQLite, storage.BackendBolt} {
		t.Run(backend, func(t *testing.T) {
			repo, err := storage.Open(backend, filepath.Join(t.TempDir(), "crate."+backend))
			assert.NilError(t, err)
			t.Cleanup(func() { repo.Close() })
			fn(t, repo)
		})
	}
}

func seedFolder(t *testing.T, repo storage.Repository, id, name string, createdAt time.Time) model.Folder {
	t.Helper()
	f := model.Folder{ID: id, Name: name, CreatedAt: createdAt}
	err := repo.Update(context.Background(), func(tx storage.Tx) error {
		return tx.PutFolder(f)
	})
	assert.NilError(t, err)
	return f
}

func favoriteIDs(favs []model.Favorite) []string {
	ids := make([]string, len(favs))
	for i, f := range favs {
		ids[i] = f.ID
	}
	return ids
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := storage.Open("postgres", filepath.Join(t.TempDir(), "x"))
	assert.ErrorContains(t, err, "unknown storage backend")
}

func TestRepository_FolderRoundTrip(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo storage.Repository) {
		ctx := context.Background()
		seedFolder(t, repo, "b", "Wishlist", base.Add(time.Minute))
		seedFolder(t, repo, "a", "Favorites", base)

		err := repo.View(ctx, func(tx storage.Tx) error {
			folders, err := tx.ListFolders()
			assert.NilError(t, err)
			assert.Equal(t, len(folders), 2)
			assert.Equal(t, folders[0].ID, "a")
			assert.Equal(t, folders[1].Name, "Wishlist")
			assert.Assert(t, folders[0].CreatedAt.Equal(base))

			f, err := tx.GetFolder("b")
			assert.NilError(t, err)
			assert.Equal(t, f.Name, "Wishlist")

			_, err = tx.GetFolder("missing")
			assert.Assert(t, errors.Is(err, storage.ErrNotFound))
			return nil
		})
		assert.NilError(t, err)

		// Rename through upsert.
		seedFolder(t, repo, "b", "Later", base.Add(time.Minute))
		err = repo.Update(ctx, func(tx storage.Tx) error {
			f, err := tx.GetFolder("b")
			assert.NilError(t, err)
			assert.Equal(t, f.Name, "Later")
			assert.NilError(t, tx.DeleteFolder("b"))
			assert.Assert(t, errors.Is(tx.DeleteFolder("b"), storage.ErrNotFound))
			return nil
		})
		assert.NilError(t, err)
	})
}

func TestRepository_FavoritesInFolderOrdered(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo storage.Repository) {
		ctx := context.Background()
		seedFolder(t, repo, "f1", "Favorites", base)
		seedFolder(t, repo, "f2", "Wishlist", base.Add(time.Second))

		err := repo.Update(ctx, func(tx storage.Tx) error {
			for _, fav := range []model.Favorite{
				{ID: "x3", FolderID: "f1", GameID: "g3", SortOrder: 3, CreatedAt: base},
				{ID: "x1", FolderID: "f1", GameID: "g1", SortOrder: 1, CreatedAt: base},
				{ID: "x2", FolderID: "f1", GameID: "g2", SortOrder: 2, CreatedAt: base},
				{ID: "y1", FolderID: "f2", GameID: "g4", SortOrder: 1, CreatedAt: base},
			} {
				if err := tx.PutFavorite(fav); err != nil {
					return err
				}
			}
			return nil
		})
		assert.NilError(t, err)

		err = repo.View(ctx, func(tx storage.Tx) error {
			favs, err := tx.FavoritesInFolder("f1")
			assert.NilError(t, err)
			assert.DeepEqual(t, favoriteIDs(favs), []string{"x1", "x2", "x3"})

			all, err := tx.ListFavorites()
			assert.NilError(t, err)
			assert.Check(t, is.Len(all, 4))
			return nil
		})
		assert.NilError(t, err)
	})
}

func TestRepository_MoveUpdatesIndexes(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo storage.Repository) {
		ctx := context.Background()
		seedFolder(t, repo, "f1", "Favorites", base)
		seedFolder(t, repo, "f2", "Wishlist", base.Add(time.Second))

		fav := model.Favorite{ID: "x1", FolderID: "f1", GameID: "g1", SortOrder: 1, CreatedAt: base}
		err := repo.Update(ctx, func(tx storage.Tx) error {
			if err := tx.PutFavorite(fav); err != nil {
				return err
			}
			fav.FolderID = "f2"
			return tx.PutFavorite(fav)
		})
		assert.NilError(t, err)

		err = repo.View(ctx, func(tx storage.Tx) error {
			inF1, err := tx.FavoritesInFolder("f1")
			assert.NilError(t, err)
			assert.Check(t, is.Len(inF1, 0))

			inF2, err := tx.FavoritesInFolder("f2")
			assert.NilError(t, err)
			assert.DeepEqual(t, favoriteIDs(inF2), []string{"x1"})

			byGame, err := tx.FavoritesByGame("g1")
			assert.NilError(t, err)
			assert.Check(t, is.Len(byGame, 1))
			return nil
		})
		assert.NilError(t, err)
	})
}

func TestRepository_RejectsSecondActiveFavoriteForGame(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo storage.Repository) {
		ctx := context.Background()
		seedFolder(t, repo, "f1", "Favorites", base)

		err := repo.Update(ctx, func(tx storage.Tx) error {
			return tx.PutFavorite(model.Favorite{ID: "x1", FolderID: "f1", GameID: "g1", SortOrder: 1, CreatedAt: base})
		})
		assert.NilError(t, err)

		err = repo.Update(ctx, func(tx storage.Tx) error {
			return tx.PutFavorite(model.Favorite{ID: "x2", FolderID: "f1", GameID: "g1", SortOrder: 2, CreatedAt: base})
		})
		assert.Assert(t, errors.Is(err, storage.ErrDuplicateGame))

		// A trashed duplicate is fine.
		err = repo.Update(ctx, func(tx storage.Tx) error {
			return tx.PutFavorite(model.Favorite{ID: "x2", FolderID: "f1", GameID: "g1", SortOrder: 2, CreatedAt: base, Deleted: true})
		})
		assert.NilError(t, err)

		err = repo.View(ctx, func(tx storage.Tx) error {
			byGame, err := tx.FavoritesByGame("g1")
			assert.NilError(t, err)
			assert.Check(t, is.Len(byGame, 2))

			trash, err := tx.Trash()
			assert.NilError(t, err)
			assert.DeepEqual(t, favoriteIDs(trash), []string{"x2"})
			return nil
		})
		assert.NilError(t, err)
	})
}

func TestRepository_UpdateRollsBackOnError(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo storage.Repository) {
		ctx := context.Background()
		boom := errors.New("boom")

		err := repo.Update(ctx, func(tx storage.Tx) error {
			if err := tx.PutFolder(model.Folder{ID: "f1", Name: "Favorites", CreatedAt: base}); err != nil {
				return err
			}
			return boom
		})
		assert.Assert(t, errors.Is(err, boom))

		err = repo.View(ctx, func(tx storage.Tx) error {
			folders, err := tx.ListFolders()
			assert.NilError(t, err)
			assert.Check(t, is.Len(folders, 0))
			return nil
		})
		assert.NilError(t, err)
	})
}

func TestRepository_DeleteFavorite(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo storage.Repository) {
		ctx := context.Background()
		seedFolder(t, repo, "f1", "Favorites", base)

		err := repo.Update(ctx, func(tx storage.Tx) error {
			if err := tx.PutFavorite(model.Favorite{ID: "x1", FolderID: "f1", GameID: "g1", SortOrder: 1, CreatedAt: base}); err != nil {
				return err
			}
			return tx.DeleteFavorite("x1")
		})
		assert.NilError(t, err)

		err = repo.Update(ctx, func(tx storage.Tx) error {
			_, err := tx.GetFavorite("x1")
			assert.Assert(t, errors.Is(err, storage.ErrNotFound))
			assert.Assert(t, errors.Is(tx.DeleteFavorite("x1"), storage.ErrNotFound))

			// The game is free again.
			return tx.PutFavorite(model.Favorite{ID: "x2", FolderID: "f1", GameID: "g1", SortOrder: 1, CreatedAt: base})
		})
		assert.NilError(t, err)
	})
}

func TestRepository_Settings(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo storage.Repository) {
		ctx := context.Background()

		err := repo.View(ctx, func(tx storage.Tx) error {
			_, err := tx.GetSetting("settings")
			assert.Assert(t, errors.Is(err, storage.ErrNotFound))
			return nil
		})
		assert.NilError(t, err)

		err = repo.Update(ctx, func(tx storage.Tx) error {
			if err := tx.PutSetting("settings", []byte(`{"order":"asc"}`)); err != nil {
				return err
			}
			return tx.PutSetting("settings", []byte(`{"order":"desc"}`))
		})
		assert.NilError(t, err)

		err = repo.View(ctx, func(tx storage.Tx) error {
			v, err := tx.GetSetting("settings")
			assert.NilError(t, err)
			assert.Equal(t, string(v), `{"order":"desc"}`)
			return nil
		})
		assert.NilError(t, err)
	})
}

func TestRepository_WipeCollectionKeepsSettings(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo storage.Repository) {
		ctx := context.Background()
		seedFolder(t, repo, "f1", "Favorites", base)

		err := repo.Update(ctx, func(tx storage.Tx) error {
			if err := tx.PutFavorite(model.Favorite{ID: "x1", FolderID: "f1", GameID: "g1", SortOrder: 1, CreatedAt: base}); err != nil {
				return err
			}
			if err := tx.PutSetting("settings", []byte(`{}`)); err != nil {
				return err
			}
			return tx.WipeCollection()
		})
		assert.NilError(t, err)

		err = repo.View(ctx, func(tx storage.Tx) error {
			folders, err := tx.ListFolders()
			assert.NilError(t, err)
			assert.Check(t, is.Len(folders, 0))

			favs, err := tx.ListFavorites()
			assert.NilError(t, err)
			assert.Check(t, is.Len(favs, 0))

			byGame, err := tx.FavoritesByGame("g1")
			assert.NilError(t, err)
			assert.Check(t, is.Len(byGame, 0))

			_, err = tx.GetSetting("settings")
			assert.NilError(t, err)
			return nil
		})
		assert.NilError(t, err)
	})
}

func TestRepository_CanceledContext(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo storage.Repository) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		called := false
		err := repo.Update(ctx, func(tx storage.Tx) error {
			called = true
			return nil
		})
		assert.Assert(t, err != nil)
		assert.Assert(t, !called)
	})
}
