package importer_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nikbrunner/gamecrate/internal/collection"
	"github.com/nikbrunner/gamecrate/internal/exporter"
	"github.com/nikbrunner/gamecrate/internal/importer"
	"github.com/nikbrunner/gamecrate/internal/logger"
	"github.com/nikbrunner/gamecrate/internal/model"
	"github.com/nikbrunner/gamecrate/internal/storage"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func newService(t *testing.T, backend string) *collection.Service {
	t.Helper()
	repo, err := storage.Open(backend, filepath.Join(t.TempDir(), "crate."+backend))
	assert.NilError(t, err)
	t.Cleanup(func() { repo.Close() })
	return collection.NewService(repo, logger.Discard())
}

// pairs returns "folder:gameId:sortOrder" for every exported favorite.
func pairs(t *testing.T, svc *collection.Service) []string {
	t.Helper()
	snap, err := exporter.Export(context.Background(), svc, exporter.ScopeAll, time.Now())
	assert.NilError(t, err)
	var out []string
	for _, f := range snap.Favorites {
		out = append(out, fmt.Sprintf("%s:%s:%d", f.FolderName, f.GameID, f.SortOrder))
	}
	return out
}

func folderNames(t *testing.T, svc *collection.Service) []string {
	t.Helper()
	folders, err := svc.ListFolders(context.Background())
	assert.NilError(t, err)
	names := make([]string, len(folders))
	for i, f := range folders {
		names[i] = f.Name
	}
	return names
}

func populate(t *testing.T, svc *collection.Service) {
	t.Helper()
	ctx := context.Background()
	folders, err := svc.EnsureDefaults(ctx)
	assert.NilError(t, err)
	extra, err := svc.AddFolder(ctx, "Co-op")
	assert.NilError(t, err)

	add := func(folderID, gameID string) model.Favorite {
		f, err := svc.AddFavorite(ctx, collection.AddFavoriteParams{FolderID: folderID, GameID: gameID})
		assert.NilError(t, err)
		return f
	}
	add(folders[0].ID, "1145360")
	add(folders[0].ID, "367520")
	add(folders[0].ID, "646570")
	add(folders[1].ID, "413150")
	add(extra.ID, "105600")
	add(extra.ID, "1245620")
	trashed := add(folders[2].ID, "292030")
	assert.NilError(t, svc.SoftDelete(ctx, trashed.ID))

	// Shuffle one folder so sort orders are not insertion order.
	favs, err := svc.ListActiveFavorites(ctx, folders[0].ID)
	assert.NilError(t, err)
	_, err = svc.Reorder(ctx, favs[2].ID, 0)
	assert.NilError(t, err)
}

func TestImport_RoundTripIntoEmptyCollection(t *testing.T) {
	for _, backend := range []string{storage.BackendSQLite, storage.BackendBolt} {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			source := newService(t, backend)
			populate(t, source)

			snap, err := exporter.Export(ctx, source, exporter.ScopeAll, time.Now())
			assert.NilError(t, err)

			target := newService(t, backend)
			res, err := importer.New(target, logger.Discard()).Import(ctx, snap)
			assert.NilError(t, err)

			assert.Check(t, is.Equal(res.Imported, 6))
			assert.Check(t, is.Equal(res.Skipped, 0))
			assert.Check(t, is.Equal(res.Failed, 0))
			assert.Check(t, is.Equal(res.FoldersCreated, 4))

			assert.DeepEqual(t, folderNames(t, target), folderNames(t, source))
			assert.DeepEqual(t, pairs(t, target), pairs(t, source))
		})
	}
}

func TestImport_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	source := newService(t, storage.BackendSQLite)
	populate(t, source)

	snap, err := exporter.Export(ctx, source, exporter.ScopeAll, time.Now())
	assert.NilError(t, err)

	target := newService(t, storage.BackendSQLite)
	im := importer.New(target, logger.Discard())

	first, err := im.Import(ctx, snap)
	assert.NilError(t, err)
	assert.Equal(t, first.Imported, len(snap.Favorites))

	second, err := im.Import(ctx, snap)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(second.Imported, 0))
	assert.Check(t, is.Equal(second.Skipped, len(snap.Favorites)))
	assert.Check(t, is.Equal(second.FoldersCreated, 0))
}

func TestImport_ReusesFoldersByIDThenName(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, storage.BackendSQLite)
	folders, err := svc.EnsureDefaults(ctx)
	assert.NilError(t, err)

	snap := model.NewSnapshot(time.Now())
	snap.Folders = []model.SnapshotFolder{
		// Renamed since export: matched by id.
		{ID: folders[1].ID, Name: "Old Wishlist Name"},
		// Unknown id, known name: matched by name.
		{ID: "elsewhere", Name: "Play Later"},
	}
	snap.Favorites = []model.SnapshotFavorite{
		{FolderName: "Old Wishlist Name", FolderRef: folders[1].ID, GameID: "1", SortOrder: 1},
		{FolderName: "Play Later", FolderRef: "elsewhere", GameID: "2", SortOrder: 1},
		// Folder not listed in the snapshot: created.
		{FolderName: "Backlog", GameID: "3", SortOrder: 1},
	}

	res, err := importer.New(svc, logger.Discard()).Import(ctx, snap)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(res.Imported, 3))
	assert.Check(t, is.Equal(res.FoldersCreated, 1))

	wish, err := svc.ListActiveFavorites(ctx, folders[1].ID)
	assert.NilError(t, err)
	assert.Check(t, is.Len(wish, 1))

	later, err := svc.ListActiveFavorites(ctx, folders[2].ID)
	assert.NilError(t, err)
	assert.Check(t, is.Len(later, 1))

	assert.DeepEqual(t, folderNames(t, svc), []string{"Favorites", "Wishlist", "Play Later", "Backlog"})
}

func TestImport_FolderNamesMatchAfterTrimming(t *testing.T) {
	for _, backend := range []string{storage.BackendSQLite, storage.BackendBolt} {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			svc := newService(t, backend)
			_, err := svc.EnsureDefaults(ctx)
			assert.NilError(t, err)
			_, err = svc.AddFolder(ctx, "Co-op")
			assert.NilError(t, err)

			snap := model.NewSnapshot(time.Now())
			snap.Folders = []model.SnapshotFolder{{ID: "foreign", Name: "RPG "}}
			snap.Favorites = []model.SnapshotFavorite{
				{FolderName: "RPG ", FolderRef: "foreign", GameID: "1", SortOrder: 1},
				{FolderName: "  Co-op", GameID: "2", SortOrder: 1},
			}

			im := importer.New(svc, logger.Discard())
			first, err := im.Import(ctx, snap)
			assert.NilError(t, err)
			assert.Check(t, is.Equal(first.Imported, 2))
			assert.Check(t, is.Equal(first.FoldersCreated, 1))
			want := []string{"Favorites", "Wishlist", "Play Later", "Co-op", "RPG"}
			assert.DeepEqual(t, folderNames(t, svc), want)

			second, err := im.Import(ctx, snap)
			assert.NilError(t, err)
			assert.Check(t, is.Equal(second.Skipped, 2))
			assert.Check(t, is.Equal(second.FoldersCreated, 0))
			assert.DeepEqual(t, folderNames(t, svc), want)
		})
	}
}

func TestImport_SkipsGamesAlreadyInCollection(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, storage.BackendSQLite)
	folders, err := svc.EnsureDefaults(ctx)
	assert.NilError(t, err)
	_, err = svc.AddFavorite(ctx, collection.AddFavoriteParams{FolderID: folders[2].ID, GameID: "1"})
	assert.NilError(t, err)

	snap := model.NewSnapshot(time.Now())
	snap.Folders = []model.SnapshotFolder{{Name: "Favorites"}}
	snap.Favorites = []model.SnapshotFavorite{
		{FolderName: "Favorites", GameID: "1", SortOrder: 1},
		{FolderName: "Favorites", GameID: "2", SortOrder: 2},
		{FolderName: "Favorites", GameID: "2", SortOrder: 3},
	}

	res, err := importer.New(svc, logger.Discard()).Import(ctx, snap)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(res.Imported, 1))
	assert.Check(t, is.Equal(res.Skipped, 2))

	favs, err := svc.ListActiveFavorites(ctx, folders[0].ID)
	assert.NilError(t, err)
	assert.Assert(t, model.IsDense(favs))
}

func TestImport_ValidationWritesNothing(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, storage.BackendSQLite)

	snap := model.NewSnapshot(time.Now())
	snap.Folders = []model.SnapshotFolder{{Name: "Favorites"}}
	snap.Favorites = []model.SnapshotFavorite{
		{FolderName: "Favorites", GameID: "1", SortOrder: 1},
		{FolderName: "Favorites", GameID: "", SortOrder: 2},
	}

	_, err := importer.New(svc, logger.Discard()).Import(ctx, snap)
	assert.Assert(t, errors.Is(err, model.ErrValidation))

	folders, err := svc.ListFolders(ctx)
	assert.NilError(t, err)
	assert.Check(t, is.Len(folders, 0))

	_, err = importer.New(svc, logger.Discard()).Import(ctx, nil)
	assert.Assert(t, errors.Is(err, model.ErrValidation))
}

// flakyCollection fails AddFavorite for one game.
type flakyCollection struct {
	*collection.Service
	failGame string
}

func (f *flakyCollection) AddFavorite(ctx context.Context, params collection.AddFavoriteParams) (model.Favorite, error) {
	if params.GameID == f.failGame {
		return model.Favorite{}, model.Storage("add favorite", errors.New("disk full"))
	}
	return f.Service.AddFavorite(ctx, params)
}

func TestImport_RecordsFailuresAndContinues(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, storage.BackendSQLite)

	snap := model.NewSnapshot(time.Now())
	snap.Folders = []model.SnapshotFolder{{Name: "Favorites"}}
	snap.Favorites = []model.SnapshotFavorite{
		{FolderName: "Favorites", GameID: "1", SortOrder: 1},
		{FolderName: "Favorites", GameID: "2", SortOrder: 2},
		{FolderName: "Favorites", GameID: "3", SortOrder: 3},
	}

	res, err := importer.New(&flakyCollection{Service: svc, failGame: "2"}, logger.Discard()).Import(ctx, snap)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(res.Imported, 2))
	assert.Check(t, is.Equal(res.Failed, 1))
	assert.Assert(t, is.Len(res.Errors, 1))
	assert.Check(t, is.Equal(res.Errors[0].GameID, "2"))
	assert.Check(t, is.Contains(res.Errors[0].Error, "disk full"))
}

func TestImport_CanceledContext(t *testing.T) {
	svc := newService(t, storage.BackendSQLite)
	_, err := svc.EnsureDefaults(context.Background())
	assert.NilError(t, err)

	snap := model.NewSnapshot(time.Now())
	snap.Folders = []model.SnapshotFolder{{Name: "Favorites"}}
	snap.Favorites = []model.SnapshotFavorite{{FolderName: "Favorites", GameID: "1", SortOrder: 1}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = importer.New(svc, logger.Discard()).Import(ctx, snap)
	assert.Assert(t, errors.Is(err, context.Canceled))
}

func TestDecodeSnapshot(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{
			name:  "valid",
			input: `{"version":"1.0","exportDate":"2025-07-01T00:00:00Z","folders":[{"name":"Favorites","createdAt":"2025-01-01T00:00:00Z"}],"favorites":[{"folderId":"Favorites","gameId":"1","sortOrder":1,"createdAt":"2025-01-01T00:00:00Z"}]}`,
		},
		{name: "missing version", input: `{"folders":[],"favorites":[]}`, wantErr: true},
		{name: "missing folders", input: `{"version":"1.0","favorites":[]}`, wantErr: true},
		{name: "missing favorites", input: `{"version":"1.0","folders":[]}`, wantErr: true},
		{name: "future version", input: `{"version":"2.0","folders":[],"favorites":[]}`, wantErr: true},
		{name: "not json", input: `<html>`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := importer.DecodeSnapshot(strings.NewReader(tt.input))
			if tt.wantErr {
				assert.Assert(t, errors.Is(err, model.ErrValidation), "got %v", err)
				return
			}
			assert.NilError(t, err)
			assert.Check(t, is.Len(snap.Favorites, 1))
			assert.Check(t, is.Equal(snap.Favorites[0].FolderName, "Favorites"))
		})
	}
}
