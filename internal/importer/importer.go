// Package importer merges snapshots and browser bookmark files into the
// collection.
package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/nikbrunner/gamecrate/internal/collection"
	"github.com/nikbrunner/gamecrate/internal/model"
	"github.com/nikbrunner/gamecrate/internal/validation"
)

// Collection is the part of the collection an import writes to.
type Collection interface {
	ListFolders(ctx context.Context) ([]model.Folder, error)
	AddFolder(ctx context.Context, name string) (model.Folder, error)
	FindActiveByGame(ctx context.Context, gameID string) (model.Favorite, bool, error)
	AddFavorite(ctx context.Context, params collection.AddFavoriteParams) (model.Favorite, error)
}

// RecordError describes one snapshot record that could not be applied.
type RecordError struct {
	Folder string `json:"folder"`
	GameID string `json:"gameId,omitempty"`
	Error  string `json:"error"`
}

// Result summarizes an import. Imported+Skipped+Failed equals the number
// of favorites in the snapshot when the import ran to completion.
type Result struct {
	Imported       int           `json:"imported"`
	Skipped        int           `json:"skipped"`
	Failed         int           `json:"failed"`
	FoldersCreated int           `json:"foldersCreated"`
	Errors         []RecordError `json:"errors,omitempty"`
}

// DecodeSnapshot reads a JSON snapshot and checks its required fields.
func DecodeSnapshot(r io.Reader) (*model.Snapshot, error) {
	var snap model.Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, model.Validation("invalid snapshot JSON").WithCause(err)
	}
	if err := validation.New().Validate(snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Importer applies snapshots to a collection.
type Importer struct {
	coll      Collection
	log       *slog.Logger
	validator *validation.Validator
}

// New creates an Importer.
func New(coll Collection, log *slog.Logger) *Importer {
	return &Importer{coll: coll, log: log, validator: validation.New()}
}

// Import merges snap into the collection in two phases.
//
// The whole snapshot is validated first; a validation error means nothing
// was written. Then folders are matched by id, then by name, and created
// when neither matches. Favorites are added per folder in ascending sort
// order, skipping games that already have an active favorite anywhere.
// Records that fail to apply are counted in Result.Failed and the import
// carries on, so a failed import can leave a partial merge. A canceled ctx
// stops the import between records and returns the partial Result with the
// context error.
func (im *Importer) Import(ctx context.Context, snap *model.Snapshot) (*Result, error) {
	if snap == nil {
		return nil, model.Validation("snapshot is required")
	}
	if err := im.validator.Validate(snap); err != nil {
		return nil, err
	}

	result := &Result{}

	existing, err := im.coll.ListFolders(ctx)
	if err != nil {
		return nil, err
	}
	r := newResolver(existing)

	// Snapshot folders first, in order, then folders only favorites mention.
	type target struct {
		key      string
		folderID string
		err      error
	}
	var targets []*target
	byRef := map[string]*target{}
	byName := map[string]*target{}

	resolve := func(id, name string) *target {
		t := &target{key: name}
		folderID, created, err := r.resolve(ctx, im.coll, id, name)
		t.folderID, t.err = folderID, err
		if created {
			result.FoldersCreated++
			im.log.Debug("import created folder", "name", name)
		}
		if err != nil {
			result.Errors = append(result.Errors, RecordError{Folder: name, Error: err.Error()})
			im.log.Warn("import could not resolve folder", "name", name, "error", err)
		}
		targets = append(targets, t)
		return t
	}

	for _, f := range snap.Folders {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		t := resolve(f.ID, f.Name)
		if f.ID != "" {
			byRef[f.ID] = t
		}
		if _, ok := byName[f.Name]; !ok {
			byName[f.Name] = t
		}
	}

	groups := map[*target][]model.SnapshotFavorite{}
	for _, fav := range snap.Favorites {
		t, ok := byRef[fav.FolderRef]
		if !ok {
			t, ok = byName[fav.FolderName]
		}
		if !ok {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			t = resolve("", fav.FolderName)
			byName[fav.FolderName] = t
		}
		groups[t] = append(groups[t], fav)
	}

	for _, t := range targets {
		favs := groups[t]
		slices.SortStableFunc(favs, func(a, b model.SnapshotFavorite) int {
			return a.SortOrder - b.SortOrder
		})

		for _, fav := range favs {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			if t.err != nil {
				result.Failed++
				continue
			}
			im.apply(ctx, t.folderID, fav, result)
		}
	}

	im.log.Info("import finished",
		"imported", result.Imported,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"folders_created", result.FoldersCreated,
	)
	return result, nil
}

func (im *Importer) apply(ctx context.Context, folderID string, fav model.SnapshotFavorite, result *Result) {
	if _, found, err := im.coll.FindActiveByGame(ctx, fav.GameID); err != nil {
		im.fail(result, fav, err)
		return
	} else if found {
		result.Skipped++
		return
	}

	_, err := im.coll.AddFavorite(ctx, collection.AddFavoriteParams{
		FolderID:  folderID,
		GameID:    fav.GameID,
		SortOrder: fav.SortOrder,
		CreatedAt: fav.CreatedAt,
	})
	switch {
	case err == nil:
		result.Imported++
	case errors.Is(err, model.ErrConflict):
		result.Skipped++
	default:
		im.fail(result, fav, err)
	}
}

func (im *Importer) fail(result *Result, fav model.SnapshotFavorite, err error) {
	result.Failed++
	result.Errors = append(result.Errors, RecordError{
		Folder: fav.FolderName,
		GameID: fav.GameID,
		Error:  err.Error(),
	})
	im.log.Warn("import failed for favorite", "game", fav.GameID, "folder", fav.FolderName, "error", err)
}

// resolver maps snapshot folders onto collection folders.
type resolver struct {
	byID   map[string]string
	byName map[string]string
}

func newResolver(folders []model.Folder) *resolver {
	r := &resolver{byID: map[string]string{}, byName: map[string]string{}}
	for _, f := range folders {
		r.byID[f.ID] = f.ID
		// Oldest folder wins a name clash.
		name := strings.TrimSpace(f.Name)
		if _, ok := r.byName[name]; !ok {
			r.byName[name] = f.ID
		}
	}
	return r
}

// resolve matches names after trimming, the way AddFolder stores them.
func (r *resolver) resolve(ctx context.Context, coll Collection, id, name string) (folderID string, created bool, err error) {
	name = strings.TrimSpace(name)
	if id != "" {
		if existing, ok := r.byID[id]; ok {
			return existing, false, nil
		}
	}
	if existing, ok := r.byName[name]; ok {
		return existing, false, nil
	}

	f, err := coll.AddFolder(ctx, name)
	if err != nil {
		return "", false, fmt.Errorf("create folder %q: %w", name, err)
	}
	r.byID[f.ID] = f.ID
	r.byName[name] = f.ID
	r.byName[f.Name] = f.ID
	return f.ID, true, nil
}
