package exporter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/nikbrunner/gamecrate/internal/model"
)

// ScopeAll exports every folder.
const ScopeAll = "all"

// Source is the part of the collection an export reads.
type Source interface {
	ListFolders(ctx context.Context) ([]model.Folder, error)
	GetFolder(ctx context.Context, id string) (model.Folder, error)
	ListActiveFavorites(ctx context.Context, folderID string) ([]model.Favorite, error)
}

// DefaultExportPath returns the default export file path.
// Format: ~/Downloads/gamecrate-export-YYYY-MM-DD.<ext>
func DefaultExportPath(ext string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	filename := fmt.Sprintf("gamecrate-export-%s.%s", time.Now().Format("2006-01-02"), ext)
	return filepath.Join(home, "Downloads", filename), nil
}

// Export builds a snapshot of scope, which is ScopeAll or a folder id.
// Only favorites outside the trash are included. Favorites name their
// folder in FolderName and carry its id in FolderRef.
func Export(ctx context.Context, src Source, scope string, exportDate time.Time) (*model.Snapshot, error) {
	var folders []model.Folder
	if scope == ScopeAll || scope == "" {
		all, err := src.ListFolders(ctx)
		if err != nil {
			return nil, err
		}
		folders = all
	} else {
		f, err := src.GetFolder(ctx, scope)
		if err != nil {
			return nil, err
		}
		folders = []model.Folder{f}
	}

	snap := model.NewSnapshot(exportDate)
	for _, f := range folders {
		snap.Folders = append(snap.Folders, model.SnapshotFolder{
			ID:        f.ID,
			Name:      f.Name,
			CreatedAt: f.CreatedAt,
		})

		favs, err := src.ListActiveFavorites(ctx, f.ID)
		if err != nil {
			return nil, err
		}
		for _, fav := range favs {
			snap.Favorites = append(snap.Favorites, model.SnapshotFavorite{
				FolderName: f.Name,
				FolderRef:  f.ID,
				GameID:     fav.GameID,
				SortOrder:  fav.SortOrder,
				CreatedAt:  fav.CreatedAt,
			})
		}
	}

	return snap, nil
}

// WriteSnapshot writes snap as indented JSON.
func WriteSnapshot(w io.Writer, snap *model.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// WriteFile writes data to path, creating the parent directory.
func WriteFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
