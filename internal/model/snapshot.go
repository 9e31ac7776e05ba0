package model

import (
	"slices"
	"time"
)

// SnapshotVersion is the only snapshot format version this build reads and writes.
const SnapshotVersion = "1.0"

// Snapshot is the portable export of a collection.
// Favorites reference folders by name so a snapshot can be merged into a
// collection with different ids; FolderRef carries the source id as well.
type Snapshot struct {
	Version    string             `json:"version" validate:"required,eq=1.0"`
	ExportDate time.Time          `json:"exportDate"`
	Folders    []SnapshotFolder   `json:"folders" validate:"required,dive"`
	Favorites  []SnapshotFavorite `json:"favorites" validate:"required,dive"`
}

// SnapshotFolder is a folder entry of a Snapshot.
type SnapshotFolder struct {
	ID        string    `json:"id,omitempty"`
	Name      string    `json:"name" validate:"required,max=100"`
	CreatedAt time.Time `json:"createdAt"`
}

// SnapshotFavorite is a favorite entry of a Snapshot.
type SnapshotFavorite struct {
	FolderName string    `json:"folderId" validate:"required"`
	FolderRef  string    `json:"folderRef,omitempty"`
	GameID     string    `json:"gameId" validate:"required"`
	SortOrder  int       `json:"sortOrder" validate:"gte=0"`
	CreatedAt  time.Time `json:"createdAt"`
}

// NewSnapshot creates an empty Snapshot with initialized slices.
func NewSnapshot(exportDate time.Time) *Snapshot {
	return &Snapshot{
		Version:    SnapshotVersion,
		ExportDate: exportDate,
		Folders:    []SnapshotFolder{},
		Favorites:  []SnapshotFavorite{},
	}
}

// FavoritesInFolder returns the favorites filed under the named folder,
// ordered by SortOrder.
func (s *Snapshot) FavoritesInFolder(name string) []SnapshotFavorite {
	var result []SnapshotFavorite
	for _, f := range s.Favorites {
		if f.FolderName == name {
			result = append(result, f)
		}
	}
	slices.SortStableFunc(result, func(a, b SnapshotFavorite) int {
		return a.SortOrder - b.SortOrder
	})
	return result
}
