package model

import (
	"strings"
	"time"
)

// MaxFolderNameLength bounds folder names, counted in runes.
const MaxFolderNameLength = 100

// Folder groups favorites under a user-chosen name.
type Folder struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewFolderParams holds parameters for creating a new Folder.
type NewFolderParams struct {
	Name      string `validate:"required,max=100"`
	CreatedAt time.Time
}

// NewFolder creates a Folder with generated UUID.
// A zero CreatedAt is replaced with the current time.
func NewFolder(params NewFolderParams) Folder {
	createdAt := params.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	return Folder{
		ID:        GenerateUUID(),
		Name:      strings.TrimSpace(params.Name),
		CreatedAt: createdAt,
	}
}

// OlderThan reports whether f was created before other.
// Folders created at the same instant are ordered by ID.
func (f Folder) OlderThan(other Folder) bool {
	if !f.CreatedAt.Equal(other.CreatedAt) {
		return f.CreatedAt.Before(other.CreatedAt)
	}
	return f.ID < other.ID
}

// OldestFolder returns the oldest folder, or false for an empty slice.
func OldestFolder(folders []Folder) (Folder, bool) {
	if len(folders) == 0 {
		return Folder{}, false
	}
	oldest := folders[0]
	for _, f := range folders[1:] {
		if f.OlderThan(oldest) {
			oldest = f
		}
	}
	return oldest, true
}
