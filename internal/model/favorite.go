package model

import (
	"slices"
	"time"
)

// Favorite files one catalog game under a folder.
// A deleted favorite sits in the trash; FolderID is kept as its restore target.
type Favorite struct {
	ID        string    `json:"id"`
	FolderID  string    `json:"folderId"`
	GameID    string    `json:"gameId"`
	SortOrder int       `json:"sortOrder"`
	CreatedAt time.Time `json:"createdAt"`
	Deleted   bool      `json:"deleted"`
}

// NewFavoriteParams holds parameters for creating a new Favorite.
type NewFavoriteParams struct {
	FolderID  string
	GameID    string
	SortOrder int
	CreatedAt time.Time
}

// NewFavorite creates a Favorite with generated UUID.
func NewFavorite(params NewFavoriteParams) Favorite {
	createdAt := params.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	return Favorite{
		ID:        GenerateUUID(),
		FolderID:  params.FolderID,
		GameID:    params.GameID,
		SortOrder: params.SortOrder,
		CreatedAt: createdAt,
	}
}

// SortBySortOrder orders favorites by SortOrder, then CreatedAt, then ID.
func SortBySortOrder(favs []Favorite) {
	slices.SortStableFunc(favs, func(a, b Favorite) int {
		if a.SortOrder != b.SortOrder {
			return a.SortOrder - b.SortOrder
		}
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
}

// Active returns the favorites that are not in the trash, keeping their order.
func Active(favs []Favorite) []Favorite {
	result := make([]Favorite, 0, len(favs))
	for _, f := range favs {
		if !f.Deleted {
			result = append(result, f)
		}
	}
	return result
}

// IsDense reports whether the SortOrder values of favs are exactly 1..len(favs)
// in slice order.
func IsDense(favs []Favorite) bool {
	for i, f := range favs {
		if f.SortOrder != i+1 {
			return false
		}
	}
	return true
}
