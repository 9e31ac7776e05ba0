package main

import (
	"errors"
	"testing"

	"github.com/nikbrunner/gamecrate/internal/model"
)

func TestResolveFolder(t *testing.T) {
	folders := []model.Folder{
		{ID: "f1", Name: "Favorites"},
		{ID: "f2", Name: "Wishlist"},
		{ID: "f3", Name: "Play Later"},
		{ID: "f4", Name: "RPG"},
		{ID: "f5", Name: "RTS"},
	}

	tests := []struct {
		name string
		arg  string
		want string
	}{
		{"by id", "f3", "f3"},
		{"exact name", "Wishlist", "f2"},
		{"name ignores case", "play later", "f3"},
		{"fuzzy", "wish", "f2"},
		{"fuzzy subsequence", "plt", "f3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveFolder(folders, tt.arg)
			if err != nil {
				t.Fatalf("resolveFolder(%q) failed: %v", tt.arg, err)
			}
			if got.ID != tt.want {
				t.Errorf("resolveFolder(%q) = %s, want %s", tt.arg, got.ID, tt.want)
			}
		})
	}
}

func TestResolveFolder_Errors(t *testing.T) {
	folders := []model.Folder{
		{ID: "f1", Name: "RPG"},
		{ID: "f2", Name: "RTS"},
	}

	if _, err := resolveFolder(folders, "zzz"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if _, err := resolveFolder(folders, "R"); !errors.Is(err, model.ErrValidation) {
		t.Errorf("expected ambiguous match to fail validation, got %v", err)
	}
	if _, err := resolveFolder(folders, "  "); !errors.Is(err, model.ErrValidation) {
		t.Errorf("expected empty argument to fail validation, got %v", err)
	}
}
