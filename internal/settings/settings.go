// Package settings reads and writes the user settings blob kept in the
// repository's settings collection.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/nikbrunner/gamecrate/internal/catalog"
	"github.com/nikbrunner/gamecrate/internal/model"
	"github.com/nikbrunner/gamecrate/internal/storage"
	"github.com/nikbrunner/gamecrate/internal/validation"
)

// Key is the settings-collection key holding the blob.
const Key = "settings"

// Settings is the typed view of the blob.
type Settings struct {
	// RemovePriceLimit lifts the default upper price bound of the catalog filter.
	RemovePriceLimit bool `json:"removePriceLimit"`
	// PermanentDelete makes removal skip the trash.
	PermanentDelete bool `json:"permanentDelete"`
	// UseSelectedFolderAsTarget files new favorites under SelectedFolderID
	// instead of the protected folder.
	UseSelectedFolderAsTarget bool   `json:"useSelectedFolderAsTarget"`
	SelectedFolderID          string `json:"selectedFolderId"`
	PriceMode                 string `json:"priceMode" validate:"oneof=current normal lowest discount"`
	Order                     string `json:"order" validate:"oneof=asc desc"`
	Locale                    string `json:"locale"`
}

// Default returns the settings used before anything is saved.
func Default() Settings {
	return Settings{
		PriceMode: string(catalog.PriceModeCurrent),
		Order:     string(catalog.OrderAsc),
	}
}

// Keys lists the names accepted by Set, in display order.
var Keys = []string{
	"removePriceLimit",
	"permanentDelete",
	"useSelectedFolderAsTarget",
	"selectedFolderId",
	"priceMode",
	"order",
	"locale",
}

// Filter returns the starting catalog filter for these settings.
func (s Settings) Filter() catalog.FilterConfig {
	return catalog.DefaultFilter(s.RemovePriceLimit)
}

// Target returns the folder new favorites go to: the selected folder when
// that option is on and a folder is selected, otherwise fallback.
func (s Settings) Target(fallback string) string {
	if s.UseSelectedFolderAsTarget && s.SelectedFolderID != "" {
		return s.SelectedFolderID
	}
	return fallback
}

// Set assigns one setting by its JSON name, parsing value as needed.
func (s *Settings) Set(key, value string) error {
	parseBool := func(dst *bool) error {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return model.Validation(fmt.Sprintf("%s: %q is not a boolean", key, value))
		}
		*dst = b
		return nil
	}

	switch key {
	case "removePriceLimit":
		return parseBool(&s.RemovePriceLimit)
	case "permanentDelete":
		return parseBool(&s.PermanentDelete)
	case "useSelectedFolderAsTarget":
		return parseBool(&s.UseSelectedFolderAsTarget)
	case "selectedFolderId":
		s.SelectedFolderID = value
	case "priceMode":
		s.PriceMode = value
	case "order":
		s.Order = value
	case "locale":
		s.Locale = value
	default:
		return model.Validation(fmt.Sprintf("unknown setting %q (known: %v)", key, Keys))
	}
	return nil
}

// Fields returns every setting as key/value strings in Keys order.
func (s Settings) Fields() [][2]string {
	return [][2]string{
		{"removePriceLimit", strconv.FormatBool(s.RemovePriceLimit)},
		{"permanentDelete", strconv.FormatBool(s.PermanentDelete)},
		{"useSelectedFolderAsTarget", strconv.FormatBool(s.UseSelectedFolderAsTarget)},
		{"selectedFolderId", s.SelectedFolderID},
		{"priceMode", s.PriceMode},
		{"order", s.Order},
		{"locale", s.Locale},
	}
}

// Store loads and saves Settings through a repository.
type Store struct {
	repo      storage.Repository
	validator *validation.Validator
}

// NewStore creates a Store.
func NewStore(repo storage.Repository) *Store {
	return &Store{repo: repo, validator: validation.New()}
}

// Load returns the saved settings, or Default when none are saved.
// Fields missing from the blob keep their default values.
func (st *Store) Load(ctx context.Context) (Settings, error) {
	s := Default()
	err := st.repo.View(ctx, func(tx storage.Tx) error {
		raw, err := tx.GetSetting(Key)
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, &s)
	})
	if err != nil {
		return Settings{}, model.Storage("load settings", err)
	}
	return s, nil
}

// Save validates s and writes it. Keys in the stored blob that Settings
// does not know about are kept.
func (st *Store) Save(ctx context.Context, s Settings) error {
	if err := st.validator.Validate(s); err != nil {
		return err
	}

	err := st.repo.Update(ctx, func(tx storage.Tx) error {
		blob := map[string]json.RawMessage{}
		raw, err := tx.GetSetting(Key)
		switch {
		case errors.Is(err, storage.ErrNotFound):
		case err != nil:
			return err
		default:
			if err := json.Unmarshal(raw, &blob); err != nil {
				return fmt.Errorf("decode stored settings: %w", err)
			}
		}

		known, err := json.Marshal(s)
		if err != nil {
			return err
		}
		fields := map[string]json.RawMessage{}
		if err := json.Unmarshal(known, &fields); err != nil {
			return err
		}
		for k, v := range fields {
			blob[k] = v
		}

		data, err := json.Marshal(blob)
		if err != nil {
			return err
		}
		return tx.PutSetting(Key, data)
	})
	if err != nil {
		return model.Storage("save settings", err)
	}
	return nil
}

// IsKnown reports whether key names a setting.
func IsKnown(key string) bool {
	return slices.Contains(Keys, key)
}
