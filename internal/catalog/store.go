package catalog

import (
	"net/url"
	"strings"
)

// StoreBaseURL prefixes every store page link.
const StoreBaseURL = "https://store.steampowered.com/app/"

// StoreURL returns the store page of a game.
func StoreURL(gameID string) string {
	return StoreBaseURL + gameID + "/"
}

// GameIDFromURL extracts the game id from a store page link of the form
// .../app/<id>[/slug]. It reports false for any other URL.
func GameIDFromURL(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", false
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+1 < len(parts); i++ {
		if parts[i] != "app" {
			continue
		}
		id := parts[i+1]
		if id == "" || strings.Trim(id, "0123456789") != "" {
			return "", false
		}
		return id, true
	}
	return "", false
}
