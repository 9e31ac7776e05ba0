package exporter

import (
	"fmt"
	"html"
	"strings"

	"github.com/nikbrunner/gamecrate/internal/catalog"
	"github.com/nikbrunner/gamecrate/internal/model"
)

// Titles resolves a game id to a display title. catalog.Index implements it.
type Titles interface {
	Title(gameID string) string
}

// ExportHTML renders a snapshot as Netscape bookmark HTML, one <H3> per
// folder and one store page link per favorite. Games titles cannot
// resolve are written with their id as the link text.
func ExportHTML(snap *model.Snapshot, titles Titles) string {
	var b strings.Builder

	// Header
	b.WriteString("<!DOCTYPE NETSCAPE-Bookmark-file-1>\n")
	b.WriteString("<META HTTP-EQUIV=\"Content-Type\" CONTENT=\"text/html; charset=UTF-8\">\n")
	b.WriteString("<TITLE>Bookmarks</TITLE>\n")
	b.WriteString("<H1>Bookmarks</H1>\n")
	b.WriteString("<DL><p>\n")

	prefix := "    "
	for _, folder := range snap.Folders {
		fmt.Fprintf(&b, "%s<DT><H3 ADD_DATE=\"%d\">%s</H3>\n", prefix, folder.CreatedAt.Unix(), html.EscapeString(folder.Name))
		fmt.Fprintf(&b, "%s<DL><p>\n", prefix)

		for _, fav := range favoritesOf(snap, folder) {
			title := fav.GameID
			if titles != nil {
				title = titles.Title(fav.GameID)
			}
			fmt.Fprintf(&b,
				"%s    <DT><A HREF=\"%s\" ADD_DATE=\"%d\">%s</A>\n",
				prefix,
				html.EscapeString(catalog.StoreURL(fav.GameID)),
				fav.CreatedAt.Unix(),
				html.EscapeString(title),
			)
		}

		fmt.Fprintf(&b, "%s</DL><p>\n", prefix)
	}

	// Footer
	b.WriteString("</DL><p>\n")

	return b.String()
}

// favoritesOf matches favorites to a folder by id when both sides carry
// one, otherwise by name.
func favoritesOf(snap *model.Snapshot, folder model.SnapshotFolder) []model.SnapshotFavorite {
	if folder.ID == "" {
		return snap.FavoritesInFolder(folder.Name)
	}
	var result []model.SnapshotFavorite
	for _, fav := range snap.FavoritesInFolder(folder.Name) {
		if fav.FolderRef == "" || fav.FolderRef == folder.ID {
			result = append(result, fav)
		}
	}
	return result
}
