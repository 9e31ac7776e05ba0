package importer

import (
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/nikbrunner/gamecrate/internal/catalog"
	"github.com/nikbrunner/gamecrate/internal/model"
)

// HTMLResult is the outcome of parsing a bookmark file.
type HTMLResult struct {
	Snapshot *model.Snapshot
	// Ignored counts links that do not point at a store page.
	Ignored int
}

// ParseHTMLBookmarks parses Netscape bookmark HTML into a snapshot.
// Every link to a store page becomes a favorite of the innermost <H3>
// folder around it; links outside any folder go to rootFolder. Folder
// nesting is flattened and folders without store links are dropped.
// Sort orders follow document order within each folder.
func ParseHTMLBookmarks(r io.Reader, rootFolder string) (*HTMLResult, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	snap := model.NewSnapshot(time.Now())
	result := &HTMLResult{Snapshot: snap}

	folderDates := map[string]time.Time{}
	var folderOrder []string
	counts := map[string]int{}

	addFavorite := func(folder, gameID string, createdAt time.Time) {
		if _, seen := counts[folder]; !seen {
			folderOrder = append(folderOrder, folder)
		}
		counts[folder]++
		snap.Favorites = append(snap.Favorites, model.SnapshotFavorite{
			FolderName: folder,
			GameID:     gameID,
			SortOrder:  counts[folder],
			CreatedAt:  createdAt,
		})
	}

	// Track current folder stack for hierarchy
	var folderStack []string
	var pendingFolder string // folder waiting to be pushed on next DL

	var parse func(*html.Node)
	parse = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch strings.ToLower(n.Data) {
			case "h3":
				// Folder definition - get name from text content
				name := getTextContent(n)
				if name != "" {
					pendingFolder = name
					if _, ok := folderDates[name]; !ok {
						folderDates[name] = parseAddDate(n)
					}
				}
				return // Don't recurse into H3

			case "a":
				gameID, ok := catalog.GameIDFromURL(getAttr(n, "href"))
				if !ok {
					result.Ignored++
					return
				}

				folder := rootFolder
				if len(folderStack) > 0 {
					folder = folderStack[len(folderStack)-1]
				}
				addFavorite(folder, gameID, parseAddDate(n))
				return // Don't recurse into A

			case "dl":
				// Definition list - marks folder contents
				pushedFolder := false
				if pendingFolder != "" {
					folderStack = append(folderStack, pendingFolder)
					pendingFolder = ""
					pushedFolder = true
				}

				for c := n.FirstChild; c != nil; c = c.NextSibling {
					parse(c)
				}

				if pushedFolder {
					folderStack = folderStack[:len(folderStack)-1]
				}
				return // Don't recurse further, we handled children
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			parse(c)
		}
	}

	parse(doc)

	for _, name := range folderOrder {
		snap.Folders = append(snap.Folders, model.SnapshotFolder{
			Name:      name,
			CreatedAt: folderDates[name],
		})
	}
	return result, nil
}

// parseAddDate reads the ADD_DATE attribute (Unix seconds), defaulting to now.
func parseAddDate(n *html.Node) time.Time {
	if addDate := getAttr(n, "add_date"); addDate != "" {
		if ts, err := strconv.ParseInt(addDate, 10, 64); err == nil {
			return time.Unix(ts, 0)
		}
	}
	return time.Now()
}

// getTextContent returns the text content of a node.
func getTextContent(n *html.Node) string {
	var text strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(text.String())
}

// getAttr returns the value of an attribute, case-insensitive.
func getAttr(n *html.Node, key string) string {
	key = strings.ToLower(key)
	for _, attr := range n.Attr {
		if strings.ToLower(attr.Key) == key {
			return attr.Val
		}
	}
	return ""
}
