package picker

import "github.com/mattn/go-runewidth"

const (
	ellipsis = "..."

	// Header, blank line, and the status/help footer.
	chromeLines = 5
	// Each result renders a title line and a detail line.
	linesPerResult = 2
)

// maxVisibleResults returns how many results fit in a terminal of the
// given height. At least one is always shown.
func maxVisibleResults(height int) int {
	n := (height - chromeLines) / linesPerResult
	if n < 1 {
		return 1
	}
	return n
}

// visibleRange computes the start and end indices for a scrollable list.
// Returns (start, end) where results[start:end] should be displayed.
func visibleRange(maxVisible, cursor, total int) (start, end int) {
	if total <= maxVisible {
		return 0, total
	}

	if cursor >= maxVisible {
		start = cursor - maxVisible + 1
	}

	end = start + maxVisible
	if end > total {
		end = total
	}

	return start, end
}

// truncate shortens text to maxWidth terminal cells with an ellipsis.
// Wide characters such as kana count as two cells.
func truncate(text string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(text) <= maxWidth {
		return text
	}
	if maxWidth <= len(ellipsis) {
		return ellipsis[:maxWidth]
	}
	return runewidth.Truncate(text, maxWidth, ellipsis)
}
