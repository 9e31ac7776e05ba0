package picker

import "testing"

func TestVisibleRange(t *testing.T) {
	tests := []struct {
		name       string
		maxVisible int
		cursor     int
		total      int
		wantStart  int
		wantEnd    int
	}{
		{"at start", 5, 0, 10, 0, 5},
		{"near start", 5, 2, 10, 0, 5},
		{"in middle", 5, 7, 10, 3, 8},
		{"at end", 5, 9, 10, 5, 10},
		{"fewer than max", 5, 2, 3, 0, 3},
		{"exact max items", 5, 2, 5, 0, 5},
		{"cursor beyond max", 8, 10, 15, 3, 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := visibleRange(tt.maxVisible, tt.cursor, tt.total)
			if start != tt.wantStart || end != tt.wantEnd {
				t.Errorf("visibleRange(%d, %d, %d) = (%d, %d), want (%d, %d)",
					tt.maxVisible, tt.cursor, tt.total,
					start, end, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestMaxVisibleResults(t *testing.T) {
	if got := maxVisibleResults(24); got != 9 {
		t.Errorf("maxVisibleResults(24) = %d, want 9", got)
	}
	if got := maxVisibleResults(3); got != 1 {
		t.Errorf("maxVisibleResults(3) = %d, want 1", got)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxWidth int
		want     string
	}{
		{"no truncation needed", "hello", 10, "hello"},
		{"exact length", "hello", 5, "hello"},
		{"needs truncation", "hello world", 8, "hello..."},
		{"very short max", "hello", 3, "..."},
		{"max is 2", "hello", 2, ".."},
		{"max is 0", "hello", 0, ""},
		{"empty string", "", 10, ""},
		{"wide text", "こんにちは", 7, "こん..."},
		{"wide no truncation", "こんにちは", 10, "こんにちは"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncate(tt.text, tt.maxWidth); got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.text, tt.maxWidth, got, tt.want)
			}
		})
	}
}
