package catalog

import (
	"math"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

const (
	// DefaultPriceCap is the upper price bound used unless the price limit
	// has been removed in settings.
	DefaultPriceCap int64 = 10000

	// Unbounded disables the upper price bound.
	Unbounded int64 = math.MaxInt64

	// YearAll matches every release date.
	YearAll = "all"

	overwhelminglyPositive = "Overwhelmingly Positive"
)

// FilterConfig selects catalog records. A record passes when every active
// predicate passes.
type FilterConfig struct {
	OnlyJapanese               bool
	OnlySale                   bool
	OnlyOverwhelminglyPositive bool
	OnlyMac                    bool
	GenreInclude               map[string]bool
	GenreExclude               map[string]bool
	Year                       string
	TitleQuery                 string
	MinPrice                   int64
	MaxPrice                   int64
}

// DefaultFilter returns a config that lets every record through, bounded
// by DefaultPriceCap unless removePriceLimit is set.
func DefaultFilter(removePriceLimit bool) FilterConfig {
	maxPrice := DefaultPriceCap
	if removePriceLimit {
		maxPrice = Unbounded
	}
	return FilterConfig{
		GenreInclude: map[string]bool{},
		GenreExclude: map[string]bool{},
		Year:         YearAll,
		MaxPrice:     maxPrice,
	}
}

// Filter returns the records passing cfg, in input order.
func Filter(records []Record, cfg FilterConfig) []Record {
	m := newMatcher(cfg)
	result := make([]Record, 0, len(records))
	for _, r := range records {
		if m.match(r) {
			result = append(result, r)
		}
	}
	return result
}

type matcher struct {
	cfg   FilterConfig
	fold  cases.Caser
	query string
}

func newMatcher(cfg FilterConfig) *matcher {
	fold := cases.Fold()
	return &matcher{
		cfg:   cfg,
		fold:  fold,
		query: fold.String(strings.TrimSpace(cfg.TitleQuery)),
	}
}

func (m *matcher) match(r Record) bool {
	c := m.cfg
	if c.OnlyJapanese && !hasJapanese(r.SupportedLanguages) {
		return false
	}
	if c.OnlySale && !r.OnSale() {
		return false
	}
	if c.OnlyOverwhelminglyPositive && !strings.EqualFold(strings.TrimSpace(r.ReviewScore), overwhelminglyPositive) {
		return false
	}
	if c.OnlyMac && !containsFold(r.Platforms, "mac") {
		return false
	}
	if !matchGenres(r.Genres, c.GenreInclude, c.GenreExclude) {
		return false
	}
	if !MatchYear(r.ReleaseDate, c.Year) {
		return false
	}
	if m.query != "" && !strings.Contains(m.fold.String(r.Title), m.query) {
		return false
	}
	price := r.CurrentPrice()
	return c.MinPrice <= price && price <= c.MaxPrice
}

// matchGenres requires every included genre and no excluded genre.
func matchGenres(genres []string, include, exclude map[string]bool) bool {
	if len(include) == 0 && len(exclude) == 0 {
		return true
	}
	have := make(map[string]bool, len(genres))
	for _, g := range genres {
		have[g] = true
	}
	for g, on := range include {
		if on && !have[g] {
			return false
		}
	}
	for g, on := range exclude {
		if on && have[g] {
			return false
		}
	}
	return true
}

var (
	isoYear      = regexp.MustCompile(`^(\d{4})-`)
	trailingYear = regexp.MustCompile(`(\d{4})\s*$`)
)

// MatchYear matches an ISO date ("2023-05-01") by prefix or a free-text date
// ("1 May, 2023") by its trailing year. "" and "all" match everything.
func MatchYear(releaseDate, year string) bool {
	year = strings.TrimSpace(year)
	if year == "" || strings.EqualFold(year, YearAll) {
		return true
	}
	releaseDate = strings.TrimSpace(releaseDate)
	if m := isoYear.FindStringSubmatch(releaseDate); m != nil {
		return m[1] == year
	}
	if m := trailingYear.FindStringSubmatch(releaseDate); m != nil {
		return m[1] == year
	}
	return false
}

func hasJapanese(languages []string) bool {
	for _, l := range languages {
		if strings.EqualFold(l, "Japanese") || l == "日本語" {
			return true
		}
	}
	return false
}

func containsFold(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}

// Genres returns the distinct genres across records, in first-seen order.
func Genres(records []Record) []string {
	seen := make(map[string]bool)
	var result []string
	for _, r := range records {
		for _, g := range r.Genres {
			if !seen[g] {
				seen[g] = true
				result = append(result, g)
			}
		}
	}
	return result
}
