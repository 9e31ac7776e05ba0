package catalog

// Record is a catalog entry with resolved prices.
// It is derived from a RawRecord on every load and never persisted.
type Record struct {
	ID                 string
	Title              string
	Genres             []string
	PriceYen           int64
	SalePriceYen       *int64
	DiscountPercent    *int64
	LowestYen          int64
	ReleaseDate        string
	Platforms          []string
	SupportedLanguages []string
	ReviewScore        string
}

// CurrentPrice is the sale price when one is set and strictly lower than the
// regular price, otherwise the regular price.
func (r Record) CurrentPrice() int64 {
	if r.SalePriceYen != nil && *r.SalePriceYen < r.PriceYen {
		return *r.SalePriceYen
	}
	return r.PriceYen
}

// Discount returns DiscountPercent, or 0 when absent.
func (r Record) Discount() int64 {
	if r.DiscountPercent == nil {
		return 0
	}
	return *r.DiscountPercent
}

// OnSale reports whether the current price is below the regular price.
func (r Record) OnSale() bool {
	return r.CurrentPrice() < r.PriceYen
}

// Index maps game ids to records.
type Index map[string]Record

// NewIndex builds an Index over records. Later duplicates win.
func NewIndex(records []Record) Index {
	idx := make(Index, len(records))
	for _, r := range records {
		idx[r.ID] = r
	}
	return idx
}

// Title returns the title for a game id, or the id itself when unknown.
func (idx Index) Title(gameID string) string {
	if r, ok := idx[gameID]; ok && r.Title != "" {
		return r.Title
	}
	return gameID
}
