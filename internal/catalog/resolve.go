package catalog

// Resolve normalizes a raw record into a Record.
//
// LowestYen follows the bridge between the two historical data formats:
// current lowest (unless marked unknown), then legacy lowest, then the sale
// price, then the regular price.
func Resolve(raw RawRecord) Record {
	r := Record{
		ID:                 string(raw.ID),
		Title:              string(raw.Title),
		Genres:             []string(raw.Genres),
		ReleaseDate:        string(raw.ReleaseDate),
		Platforms:          []string(raw.Platforms),
		SupportedLanguages: []string(raw.SupportedLanguages),
		ReviewScore:        string(raw.ReviewScore),
	}
	if r.Genres == nil {
		r.Genres = []string{}
	}

	if raw.Price != nil {
		if raw.Price.Yen.Valid {
			r.PriceYen = raw.Price.Yen.Value
		}
		r.SalePriceYen = raw.Price.SaleYen.Ptr()
		r.DiscountPercent = raw.Price.DiscountPercent.Ptr()
	}

	r.LowestYen = resolveLowest(raw, r)
	return r
}

func resolveLowest(raw RawRecord, r Record) int64 {
	if raw.Lowest != nil && raw.Lowest.Yen.Valid && !raw.Lowest.Yen.Unknown {
		return raw.Lowest.Yen.Value
	}
	if raw.LegacyLowest != nil && raw.LegacyLowest.Yen.Valid {
		return raw.LegacyLowest.Yen.Value
	}
	if raw.LegacyLowestYen.Valid {
		return raw.LegacyLowestYen.Value
	}
	if r.SalePriceYen != nil {
		return *r.SalePriceYen
	}
	return r.PriceYen
}

// ResolveAll resolves every raw record, keeping input order.
func ResolveAll(raws []RawRecord) []Record {
	records := make([]Record, len(raws))
	for i, raw := range raws {
		records[i] = Resolve(raw)
	}
	return records
}
