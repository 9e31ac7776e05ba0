package catalog

import (
	"cmp"
	"slices"
	"strings"
)

// PriceMode selects the primary sort key.
type PriceMode string

const (
	PriceModeCurrent  PriceMode = "current"
	PriceModeNormal   PriceMode = "normal"
	PriceModeLowest   PriceMode = "lowest"
	PriceModeDiscount PriceMode = "discount"
)

// Order is the sort direction.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// ParsePriceMode parses a mode name, defaulting to PriceModeCurrent.
func ParsePriceMode(s string) PriceMode {
	switch PriceMode(strings.ToLower(strings.TrimSpace(s))) {
	case PriceModeNormal:
		return PriceModeNormal
	case PriceModeLowest:
		return PriceModeLowest
	case PriceModeDiscount:
		return PriceModeDiscount
	default:
		return PriceModeCurrent
	}
}

// ParseOrder parses a direction, defaulting to OrderAsc.
func ParseOrder(s string) Order {
	if Order(strings.ToLower(strings.TrimSpace(s))) == OrderDesc {
		return OrderDesc
	}
	return OrderAsc
}

// Key returns the primary sort key of r under mode.
func (mode PriceMode) Key(r Record) int64 {
	switch mode {
	case PriceModeNormal:
		return r.PriceYen
	case PriceModeLowest:
		return r.LowestYen
	case PriceModeDiscount:
		return r.Discount()
	default:
		return r.CurrentPrice()
	}
}

// Sort returns a sorted copy of records. Equal primary keys are broken by
// current price; both comparisons follow the same direction. Records that
// still compare equal keep their input order.
func Sort(records []Record, mode PriceMode, order Order) []Record {
	sign := 1
	if order == OrderDesc {
		sign = -1
	}

	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b Record) int {
		if c := cmp.Compare(mode.Key(a), mode.Key(b)); c != 0 {
			return sign * c
		}
		return sign * cmp.Compare(a.CurrentPrice(), b.CurrentPrice())
	})
	return sorted
}
