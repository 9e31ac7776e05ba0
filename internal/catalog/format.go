package catalog

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ParseLocale parses a BCP 47 tag, falling back to Japanese.
func ParseLocale(s string) language.Tag {
	tag, err := language.Parse(s)
	if err != nil {
		return language.Japanese
	}
	return tag
}

// Formatter renders prices for one locale.
type Formatter struct {
	printer *message.Printer
}

// NewFormatter creates a Formatter for the given locale.
func NewFormatter(locale language.Tag) *Formatter {
	return &Formatter{printer: message.NewPrinter(locale)}
}

// Yen formats an amount with the locale's digit grouping, e.g. "¥1,980".
func (f *Formatter) Yen(yen int64) string {
	return f.printer.Sprintf("¥%d", yen)
}

// Price renders the current price, with the regular price and discount
// appended when the record is on sale.
func (f *Formatter) Price(r Record) string {
	if !r.OnSale() {
		return f.Yen(r.PriceYen)
	}
	s := f.Yen(r.CurrentPrice()) + " (" + f.Yen(r.PriceYen)
	if d := r.Discount(); d > 0 {
		s += f.printer.Sprintf(" -%d%%", d)
	}
	return s + ")"
}
