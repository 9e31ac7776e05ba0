package catalog

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// UnknownMarker is the sentinel the current catalog format uses for a lowest
// price that has not been observed yet.
const UnknownMarker = "unknown"

// RawRecord is one catalog entry as supplied upstream.
// Both the current and the legacy price shapes are accepted; every field
// tolerates malformed input and degrades to "absent".
type RawRecord struct {
	ID                 FlexString    `json:"id"`
	Title              FlexString    `json:"title"`
	Genres             FlexStrings   `json:"genres"`
	Price              *RawPrice     `json:"price"`
	Lowest             *RawLowest    `json:"lowest"`
	LegacyLowest       *RawLowest    `json:"lowestPrice"`
	LegacyLowestYen    FlexInt       `json:"lowestPriceYen"`
	ReleaseDate        FlexString    `json:"releaseDate"`
	Platforms          FlexPlatforms `json:"platforms"`
	SupportedLanguages FlexLanguages `json:"supportedLanguages"`
	ReviewScore        FlexString    `json:"reviewScore"`
}

// RawPrice is the current-format price object.
type RawPrice struct {
	Yen             FlexInt `json:"yen"`
	SaleYen         FlexInt `json:"saleYen"`
	DiscountPercent FlexInt `json:"discountPercent"`
}

// RawLowest is a lowest-price object in either format.
type RawLowest struct {
	Yen FlexInt `json:"yen"`
}

// UnmarshalJSON never fails; a non-object leaves the price absent.
func (p *RawPrice) UnmarshalJSON(data []byte) error {
	type plain RawPrice
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		*p = RawPrice{}
		return nil
	}
	*p = RawPrice(v)
	return nil
}

// UnmarshalJSON accepts {"yen": ...} and, as a shorthand, a bare value.
func (l *RawLowest) UnmarshalJSON(data []byte) error {
	type plain RawLowest
	var v plain
	if err := json.Unmarshal(data, &v); err == nil {
		*l = RawLowest(v)
		return nil
	}
	*l = RawLowest{}
	return l.Yen.UnmarshalJSON(data)
}

// FlexInt is an optional integer that accepts JSON numbers and numeric
// strings. The "unknown" marker is remembered separately from "absent".
type FlexInt struct {
	Value   int64
	Valid   bool
	Unknown bool
}

// UnmarshalJSON never fails.
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	*f = FlexInt{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	var num json.Number
	if err := json.Unmarshal(data, &num); err == nil {
		f.set(num.String())
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		s = strings.TrimSpace(s)
		if strings.EqualFold(s, UnknownMarker) {
			f.Unknown = true
			return nil
		}
		f.set(strings.ReplaceAll(s, ",", ""))
	}
	return nil
}

func (f *FlexInt) set(s string) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		f.Value, f.Valid = n, true
		return
	}
	if x, err := strconv.ParseFloat(s, 64); err == nil {
		f.Value, f.Valid = int64(x), true
	}
}

// Ptr returns the value as a pointer, nil when absent.
func (f FlexInt) Ptr() *int64 {
	if !f.Valid {
		return nil
	}
	v := f.Value
	return &v
}

// FlexString accepts strings and numbers; anything else is empty.
type FlexString string

// UnmarshalJSON never fails.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	*f = ""
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(strings.TrimSpace(s))
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err == nil {
		*f = FlexString(num.String())
	}
	return nil
}

// FlexStrings is a list of names given either as strings or as objects with
// a "description" (or "name") field.
type FlexStrings []string

// UnmarshalJSON never fails; malformed input yields an empty list.
func (f *FlexStrings) UnmarshalJSON(data []byte) error {
	*f = FlexStrings{}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil
	}
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			if s = strings.TrimSpace(s); s != "" {
				*f = append(*f, s)
			}
			continue
		}
		var obj struct {
			Description string `json:"description"`
			Name        string `json:"name"`
		}
		if err := json.Unmarshal(item, &obj); err == nil {
			name := obj.Description
			if name == "" {
				name = obj.Name
			}
			if name = strings.TrimSpace(name); name != "" {
				*f = append(*f, name)
			}
		}
	}
	return nil
}

// FlexPlatforms accepts {"windows":true,"mac":false} or ["windows","mac"].
type FlexPlatforms []string

// UnmarshalJSON never fails.
func (f *FlexPlatforms) UnmarshalJSON(data []byte) error {
	*f = FlexPlatforms{}
	var flags map[string]bool
	if err := json.Unmarshal(data, &flags); err == nil {
		for _, name := range []string{"windows", "mac", "linux"} {
			if flags[name] {
				*f = append(*f, name)
			}
		}
		return nil
	}
	var names FlexStrings
	_ = names.UnmarshalJSON(data)
	for _, n := range names {
		*f = append(*f, strings.ToLower(n))
	}
	return nil
}

var (
	htmlBreak = regexp.MustCompile(`(?i)<br\s*/?>`)
	htmlTag   = regexp.MustCompile(`<[^>]*>`)
)

// FlexLanguages accepts a comma separated string, possibly with HTML markup
// such as "English<strong>*</strong>, Japanese", or a list of strings.
type FlexLanguages []string

// UnmarshalJSON never fails.
func (f *FlexLanguages) UnmarshalJSON(data []byte) error {
	*f = FlexLanguages{}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		s = htmlTag.ReplaceAllString(htmlBreak.ReplaceAllString(s, "\n"), "")
		for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '\n' }) {
			part = strings.TrimSpace(part)
			// "*languages with full audio support" footnote
			if strings.HasPrefix(part, "*") {
				continue
			}
			if part = strings.TrimRight(part, "*"); part != "" {
				*f = append(*f, part)
			}
		}
		return nil
	}
	var names FlexStrings
	_ = names.UnmarshalJSON(data)
	*f = FlexLanguages(names)
	return nil
}
