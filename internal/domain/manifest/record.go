// Package manifest holds the order-to-shipment domain: raw record
// normalization, shipment building, the order aggregate, the batch ledger
// and carrier response reconciliation.
package manifest

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// MarkerPrefix marks manifest-template columns in spreadsheet exports
// ("*City" vs "City").
const MarkerPrefix = "*"

// RawRecord is one imported row. Values are strings, numbers or nil.
// A record is not modified after it has been read; use Clone for a copy.
type RawRecord map[string]any

// Candidate key lists, most preferred first. Lookup also tries the marker
// variant of every key, so each list names one spelling only.
var (
	KeysOrderID        = []string{"Sale Order Number", "*Order ID", "order"}
	KeysAddress        = []string{"Shipping Address Line1", "*Street Address", "add"}
	KeysPhone          = []string{"Customer Phone", "*Phone", "phone"}
	KeysPayment        = []string{"Payment Mode", "*Payment Status", "payment_mode"}
	KeysFirstName      = []string{"Customer Name", "*First Name", "name"}
	KeysLastName       = []string{"*Last Name", "Last Name"}
	KeysCity           = []string{"Shipping City", "*City", "city"}
	KeysState          = []string{"Shipping State", "state"}
	KeysPostalCode     = []string{"Shipping Pincode", "*Postal Code", "pin"}
	KeysSkuName        = []string{"Item Sku Name", "Translated Name", "*Translated Name", "Item Name", "prd", "product_desc", "products_desc", "Item Sku Code"}
	KeysSize           = []string{"Size", "*Size"}
	KeysColour         = []string{"Color", "*Color", "Colour"}
	KeysQuantity       = []string{"Quantity Ordered", "Quantity"}
	KeysUnitPrice      = []string{"Unit Item Price", "*Unit Item Price"}
	KeysTotalAmount    = []string{"Total Amount", "*Total Amount", "Total Price", "*Total Price"}
	KeysWeight         = []string{"Weight (gm)", "Weight", "*Weight"}
	KeysLength         = []string{"Length (cm)"}
	KeysBreadth        = []string{"Breadth (cm)"}
	KeysHeight         = []string{"Height (cm)"}
	KeysTransport      = []string{"Transport Mode", "*Transport Mode"}
	KeysPickupLocation = []string{"Pickup Location Name"}
)

// Clone returns a shallow copy of the record
func (r RawRecord) Clone() RawRecord {
	out := make(RawRecord, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Lookup returns the first non-empty trimmed value among keys.
// Each key is tried as written and then in its other marker spelling:
// "*City" also tries "City", and "City" also tries "*City".
func (r RawRecord) Lookup(keys ...string) (string, bool) {
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		for _, candidate := range markerVariants(key) {
			raw, ok := r[candidate]
			if !ok {
				continue
			}
			s, ok := stringify(raw)
			if !ok {
				continue
			}
			if s = strings.TrimSpace(s); s != "" {
				return s, true
			}
		}
	}
	return "", false
}

// String resolves keys or returns def
func (r RawRecord) String(def string, keys ...string) string {
	if v, ok := r.Lookup(keys...); ok {
		return v
	}
	return def
}

// Int resolves keys and coerces leniently, returning def on any failure.
func (r RawRecord) Int(def int, keys ...string) int {
	v, ok := r.Lookup(keys...)
	if !ok {
		return def
	}
	return ParseInt(v, def)
}

// Decimal resolves keys and coerces leniently, returning def on any failure.
func (r RawRecord) Decimal(def decimal.Decimal, keys ...string) decimal.Decimal {
	v, ok := r.Lookup(keys...)
	if !ok {
		return def
	}
	return ParseDecimal(v, def)
}

func markerVariants(key string) []string {
	if strings.HasPrefix(key, MarkerPrefix) {
		return []string{key, strings.TrimLeft(key, MarkerPrefix)}
	}
	return []string{key, MarkerPrefix + key}
}

func stringify(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case decimal.Decimal:
		return t.String(), true
	case fmt.Stringer:
		return t.String(), true
	default:
		return fmt.Sprint(t), true
	}
}

// ParseDecimalOK parses a spreadsheet number. Thousands separators are
// stripped; an empty or malformed value reports false.
func ParseDecimalOK(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

var (
	minInt = decimal.NewFromInt(math.MinInt)
	maxInt = decimal.NewFromInt(math.MaxInt)
)

// ParseIntOK parses a spreadsheet number and truncates it toward zero. A
// value outside the int range reports false.
func ParseIntOK(s string) (int, bool) {
	d, ok := ParseDecimalOK(s)
	if !ok {
		return 0, false
	}
	d = d.Truncate(0)
	if d.LessThan(minInt) || d.GreaterThan(maxInt) {
		return 0, false
	}
	return int(d.IntPart()), true
}

// ParseDecimal is ParseDecimalOK with a fallback
func ParseDecimal(s string, def decimal.Decimal) decimal.Decimal {
	if d, ok := ParseDecimalOK(s); ok {
		return d
	}
	return def
}

// ParseInt is ParseIntOK with a fallback
func ParseInt(s string, def int) int {
	if n, ok := ParseIntOK(s); ok {
		return n
	}
	return def
}

// NormalizedFields is the fixed logical view of a RawRecord
type NormalizedFields struct {
	OrderID        string
	Address        string
	Phone          string
	Payment        string
	FirstName      string
	LastName       string
	City           string
	State          string
	PostalCode     string
	SkuName        string
	Size           string
	Colour         string
	Quantity       int
	UnitPrice      decimal.Decimal
	TotalAmount    *decimal.Decimal
	WeightGm       int
	LengthCm       int
	BreadthCm      int
	HeightCm       int
	Transport      string
	PickupLocation string
}

// Normalize resolves every logical field of r. It never fails; malformed
// numbers fall back to zero and an unparsable explicit total to zero.
func Normalize(r RawRecord) NormalizedFields {
	f := NormalizedFields{
		OrderID:        r.String("", KeysOrderID...),
		Address:        r.String("", KeysAddress...),
		Phone:          r.String("", KeysPhone...),
		Payment:        r.String("", KeysPayment...),
		FirstName:      r.String("", KeysFirstName...),
		LastName:       r.String("", KeysLastName...),
		City:           r.String("", KeysCity...),
		State:          r.String("", KeysState...),
		PostalCode:     r.String("", KeysPostalCode...),
		SkuName:        r.String("", KeysSkuName...),
		Size:           r.String("", KeysSize...),
		Colour:         r.String("", KeysColour...),
		Quantity:       r.Int(0, KeysQuantity...),
		UnitPrice:      r.Decimal(decimal.Zero, KeysUnitPrice...),
		WeightGm:       r.Int(0, KeysWeight...),
		LengthCm:       r.Int(0, KeysLength...),
		BreadthCm:      r.Int(0, KeysBreadth...),
		HeightCm:       r.Int(0, KeysHeight...),
		Transport:      r.String("", KeysTransport...),
		PickupLocation: r.String("", KeysPickupLocation...),
	}
	if s, ok := r.Lookup(KeysTotalAmount...); ok {
		total := ParseDecimal(s, decimal.Zero)
		f.TotalAmount = &total
	}
	return f
}
