package manifest

import (
	"strings"
)

var (
	waybillKeys  = []string{"waybill", "wbn", "awb"}
	orderRefKeys = []string{"order", "order_id", "reference"}
)

// waybillProbe looks for one response shape. ok is false when the shape is
// absent, so the next probe of the same family gets a chance.
type waybillProbe func(response map[string]any) (entries []any, ok bool)

func topLevel(field string) waybillProbe {
	return func(response map[string]any) ([]any, bool) {
		list, ok := response[field].([]any)
		return list, ok
	}
}

func nested(field string) waybillProbe {
	return func(response map[string]any) ([]any, bool) {
		inner, ok := response["response"].(map[string]any)
		if !ok {
			return nil, false
		}
		list, ok := inner[field].([]any)
		return list, ok
	}
}

// Probe families in priority order. Within a family the first shape that is
// present decides; the next family runs only when that yields nothing.
var probeFamilies = [][]waybillProbe{
	{topLevel("packages"), nested("packages")},
	{topLevel("shipments"), nested("shipments")},
}

// ExtractWaybills maps order references to waybills from a carrier response
// whose shape varies. Unknown shapes and malformed entries yield an empty or
// partial mapping, never an error.
func ExtractWaybills(response map[string]any) map[string]string {
	for _, family := range probeFamilies {
		for _, probe := range family {
			entries, ok := probe(response)
			if !ok {
				continue
			}
			if mapping := collectWaybills(entries); len(mapping) > 0 {
				return mapping
			}
			break
		}
	}
	return map[string]string{}
}

func collectWaybills(entries []any) map[string]string {
	mapping := make(map[string]string)
	for _, e := range entries {
		entry, ok := e.(map[string]any)
		if !ok {
			continue
		}
		waybill := firstValue(entry, waybillKeys)
		order := firstValue(entry, orderRefKeys)
		if waybill == "" || order == "" {
			continue
		}
		mapping[order] = waybill
	}
	return mapping
}

// OrderRef resolves the order reference of a loosely typed shipment entry
func OrderRef(entry map[string]any) string {
	return firstValue(entry, orderRefKeys)
}

func firstValue(entry map[string]any, keys []string) string {
	for _, k := range keys {
		s, ok := stringify(entry[k])
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// Assignment is the reconciliation outcome for one submitted shipment
type Assignment struct {
	OrderID string
	Waybill *string
}

// Assigned reports whether the carrier named a waybill for the order
func (a Assignment) Assigned() bool {
	return a.Waybill != nil
}

// Reconcile pairs each order reference with its waybill from mapping.
// Blank references are dropped; order is preserved.
func Reconcile(mapping map[string]string, orderRefs []string) []Assignment {
	assignments := make([]Assignment, 0, len(orderRefs))
	for _, ref := range orderRefs {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		a := Assignment{OrderID: ref}
		if wb, ok := mapping[ref]; ok {
			a.Waybill = &wb
		}
		assignments = append(assignments, a)
	}
	return assignments
}
