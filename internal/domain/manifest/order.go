package manifest

import (
	"context"
	"strings"
	"time"

	"github.com/manifest/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ManifestStatus tracks whether an order has been handed to the carrier
type ManifestStatus string

const (
	ManifestStatusUnset      ManifestStatus = ""
	ManifestStatusManifested ManifestStatus = "manifested"
)

// Upsert key lists. They differ from the builder lists: an order only
// stores the columns that both export conventions agree on.
var (
	upsertKeysOrderID   = []string{"Sale Order Number", "*Order ID"}
	upsertKeysPickup    = []string{"Pickup Location Name"}
	upsertKeysPayment   = []string{"Payment Mode", "*Payment Status"}
	upsertKeysCustomer  = []string{"Customer Name", "*First Name"}
	upsertKeysPhone     = []string{"Customer Phone", "*Phone"}
	upsertKeysAddress   = []string{"Shipping Address Line1", "*Street Address"}
	upsertKeysCity      = []string{"Shipping City", "*City"}
	upsertKeysPincode   = []string{"Shipping Pincode", "*Postal Code"}
	upsertKeysState     = []string{"Shipping State"}
	upsertKeysSkuName   = []string{"Item Sku Name", "Translated Name"}
	upsertKeysQuantity  = []string{"Quantity Ordered", "Quantity"}
	upsertKeysUnitPrice = []string{"Unit Item Price", "Total Price"}
	upsertKeysWeight    = []string{"Weight (gm)", "Weight"}
)

// Order is one customer order keyed by its external sale order number
type Order struct {
	shared.BaseEntity
	SaleOrderNumber      string
	PickupLocationName   string
	PaymentMode          string
	CustomerName         string
	CustomerPhone        string
	ShippingAddressLine1 string
	ShippingCity         string
	ShippingPincode      string
	ShippingState        string
	ItemSkuName          string
	QuantityOrdered      *int
	UnitItemPrice        *decimal.Decimal
	WeightGm             *int
	Raw                  RawRecord
	Waybill              *string
	ManifestStatus       ManifestStatus
	ManifestedAt         *time.Time
}

// NewOrder creates an empty order for a sale order number
func NewOrder(saleOrderNumber string) (*Order, error) {
	saleOrderNumber = strings.TrimSpace(saleOrderNumber)
	if saleOrderNumber == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_ID", "Sale order number cannot be empty")
	}
	return &Order{
		BaseEntity:      shared.NewBaseEntity(),
		SaleOrderNumber: saleOrderNumber,
		Raw:             RawRecord{},
	}, nil
}

// OrderIDFromRecord resolves the external identifier an import keys on
func OrderIDFromRecord(record RawRecord) (string, bool) {
	return record.Lookup(upsertKeysOrderID...)
}

// MergeRecord applies an import to the order using two rules at once:
//   - structured fields are filled only from present, non-empty values
//     (numbers only when they parse), so a blank cell never erases data;
//   - the raw copy is replaced wholesale, so it always mirrors the latest import.
//
// Tests pin both rules; keep them distinct.
func (o *Order) MergeRecord(record RawRecord) {
	fill := func(dst *string, keys []string) {
		if v, ok := record.Lookup(keys...); ok {
			*dst = v
		}
	}
	fill(&o.PickupLocationName, upsertKeysPickup)
	fill(&o.PaymentMode, upsertKeysPayment)
	fill(&o.CustomerName, upsertKeysCustomer)
	fill(&o.CustomerPhone, upsertKeysPhone)
	fill(&o.ShippingAddressLine1, upsertKeysAddress)
	fill(&o.ShippingCity, upsertKeysCity)
	fill(&o.ShippingPincode, upsertKeysPincode)
	fill(&o.ShippingState, upsertKeysState)
	fill(&o.ItemSkuName, upsertKeysSkuName)

	if v, ok := record.Lookup(upsertKeysQuantity...); ok {
		if n, ok := ParseIntOK(v); ok {
			o.QuantityOrdered = &n
		}
	}
	if v, ok := record.Lookup(upsertKeysUnitPrice...); ok {
		if d, ok := ParseDecimalOK(v); ok {
			o.UnitItemPrice = &d
		}
	}
	if v, ok := record.Lookup(upsertKeysWeight...); ok {
		if n, ok := ParseIntOK(v); ok {
			o.WeightGm = &n
		}
	}

	o.Raw = record.Clone()
	o.Touch()
}

// AssignWaybill records the carrier tracking id. An empty waybill is ignored
// and reports false.
func (o *Order) AssignWaybill(waybill string, at time.Time) bool {
	waybill = strings.TrimSpace(waybill)
	if waybill == "" {
		return false
	}
	o.Waybill = &waybill
	o.ManifestStatus = ManifestStatusManifested
	o.ManifestedAt = &at
	o.Touch()
	return true
}

// IsManifested reports whether a waybill has been assigned
func (o *Order) IsManifested() bool {
	return o.ManifestStatus == ManifestStatusManifested
}

// ShipmentRecord returns a copy of the raw record with the sale order number
// defaulted to the order key, ready for the shipment builder.
func (o *Order) ShipmentRecord() RawRecord {
	record := o.Raw.Clone()
	if _, ok := record["Sale Order Number"]; !ok {
		record["Sale Order Number"] = o.SaleOrderNumber
	}
	return record
}

// ListingRow renders the raw record overlaid with the stored key columns
func (o *Order) ListingRow() map[string]any {
	row := make(map[string]any, len(o.Raw)+3)
	for k, v := range o.Raw {
		row[k] = v
	}
	row["Sale Order Number"] = o.SaleOrderNumber
	row["Pickup Location Name"] = o.PickupLocationName
	if o.Waybill != nil {
		row["Waybill"] = *o.Waybill
	} else {
		row["Waybill"] = nil
	}
	return row
}

// OrderFilter narrows an order listing
type OrderFilter struct {
	shared.Filter
	ManifestStatus *ManifestStatus
}

// OrderRepository defines the interface for order persistence
type OrderRepository interface {
	// FindBySaleOrderNumber returns shared.ErrNotFound when absent
	FindBySaleOrderNumber(ctx context.Context, saleOrderNumber string) (*Order, error)

	// FindAll lists orders sorted by filter.OrderBy, most recently created first by default
	FindAll(ctx context.Context, filter OrderFilter) ([]*Order, int64, error)

	// Save creates or updates an order
	Save(ctx context.Context, order *Order) error
}
