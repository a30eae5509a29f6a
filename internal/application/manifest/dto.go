package manifest

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/manifest/backend/internal/domain/manifest"
	"github.com/shopspring/decimal"
)

// ImportResult summarizes a bulk import
type ImportResult struct {
	Received int `json:"received"`
	Created  int `json:"created"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
}

// OrderResponse is the structured view of an order
type OrderResponse struct {
	ID                   uuid.UUID        `json:"id"`
	SaleOrderNumber      string           `json:"sale_order_number"`
	PickupLocationName   string           `json:"pickup_location_name"`
	PaymentMode          string           `json:"payment_mode"`
	CustomerName         string           `json:"customer_name"`
	CustomerPhone        string           `json:"customer_phone"`
	ShippingAddressLine1 string           `json:"shipping_address_line1"`
	ShippingCity         string           `json:"shipping_city"`
	ShippingPincode      string           `json:"shipping_pincode"`
	ShippingState        string           `json:"shipping_state"`
	ItemSkuName          string           `json:"item_sku_name"`
	QuantityOrdered      *int             `json:"quantity_ordered"`
	UnitItemPrice        *decimal.Decimal `json:"unit_item_price"`
	WeightGm             *int             `json:"weight_gm"`
	Waybill              *string          `json:"waybill"`
	ManifestStatus       string           `json:"manifest_status"`
	ManifestedAt         *time.Time       `json:"manifested_at"`
	Raw                  map[string]any   `json:"raw"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

// ToOrderResponse converts a domain order
func ToOrderResponse(o *manifest.Order) *OrderResponse {
	return &OrderResponse{
		ID:                   o.ID,
		SaleOrderNumber:      o.SaleOrderNumber,
		PickupLocationName:   o.PickupLocationName,
		PaymentMode:          o.PaymentMode,
		CustomerName:         o.CustomerName,
		CustomerPhone:        o.CustomerPhone,
		ShippingAddressLine1: o.ShippingAddressLine1,
		ShippingCity:         o.ShippingCity,
		ShippingPincode:      o.ShippingPincode,
		ShippingState:        o.ShippingState,
		ItemSkuName:          o.ItemSkuName,
		QuantityOrdered:      o.QuantityOrdered,
		UnitItemPrice:        o.UnitItemPrice,
		WeightGm:             o.WeightGm,
		Waybill:              o.Waybill,
		ManifestStatus:       string(o.ManifestStatus),
		ManifestedAt:         o.ManifestedAt,
		Raw:                  o.Raw,
		CreatedAt:            o.CreatedAt,
		UpdatedAt:            o.UpdatedAt,
	}
}

// OrderListResult is a page of listing rows
type OrderListResult struct {
	Items []map[string]any `json:"items"`
	Count int              `json:"count"`
	Total int64            `json:"total"`
}

// ManifestRequest selects the orders to manifest
type ManifestRequest struct {
	SaleOrderNumbers []string
	IdempotencyKey   string
}

// AssignmentView is the reconciliation outcome for one order
type AssignmentView struct {
	SaleOrderNumber string  `json:"sale_order_number"`
	Waybill         *string `json:"waybill"`
}

// ManifestResult is the outcome of a pipeline run. A dry run carries only
// the payload.
type ManifestResult struct {
	DryRun      bool             `json:"dry_run"`
	Payload     any              `json:"payload,omitempty"`
	BatchID     *uuid.UUID       `json:"batch_id,omitempty"`
	Response    map[string]any   `json:"response,omitempty"`
	Assignments []AssignmentView `json:"assignments,omitempty"`
	Assigned    int              `json:"assigned"`
	Unassigned  int              `json:"unassigned"`
}

// BatchView is a batch as returned by the ledger queries
type BatchView struct {
	ID                 uuid.UUID `json:"id"`
	CreatedAt          time.Time `json:"created_at"`
	PickupLocationName string    `json:"pickup_location_name"`
	TotalCount         int       `json:"total_count"`
	Status             string    `json:"status"`
}

// ToBatchView converts a domain batch
func ToBatchView(b *manifest.Batch) BatchView {
	return BatchView{
		ID:                 b.ID,
		CreatedAt:          b.CreatedAt,
		PickupLocationName: b.PickupLocationName,
		TotalCount:         b.TotalCount,
		Status:             string(b.Status),
	}
}

// LogView is a ledger row as returned by the ledger queries
type LogView struct {
	ID              uuid.UUID       `json:"id"`
	BatchID         *uuid.UUID      `json:"batch_id"`
	SaleOrderNumber string          `json:"sale_order_number,omitempty"`
	Operation       string          `json:"operation"`
	RequestPayload  json.RawMessage `json:"request_payload"`
	ResponsePayload json.RawMessage `json:"response_payload"`
	Waybill         *string         `json:"waybill"`
	CreatedAt       time.Time       `json:"created_at"`
}

// ToLogView converts a domain log row
func ToLogView(l *manifest.Log) LogView {
	return LogView{
		ID:              l.ID,
		BatchID:         l.BatchID,
		SaleOrderNumber: l.SaleOrderNumber,
		Operation:       string(l.Operation),
		RequestPayload:  l.RequestPayload,
		ResponsePayload: l.ResponsePayload,
		Waybill:         l.Waybill,
		CreatedAt:       l.CreatedAt,
	}
}

// BatchLogsResult is one batch with its logs in insertion order
type BatchLogsResult struct {
	Batch BatchView `json:"batch"`
	Logs  []LogView `json:"logs"`
	Count int       `json:"count"`
}
