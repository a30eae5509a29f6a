package dto

// ImportRowsRequest is the body of the bulk import endpoint. Rows are kept
// loosely typed so that non-object rows can be counted as skipped.
type ImportRowsRequest struct {
	Rows []any `json:"rows"`
}

// ListOrdersRequest filters the order listing
type ListOrdersRequest struct {
	ListRequest
	ManifestStatus string `form:"manifest_status" binding:"omitempty,oneof=manifested unset"`
	SortBy         string `form:"sort_by" binding:"omitempty,oneof=created_at updated_at sale_order_number manifested_at"`
	SortOrder      string `form:"sort_order" binding:"omitempty,oneof=asc desc ASC DESC"`
}

// ManifestSelectionRequest selects orders by their external identifier
type ManifestSelectionRequest struct {
	SaleOrderNumbers []string `json:"sale_order_numbers" binding:"required"`
}

// CancelShipmentRequest names the shipment to cancel
type CancelShipmentRequest struct {
	Waybill string `json:"waybill" binding:"required"`
}

// PendingBatchesRequest tunes the stuck batch query
type PendingBatchesRequest struct {
	OlderThan string `form:"older_than"`
}

// HealthResponse reports service and database health
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	DryRun   bool   `json:"dry_run"`
	Version  string `json:"version"`
	Uptime   string `json:"uptime"`
}
