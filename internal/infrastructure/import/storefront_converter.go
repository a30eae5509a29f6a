package csvimport

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/manifest/backend/internal/domain/manifest"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultExcludedOrders are storefront test orders that never ship
var DefaultExcludedOrders = []int64{10001, 10002, 10003, 10004, 10049, 10061, 10114, 10115, 10450, 10451, 10452}

// Columns emitted without the manifest marker
var unmarkedColumns = map[string]struct{}{
	"Length (cm)":  {},
	"Breadth (cm)": {},
	"Height (cm)":  {},
	"Weight (gm)":  {},
}

// storefrontColumns is the output column order before marking
var storefrontColumns = []string{
	"Order ID", "Order Date", "Payment Status", "Fulfillment Status", "Tracking Number",
	"Shipping Provider", "First Name", "Last Name", "Email", "Phone", "Delivery Option",
	"Estimated Delivery", "City", "Street Address", "Country", "Postal Code", "Weight",
	"Subtotal", "Tax", "Shipping Charge", "Discount",
	"Translated Name", "SKU", "Quantity", "Total Price", "Size", "Color", "Custom Size Note",
	"Original Order ID", "Item Index",
	"Sale Order Number", "Pickup Location Name", "Transport Mode", "Payment Mode",
	"Customer Name", "Customer Phone", "Shipping Address Line1", "Shipping City",
	"Shipping Pincode", "Shipping State", "Item Sku Code", "Item Sku Name", "Quantity Ordered",
	"Unit Item Price", "Length (cm)", "Breadth (cm)", "Height (cm)", "Weight (gm)",
}

// StorefrontConfig controls the fixed columns of converted rows
type StorefrontConfig struct {
	ExcludedOrders     []int64
	PickupLocationName string
	TransportMode      string
	ShippingState      string
	SaleOrderPrefix    string
	// CODSurcharge is added to unpaid items priced under CODThreshold
	CODSurcharge decimal.Decimal
	CODThreshold decimal.Decimal
	LengthCm     int
	BreadthCm    int
	HeightCm     int
	WeightGm     int
	Now          func() time.Time
}

// DefaultStorefrontConfig returns the settings used for the Preetizen storefront
func DefaultStorefrontConfig() StorefrontConfig {
	return StorefrontConfig{
		ExcludedOrders:     DefaultExcludedOrders,
		PickupLocationName: "Preetizen Lifestyle",
		TransportMode:      string(manifest.TransportSurface),
		ShippingState:      "West Bengal",
		SaleOrderPrefix:    "PZ",
		CODSurcharge:       decimal.NewFromInt(80),
		CODThreshold:       decimal.NewFromInt(2000),
		LengthCm:           35,
		BreadthCm:          25,
		HeightCm:           5,
		WeightGm:           250,
		Now:                time.Now,
	}
}

// StorefrontConverter expands storefront order exports into one manifest
// row per line item
type StorefrontConverter struct {
	cfg      StorefrontConfig
	excluded map[int64]struct{}
}

// NewStorefrontConverter creates a converter
func NewStorefrontConverter(cfg StorefrontConfig) *StorefrontConverter {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	excluded := make(map[int64]struct{}, len(cfg.ExcludedOrders))
	for _, id := range cfg.ExcludedOrders {
		excluded[id] = struct{}{}
	}
	return &StorefrontConverter{cfg: cfg, excluded: excluded}
}

// ConvertResult holds the converted rows and the rows that were dropped
type ConvertResult struct {
	Columns []string
	Records []manifest.RawRecord
	Skipped []RowError
}

type storefrontOption struct {
	Option    string `json:"option"`
	Selection string `json:"selection"`
}

type storefrontTextField struct {
	Title string `json:"title"`
	Value string `json:"value"`
}

type storefrontLineItem struct {
	TranslatedName   string                `json:"translatedName"`
	SKU              string                `json:"sku"`
	Quantity         json.Number           `json:"quantity"`
	TotalPrice       json.Number           `json:"totalPrice"`
	Options          []storefrontOption    `json:"options"`
	CustomTextFields []storefrontTextField `json:"customTextFields"`
}

type storefrontAddress struct {
	City        string `json:"city"`
	AddressLine string `json:"addressLine"`
	Country     string `json:"country"`
	PostalCode  string `json:"postalCode"`
}

type storefrontShippingInfo struct {
	DeliveryOption        string `json:"deliveryOption"`
	EstimatedDeliveryTime string `json:"estimatedDeliveryTime"`
	ShipmentDetails       struct {
		FirstName string            `json:"firstName"`
		LastName  string            `json:"lastName"`
		Email     string            `json:"email"`
		Phone     string            `json:"phone"`
		Address   storefrontAddress `json:"address"`
	} `json:"shipmentDetails"`
}

type storefrontActivity struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
}

type storefrontFulfillment struct {
	TrackingInfo struct {
		TrackingNumber   string `json:"trackingNumber"`
		ShippingProvider string `json:"shippingProvider"`
	} `json:"trackingInfo"`
}

type storefrontOrder struct {
	number       int64
	lineItems    []storefrontLineItem
	shipping     storefrontShippingInfo
	activities   []storefrontActivity
	totals       manifest.RawRecord
	fulfillments []storefrontFulfillment
}

// Convert expands rows in input order. Rows with unparsable JSON columns or
// a non-numeric order number are skipped and reported; excluded test orders
// are dropped silently.
func (c *StorefrontConverter) Convert(rows []manifest.RawRecord) *ConvertResult {
	now := c.cfg.Now()
	suffix := now.Format("20060102") + strings.ToUpper(now.Format("Mon"))

	result := &ConvertResult{Columns: MarkColumns(storefrontColumns)}
	for i, row := range rows {
		line := i + 2
		order, problem := parseStorefrontOrder(row)
		if problem != nil {
			problem.Row = line
			result.Skipped = append(result.Skipped, *problem)
			continue
		}
		if _, skip := c.excluded[order.number]; skip {
			continue
		}
		shared := c.sharedColumns(row, order)
		for idx, item := range order.lineItems {
			record := c.itemColumns(shared, item, order.number, idx+1, suffix)
			result.Records = append(result.Records, markRecord(record))
		}
	}
	return result
}

func parseStorefrontOrder(row manifest.RawRecord) (*storefrontOrder, *RowError) {
	order := &storefrontOrder{}
	columns := []struct {
		name string
		def  string
		dst  any
	}{
		{"Line Items", "[]", &order.lineItems},
		{"Shipping Info", "{}", &order.shipping},
		{"Activities", "[]", &order.activities},
		{"Totals", "{}", &order.totals},
		{"Fulfillments", "[]", &order.fulfillments},
	}
	for _, col := range columns {
		body := row.String(col.def, col.name)
		dec := json.NewDecoder(strings.NewReader(body))
		dec.UseNumber()
		if err := dec.Decode(col.dst); err != nil {
			problem := NewRowError(0, col.name, ErrCodeImportInvalidJSON, err.Error())
			return nil, &problem
		}
	}

	number, ok := row.Lookup("Number")
	if !ok {
		problem := NewRowError(0, "Number", ErrCodeImportInvalidValue, "order number is missing")
		return nil, &problem
	}
	n, err := strconv.ParseInt(strings.TrimSuffix(number, ".0"), 10, 64)
	if err != nil {
		problem := NewRowError(0, "Number", ErrCodeImportInvalidValue, fmt.Sprintf("order number %q is not an integer", number))
		return nil, &problem
	}
	order.number = n
	return order, nil
}

func (c *StorefrontConverter) sharedColumns(row manifest.RawRecord, order *storefrontOrder) map[string]string {
	orderDate := ""
	for _, a := range order.activities {
		if a.Type == "ORDER_PLACED" {
			orderDate = a.Timestamp
			break
		}
	}
	var tracking storefrontFulfillment
	if len(order.fulfillments) > 0 {
		tracking = order.fulfillments[0]
	}
	details := order.shipping.ShipmentDetails
	return map[string]string{
		"Order ID":           strconv.FormatInt(order.number, 10),
		"Order Date":         orderDate,
		"Payment Status":     strings.ToUpper(row.String("", "Payment Status")),
		"Fulfillment Status": strings.ToUpper(row.String("", "Fulfillment Status")),
		"Tracking Number":    tracking.TrackingInfo.TrackingNumber,
		"Shipping Provider":  tracking.TrackingInfo.ShippingProvider,
		"First Name":         cases.Title(language.English).String(strings.TrimSpace(details.FirstName)),
		"Last Name":          details.LastName,
		"Email":              details.Email,
		"Phone":              details.Phone,
		"Delivery Option":    order.shipping.DeliveryOption,
		"Estimated Delivery": order.shipping.EstimatedDeliveryTime,
		"City":               details.Address.City,
		"Street Address":     details.Address.AddressLine,
		"Country":            details.Address.Country,
		"Postal Code":        details.Address.PostalCode,
		"Weight":             order.totals.String("", "weight"),
		"Subtotal":           order.totals.String("", "subtotal"),
		"Tax":                order.totals.String("", "tax"),
		"Shipping Charge":    order.totals.String("", "shipping"),
		"Discount":           order.totals.String("", "discount"),
	}
}

func (c *StorefrontConverter) itemColumns(shared map[string]string, item storefrontLineItem, number int64, index int, suffix string) map[string]string {
	record := make(map[string]string, len(storefrontColumns))
	for k, v := range shared {
		record[k] = v
	}

	selections := make(map[string]string, len(item.Options))
	for _, opt := range item.Options {
		selections[opt.Option] = opt.Selection
	}
	customSize := ""
	for _, f := range item.CustomTextFields {
		if f.Title == "Custom Size (if selected)" {
			customSize = f.Value
		}
	}

	orderID := fmt.Sprintf("%dQ%d%s", number, index, suffix)
	paid := record["Payment Status"] == "PAID"
	paymentMode := manifest.PaymentCOD
	if paid {
		paymentMode = manifest.PaymentPrepaid
	}

	record["Translated Name"] = item.TranslatedName
	record["SKU"] = item.SKU
	record["Quantity"] = item.Quantity.String()
	record["Total Price"] = item.TotalPrice.String()
	record["Size"] = selections["Sizes"]
	record["Color"] = selections["Colour"]
	record["Custom Size Note"] = customSize
	record["Original Order ID"] = strconv.FormatInt(number, 10)
	record["Item Index"] = strconv.Itoa(index)
	record["Order ID"] = orderID
	record["Sale Order Number"] = c.cfg.SaleOrderPrefix + orderID
	record["Pickup Location Name"] = c.cfg.PickupLocationName
	record["Transport Mode"] = c.cfg.TransportMode
	record["Payment Mode"] = string(paymentMode)
	record["Customer Name"] = record["First Name"] + " " + record["Last Name"]
	record["Customer Phone"] = record["Phone"]
	record["Shipping Address Line1"] = record["Street Address"]
	record["Shipping City"] = record["City"]
	record["Shipping Pincode"] = record["Postal Code"]
	record["Shipping State"] = c.cfg.ShippingState
	record["Item Sku Code"] = item.SKU
	record["Item Sku Name"] = item.TranslatedName + " - Size: " + strings.ToUpper(record["Size"]) + " - Colour: " + record["Color"]
	record["Quantity Ordered"] = record["Quantity"]
	record["Unit Item Price"] = c.unitPrice(item.TotalPrice.String(), record["Discount"], paid).String()
	record["Length (cm)"] = strconv.Itoa(c.cfg.LengthCm)
	record["Breadth (cm)"] = strconv.Itoa(c.cfg.BreadthCm)
	record["Height (cm)"] = strconv.Itoa(c.cfg.HeightCm)
	record["Weight (gm)"] = strconv.Itoa(c.cfg.WeightGm)
	return record
}

// unitPrice is the item total less the order discount, plus the COD
// surcharge for unpaid items under the threshold
func (c *StorefrontConverter) unitPrice(total, discount string, paid bool) decimal.Decimal {
	price := manifest.ParseDecimal(total, decimal.Zero).Sub(manifest.ParseDecimal(discount, decimal.Zero))
	if !paid && price.LessThan(c.cfg.CODThreshold) {
		price = price.Add(c.cfg.CODSurcharge)
	}
	return price
}

// MarkColumns prefixes manifest columns with the marker, leaving the
// dimension and weight columns as they are
func MarkColumns(columns []string) []string {
	out := make([]string, len(columns))
	for i, col := range columns {
		out[i] = markColumn(col)
	}
	return out
}

func markColumn(col string) string {
	if _, plain := unmarkedColumns[col]; plain {
		return col
	}
	return manifest.MarkerPrefix + col
}

func markRecord(record map[string]string) manifest.RawRecord {
	out := make(manifest.RawRecord, len(record))
	for k, v := range record {
		out[markColumn(k)] = v
	}
	return out
}

// WriteCSV writes records under columns; missing cells are written empty
func WriteCSV(w io.Writer, columns []string, records []manifest.RawRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	row := make([]string, len(columns))
	for _, record := range records {
		for i, col := range columns {
			row[i] = record.String("", col)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ConvertStorefrontCSV reads a storefront export and converts it in one step
func ConvertStorefrontCSV(r io.Reader, cfg StorefrontConfig) (*ConvertResult, error) {
	rows, err := ReadRecords(r)
	if err != nil {
		return nil, err
	}
	return NewStorefrontConverter(cfg).Convert(rows), nil
}

// EncodeCSV is WriteCSV into memory
func EncodeCSV(columns []string, records []manifest.RawRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, columns, records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
