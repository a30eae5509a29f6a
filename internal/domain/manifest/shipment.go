package manifest

import (
	"strings"

	"github.com/shopspring/decimal"
)

// PaymentMode is the carrier's payment classification
type PaymentMode string

const (
	PaymentPrepaid PaymentMode = "Prepaid"
	PaymentCOD     PaymentMode = "COD"
	PaymentPickup  PaymentMode = "Pickup"
)

// TransportMode is the carrier's shipping mode
type TransportMode string

const (
	TransportSurface TransportMode = "Surface"
	TransportExpress TransportMode = "Express"
)

const (
	defaultAddressType = "home"
	defaultCountry     = "India"
)

var paymentVocabulary = map[string]PaymentMode{
	"prepaid":          PaymentPrepaid,
	"paid":             PaymentPrepaid,
	"online":           PaymentPrepaid,
	"cod":              PaymentCOD,
	"cash on delivery": PaymentCOD,
	"pickup":           PaymentPickup,
	"pick-up":          PaymentPickup,
}

// ClassifyPayment maps a free-form payment string onto PaymentMode.
// Unrecognized input classifies as Prepaid; use PaymentModeKnown to detect it.
func ClassifyPayment(s string) PaymentMode {
	if mode, ok := paymentVocabulary[strings.ToLower(strings.TrimSpace(s))]; ok {
		return mode
	}
	return PaymentPrepaid
}

// PaymentModeKnown reports whether s belongs to the payment vocabulary
func PaymentModeKnown(s string) bool {
	_, ok := paymentVocabulary[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// ClassifyTransport returns Express for "express" in any case, else Surface
func ClassifyTransport(s string) TransportMode {
	if strings.EqualFold(strings.TrimSpace(s), "express") {
		return TransportExpress
	}
	return TransportSurface
}

// DescribeProduct joins the sku name with its size and colour qualifiers:
// "Kurta - Size: M - Colour: Red". Missing qualifiers are left out and an
// empty name yields the qualifiers alone.
func DescribeProduct(name, size, colour string) string {
	name = strings.TrimSpace(name)
	var parts []string
	if size = strings.TrimSpace(size); size != "" {
		parts = append(parts, "Size: "+size)
	}
	if colour = strings.TrimSpace(colour); colour != "" {
		parts = append(parts, "Colour: "+colour)
	}
	if len(parts) == 0 {
		return name
	}
	qualifiers := strings.Join(parts, " - ")
	if name == "" {
		return qualifiers
	}
	return name + " - " + qualifiers
}

// Amount is a currency value encoded as a bare JSON number with two decimals
type Amount struct {
	decimal.Decimal
}

// NewAmount rounds d to two decimal places
func NewAmount(d decimal.Decimal) Amount {
	return Amount{Decimal: d.Round(2)}
}

// MarshalJSON implements json.Marshaler
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.StringFixed(2)), nil
}

// UnmarshalJSON accepts both numbers and quoted numbers
func (a *Amount) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" || s == "" {
		a.Decimal = decimal.Zero
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return err
	}
	a.Decimal = d
	return nil
}

// ComplianceBlock is the fixed tax block attached to every shipment.
// Amounts stay strings so the configured formatting ("150.00") is sent as-is.
type ComplianceBlock struct {
	ConsigneeGSTAmount  string `json:"consignee_gst_amount" mapstructure:"consignee_gst_amount" validate:"required,numeric"`
	IntegratedGSTAmount string `json:"integrated_gst_amount" mapstructure:"integrated_gst_amount" validate:"required,numeric"`
	GSTCessAmount       string `json:"gst_cess_amount" mapstructure:"gst_cess_amount" validate:"required,numeric"`
	ConsigneeGSTTIN     string `json:"consignee_gst_tin" mapstructure:"consignee_gst_tin" validate:"required,len=15,alphanum"`
	HSNCode             string `json:"hsn_code" mapstructure:"hsn_code" validate:"required,numeric"`
}

// DefaultComplianceBlock returns the compliance values used when none are configured
func DefaultComplianceBlock() ComplianceBlock {
	return ComplianceBlock{
		ConsigneeGSTAmount:  "150.00",
		IntegratedGSTAmount: "275.50",
		GSTCessAmount:       "35.25",
		ConsigneeGSTTIN:     "27ABCDE1234F1Z5",
		HSNCode:             "851770",
	}
}

// Shipment is one entry of a carrier manifest
type Shipment struct {
	Address        string        `json:"add"`
	AddressType    string        `json:"address_type"`
	Phone          string        `json:"phone"`
	PaymentMode    PaymentMode   `json:"payment_mode"`
	Name           string        `json:"name"`
	Pin            int           `json:"pin"`
	Order          string        `json:"order"`
	City           string        `json:"city"`
	State          string        `json:"state"`
	Country        string        `json:"country"`
	WeightGm       int           `json:"weight"`
	HeightCm       int           `json:"shipment_height"`
	WidthCm        int           `json:"shipment_width"`
	LengthCm       int           `json:"shipment_length"`
	ShippingMode   TransportMode `json:"shipping_mode"`
	Quantity       int           `json:"quantity"`
	TotalAmount    Amount        `json:"total_amount"`
	ProductDesc    string        `json:"product_desc"`
	ProductsDesc   string        `json:"products_desc"`
	EWaybillNumber string        `json:"ewbn"`
	ComplianceBlock
}

// PickupLocation is the warehouse every shipment of a payload leaves from
type PickupLocation struct {
	Name    string `json:"name" mapstructure:"name" validate:"required"`
	City    string `json:"city" mapstructure:"city" validate:"required"`
	Pin     string `json:"pin" mapstructure:"pin" validate:"required,numeric"`
	Country string `json:"country" mapstructure:"country" validate:"required"`
}

// Payload is the carrier create request body
type Payload struct {
	Shipments      []Shipment     `json:"shipments"`
	PickupLocation PickupLocation `json:"pickup_location"`
}

// OrderRefs returns the order reference of every shipment in payload order
func (p *Payload) OrderRefs() []string {
	refs := make([]string, 0, len(p.Shipments))
	for _, s := range p.Shipments {
		refs = append(refs, s.Order)
	}
	return refs
}

// BuilderConfig is read once at process start
type BuilderConfig struct {
	Compliance ComplianceBlock
	Country    string
}

// ShipmentBuilder turns raw records into shipments. It is pure and safe for
// concurrent use.
type ShipmentBuilder struct {
	cfg BuilderConfig
}

// NewShipmentBuilder creates a builder, filling the country default
func NewShipmentBuilder(cfg BuilderConfig) *ShipmentBuilder {
	if cfg.Country == "" {
		cfg.Country = defaultCountry
	}
	return &ShipmentBuilder{cfg: cfg}
}

// Build produces the shipment for one record. It never fails: missing or
// malformed values fall back to empty strings and zeros.
func (b *ShipmentBuilder) Build(record RawRecord) Shipment {
	f := Normalize(record)

	qty := f.Quantity
	if qty <= 0 {
		qty = 1
	}

	var total decimal.Decimal
	if f.TotalAmount != nil {
		total = *f.TotalAmount
	} else {
		total = f.UnitPrice.Mul(decimal.NewFromInt(int64(qty)))
	}

	product := DescribeProduct(f.SkuName, f.Size, f.Colour)

	return Shipment{
		Address:         f.Address,
		AddressType:     defaultAddressType,
		Phone:           f.Phone,
		PaymentMode:     ClassifyPayment(f.Payment),
		Name:            strings.TrimSpace(f.FirstName + " " + f.LastName),
		Pin:             ParseInt(f.PostalCode, 0),
		Order:           f.OrderID,
		City:            f.City,
		State:           f.State,
		Country:         b.cfg.Country,
		WeightGm:        f.WeightGm,
		HeightCm:        f.HeightCm,
		WidthCm:         f.BreadthCm,
		LengthCm:        f.LengthCm,
		ShippingMode:    ClassifyTransport(f.Transport),
		Quantity:        qty,
		TotalAmount:     NewAmount(total),
		ProductDesc:     product,
		ProductsDesc:    product,
		ComplianceBlock: b.cfg.Compliance,
	}
}
