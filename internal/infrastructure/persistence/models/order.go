package models

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/manifest/backend/internal/domain/manifest"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// OrderModel is the persistence model for manifest.Order
type OrderModel struct {
	BaseModel
	SaleOrderNumber      string           `gorm:"type:varchar(100);not null;uniqueIndex"`
	PickupLocationName   string           `gorm:"type:varchar(200)"`
	PaymentMode          string           `gorm:"type:varchar(50)"`
	CustomerName         string           `gorm:"type:varchar(200)"`
	CustomerPhone        string           `gorm:"type:varchar(50)"`
	ShippingAddressLine1 string           `gorm:"type:text"`
	ShippingCity         string           `gorm:"type:varchar(100)"`
	ShippingPincode      string           `gorm:"type:varchar(20)"`
	ShippingState        string           `gorm:"type:varchar(100)"`
	ItemSkuName          string           `gorm:"type:text"`
	QuantityOrdered      *int             `gorm:"type:integer"`
	UnitItemPrice        *decimal.Decimal `gorm:"type:decimal(12,2)"`
	WeightGm             *int             `gorm:"type:integer"`
	Raw                  datatypes.JSON   `gorm:"type:jsonb"`
	Waybill              *string          `gorm:"type:varchar(64);index"`
	ManifestStatus       string           `gorm:"type:varchar(20);not null;default:'';index"`
	ManifestedAt         *time.Time
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order. Numbers in the
// raw record decode as json.Number so integers keep their text form.
func (m *OrderModel) ToDomain() (*manifest.Order, error) {
	raw := manifest.RawRecord{}
	if len(m.Raw) > 0 {
		dec := json.NewDecoder(bytes.NewReader(m.Raw))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
	}
	return &manifest.Order{
		BaseEntity:           m.BaseModel.ToDomain(),
		SaleOrderNumber:      m.SaleOrderNumber,
		PickupLocationName:   m.PickupLocationName,
		PaymentMode:          m.PaymentMode,
		CustomerName:         m.CustomerName,
		CustomerPhone:        m.CustomerPhone,
		ShippingAddressLine1: m.ShippingAddressLine1,
		ShippingCity:         m.ShippingCity,
		ShippingPincode:      m.ShippingPincode,
		ShippingState:        m.ShippingState,
		ItemSkuName:          m.ItemSkuName,
		QuantityOrdered:      m.QuantityOrdered,
		UnitItemPrice:        m.UnitItemPrice,
		WeightGm:             m.WeightGm,
		Raw:                  raw,
		Waybill:              m.Waybill,
		ManifestStatus:       manifest.ManifestStatus(m.ManifestStatus),
		ManifestedAt:         m.ManifestedAt,
	}, nil
}

// OrderModelFromDomain creates a persistence model from a domain Order
func OrderModelFromDomain(o *manifest.Order) (*OrderModel, error) {
	raw, err := json.Marshal(o.Raw)
	if err != nil {
		return nil, err
	}
	m := &OrderModel{
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
		Raw:                  datatypes.JSON(raw),
		Waybill:              o.Waybill,
		ManifestStatus:       string(o.ManifestStatus),
		ManifestedAt:         o.ManifestedAt,
	}
	m.FromDomainBaseEntity(o.BaseEntity)
	return m, nil
}
