package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/manifest/backend/internal/domain/manifest"
	"gorm.io/datatypes"
)

// ManifestBatchModel is the persistence model for manifest.Batch
type ManifestBatchModel struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt          time.Time `gorm:"not null;index"`
	PickupLocationName string    `gorm:"type:varchar(200)"`
	TotalCount         int       `gorm:"not null;default:0"`
	Status             string    `gorm:"type:varchar(20);not null;index"`
}

// TableName returns the table name for GORM
func (ManifestBatchModel) TableName() string {
	return "manifest_batches"
}

func (m *ManifestBatchModel) ToDomain() *manifest.Batch {
	return &manifest.Batch{
		ID:                 m.ID,
		CreatedAt:          m.CreatedAt,
		PickupLocationName: m.PickupLocationName,
		TotalCount:         m.TotalCount,
		Status:             manifest.BatchStatus(m.Status),
	}
}

func ManifestBatchModelFromDomain(b *manifest.Batch) *ManifestBatchModel {
	return &ManifestBatchModel{
		ID:                 b.ID,
		CreatedAt:          b.CreatedAt,
		PickupLocationName: b.PickupLocationName,
		TotalCount:         b.TotalCount,
		Status:             string(b.Status),
	}
}

// ManifestLogModel is the persistence model for manifest.Log. Seq is the
// surrogate key and gives logs a total insertion order.
type ManifestLogModel struct {
	Seq             int64          `gorm:"primaryKey;autoIncrement"`
	ID              uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex"`
	CreatedAt       time.Time      `gorm:"not null;index"`
	BatchID         *uuid.UUID     `gorm:"type:uuid;index"`
	SaleOrderNumber string         `gorm:"type:varchar(100);index"`
	Operation       string         `gorm:"type:varchar(20);not null;index"`
	RequestPayload  datatypes.JSON `gorm:"type:jsonb"`
	ResponsePayload datatypes.JSON `gorm:"type:jsonb"`
	Waybill         *string        `gorm:"type:varchar(64)"`
}

// TableName returns the table name for GORM
func (ManifestLogModel) TableName() string {
	return "manifest_logs"
}

func (m *ManifestLogModel) ToDomain() *manifest.Log {
	return &manifest.Log{
		ID:              m.ID,
		Seq:             m.Seq,
		CreatedAt:       m.CreatedAt,
		BatchID:         m.BatchID,
		SaleOrderNumber: m.SaleOrderNumber,
		Operation:       manifest.Operation(m.Operation),
		RequestPayload:  rawOrNil(m.RequestPayload),
		ResponsePayload: rawOrNil(m.ResponsePayload),
		Waybill:         m.Waybill,
	}
}

func ManifestLogModelFromDomain(l *manifest.Log) *ManifestLogModel {
	return &ManifestLogModel{
		Seq:             l.Seq,
		ID:              l.ID,
		CreatedAt:       l.CreatedAt,
		BatchID:         l.BatchID,
		SaleOrderNumber: l.SaleOrderNumber,
		Operation:       string(l.Operation),
		RequestPayload:  jsonOrNil(l.RequestPayload),
		ResponsePayload: jsonOrNil(l.ResponsePayload),
		Waybill:         l.Waybill,
	}
}

func rawOrNil(j datatypes.JSON) json.RawMessage {
	if len(j) == 0 || string(j) == "null" {
		return nil
	}
	return json.RawMessage(j)
}

// a nil JSON column is stored as SQL NULL, not the JSON literal null
func jsonOrNil(raw json.RawMessage) datatypes.JSON {
	if len(raw) == 0 {
		return nil
	}
	return datatypes.JSON(raw)
}
