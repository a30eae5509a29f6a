package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/manifest/backend/internal/domain/manifest"
	"github.com/manifest/backend/internal/domain/shared"
	"github.com/manifest/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormOrderRepository implements manifest.OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *GormOrderRepository) WithTx(tx *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: tx}
}

// FindBySaleOrderNumber finds an order by its external id
func (r *GormOrderRepository) FindBySaleOrderNumber(ctx context.Context, saleOrderNumber string) (*manifest.Order, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).
		Where("sale_order_number = ?", saleOrderNumber).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindAll lists orders newest first together with the unpaged total
func (r *GormOrderRepository) FindAll(ctx context.Context, filter manifest.OrderFilter) ([]*manifest.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.OrderModel{})
	if filter.ManifestStatus != nil {
		query = query.Where("manifest_status = ?", string(*filter.ManifestStatus))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orderBy := ValidateSortField(filter.OrderBy, OrderSortFields, "created_at")
	query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))
	if orderBy != "sale_order_number" {
		query = query.Order("sale_order_number")
	}
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rows []models.OrderModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	orders := make([]*manifest.Order, 0, len(rows))
	for i := range rows {
		o, err := rows[i].ToDomain()
		if err != nil {
			return nil, 0, fmt.Errorf("decode order %s: %w", rows[i].SaleOrderNumber, err)
		}
		orders = append(orders, o)
	}
	return orders, total, nil
}

// Save creates or updates an order. A concurrent insert of the same sale
// order number surfaces as shared.ErrAlreadyExists.
func (r *GormOrderRepository) Save(ctx context.Context, order *manifest.Order) error {
	model, err := models.OrderModelFromDomain(order)
	if err != nil {
		return fmt.Errorf("encode order %s: %w", order.SaleOrderNumber, err)
	}
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// Ensure GormOrderRepository implements OrderRepository
var _ manifest.OrderRepository = (*GormOrderRepository)(nil)
