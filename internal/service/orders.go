// Package service holds the multi-statement writes that must commit or roll back as one unit.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"oficina/internal/db"
	"oficina/internal/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Orders runs the writes that keep a service order consistent with its items and updates
type Orders struct {
	db *gorm.DB
}

// NewOrders returns an Orders service over db
func NewOrders(db *gorm.DB) *Orders {
	return &Orders{db: db}
}

// ItemInput is the mutable part of an order item. UnitPrice and Description
// default to the referenced catalog entry when omitted.
type ItemInput struct {
	ServiceID   *uint
	ProductID   *uint
	Description string
	Quantity    decimal.Decimal
	UnitPrice   *decimal.Decimal
}

// ItemResult is the outcome of an item write
type ItemResult struct {
	Item     *domain.OrderItem    // Row after the write, nil on delete
	Previous *domain.OrderItem    // Row before the write, nil on create
	Order    *domain.ServiceOrder // Parent with the recomputed total
}

// UpdateInput is a progress entry to append to an order
type UpdateInput struct {
	UserID      uint
	Type        string
	Description string
	NewStatus   string
}

// UpdateResult is the outcome of AppendUpdate
type UpdateResult struct {
	Update         *domain.OrderUpdate
	Order          *domain.ServiceOrder
	PreviousStatus string
	StatusChanged  bool
}

// AddItem inserts an item and recomputes the order total in one transaction
func (s *Orders) AddItem(ctx context.Context, orderID uint, in ItemInput) (*ItemResult, error) {
	res := &ItemResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		item := domain.OrderItem{ServiceOrderID: orderID}
		if err := applyItemInput(tx, &item, in); err != nil {
			return err
		}
		if err := tx.Create(&item).Error; err != nil {
			return fmt.Errorf("insert item: %w", db.Classify(err))
		}
		if err := recomputeTotal(tx, order); err != nil {
			return err
		}
		res.Item, res.Order = &item, order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// UpdateItem replaces the mutable fields of an item and recomputes the order total in one transaction
func (s *Orders) UpdateItem(ctx context.Context, orderID, itemID uint, in ItemInput) (*ItemResult, error) {
	res := &ItemResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		item, err := findItem(tx, orderID, itemID)
		if err != nil {
			return err
		}
		prev := *item
		if err := applyItemInput(tx, item, in); err != nil {
			return err
		}
		err = tx.Model(item).
			Select("service_id", "product_id", "description", "quantity", "unit_price", "subtotal").
			Updates(item).Error
		if err != nil {
			return fmt.Errorf("update item: %w", db.Classify(err))
		}
		if err := recomputeTotal(tx, order); err != nil {
			return err
		}
		res.Item, res.Previous, res.Order = item, &prev, order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// DeleteItem removes an item and recomputes the order total in one transaction
func (s *Orders) DeleteItem(ctx context.Context, orderID, itemID uint) (*ItemResult, error) {
	res := &ItemResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		item, err := findItem(tx, orderID, itemID)
		if err != nil {
			return err
		}
		if err := tx.Delete(item).Error; err != nil {
			return fmt.Errorf("delete item: %w", db.Classify(err))
		}
		if err := recomputeTotal(tx, order); err != nil {
			return err
		}
		res.Previous, res.Order = item, order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// AppendUpdate inserts a progress entry and, for Status entries carrying a new
// status, overwrites the order status in the same transaction
func (s *Orders) AppendUpdate(ctx context.Context, orderID uint, in UpdateInput) (*UpdateResult, error) {
	res := &UpdateResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		upd := domain.OrderUpdate{
			ServiceOrderID: orderID,
			UserID:         in.UserID,
			Type:           strings.TrimSpace(in.Type),
			Description:    strings.TrimSpace(in.Description),
			NewStatus:      strings.TrimSpace(in.NewStatus),
		}
		if err := tx.Create(&upd).Error; err != nil {
			return fmt.Errorf("insert update: %w", db.Classify(err))
		}
		res.PreviousStatus = order.Status
		if domain.IsStatusUpdate(upd.Type, upd.NewStatus) {
			err := tx.Model(&domain.ServiceOrder{}).Where("id = ?", orderID).Update("status", upd.NewStatus).Error
			if err != nil {
				return fmt.Errorf("update status: %w", db.Classify(err))
			}
			order.Status = upd.NewStatus
			res.StatusChanged = res.PreviousStatus != upd.NewStatus
		}
		res.Update, res.Order = &upd, order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// DeleteOrder removes an order together with every row hanging off it
func (s *Orders) DeleteOrder(ctx context.Context, orderID uint) (*domain.ServiceOrder, error) {
	var order *domain.ServiceOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if order, err = lockOrder(tx, orderID); err != nil {
			return err
		}
		children := []any{
			&domain.OrderItem{}, &domain.OrderUpdate{}, &domain.Comment{},
			&domain.ChecklistItem{}, &domain.Attachment{}, &domain.Favorite{},
		}
		for _, model := range children {
			if err := tx.Where("service_order_id = ?", orderID).Delete(model).Error; err != nil {
				return fmt.Errorf("delete children: %w", db.Classify(err))
			}
		}
		// Ledger entries outlive the order they paid for
		err = tx.Model(&domain.Transaction{}).Where("service_order_id = ?", orderID).Update("service_order_id", nil).Error
		if err != nil {
			return fmt.Errorf("detach transactions: %w", err)
		}
		if err := tx.Delete(&domain.ServiceOrder{}, orderID).Error; err != nil {
			return fmt.Errorf("delete order: %w", db.Classify(err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// lockOrder loads the parent order, holding its row lock until the transaction ends
// on databases that support SELECT ... FOR UPDATE
func lockOrder(tx *gorm.DB, orderID uint) (*domain.ServiceOrder, error) {
	q := tx
	if !db.IsSQLite(tx) {
		q = q.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
	}
	var order domain.ServiceOrder
	if err := q.First(&order, orderID).Error; err != nil {
		return nil, db.Classify(err)
	}
	return &order, nil
}

func findItem(tx *gorm.DB, orderID, itemID uint) (*domain.OrderItem, error) {
	var item domain.OrderItem
	if err := tx.Where("id = ? AND service_order_id = ?", itemID, orderID).First(&item).Error; err != nil {
		return nil, db.Classify(err)
	}
	return &item, nil
}

// applyItemInput fills item from in, resolving catalog defaults, and computes the subtotal
func applyItemInput(tx *gorm.DB, item *domain.OrderItem, in ItemInput) error {
	item.ServiceID, item.ProductID = in.ServiceID, in.ProductID
	item.Description = strings.TrimSpace(in.Description)
	item.Quantity = in.Quantity

	var name string
	var price decimal.Decimal
	switch {
	case in.ServiceID != nil:
		var svc domain.Service
		if err := tx.First(&svc, *in.ServiceID).Error; err != nil {
			return catalogErr(err, "serviço")
		}
		name, price = svc.Name, svc.Price
	case in.ProductID != nil:
		var prod domain.Product
		if err := tx.First(&prod, *in.ProductID).Error; err != nil {
			return catalogErr(err, "produto")
		}
		name, price = prod.Name, prod.Price
	}
	if item.Description == "" {
		item.Description = name
	}
	if item.Description == "" {
		return domain.NewValidationError("descricao é obrigatória para itens manuais")
	}
	if in.UnitPrice != nil {
		item.UnitPrice = *in.UnitPrice
	} else {
		item.UnitPrice = price
	}
	item.ComputeSubtotal()
	return nil
}

func catalogErr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.NewValidationError(what + " informado não existe")
	}
	return err
}

// recomputeTotal overwrites the order total with the sum of its item subtotals
func recomputeTotal(tx *gorm.DB, order *domain.ServiceOrder) error {
	var total decimal.Decimal
	err := tx.Model(&domain.OrderItem{}).
		Select("COALESCE(SUM(subtotal), 0)").
		Where("service_order_id = ?", order.ID).
		Row().Scan(&total)
	if err != nil {
		return fmt.Errorf("sum items: %w", err)
	}
	total = total.Round(2)
	if err := tx.Model(&domain.ServiceOrder{}).Where("id = ?", order.ID).Update("total", total).Error; err != nil {
		return fmt.Errorf("update total: %w", err)
	}
	order.Total = total
	return nil
}
