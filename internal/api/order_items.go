package api

import (
	"net/http" // HTTP status codes

	"oficina/internal/audit"      // History recorder
	"oficina/internal/domain"     // Importing domain models
	"oficina/internal/service"    // Transactional writes
	"oficina/internal/utils"      // Cache interface
	"oficina/internal/validation" // Field rules

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/shopspring/decimal" // Decimal arithmetic for money
	"github.com/sirupsen/logrus"    // Logging library
	"gorm.io/gorm"                  // GORM ORM library
)

// ItemRequest is the form for order items. Omitted price and description come from the catalog.
type ItemRequest struct {
	ServiceID   *uint            `json:"servico_id"`     // Catalog service
	ProductID   *uint            `json:"produto_id"`     // Catalog product
	Description string           `json:"descricao"`      // Manual description
	Quantity    decimal.Decimal  `json:"quantidade"`     // Units, must be positive
	UnitPrice   *decimal.Decimal `json:"valor_unitario"` // Price per unit
}

func (r ItemRequest) rules() []validation.Rule {
	return []validation.Rule{
		{Field: "servico_id", Value: r.ServiceID, Tag: "omitempty,gt=0", Message: "servico_id inválido"},
		{Field: "produto_id", Value: r.ProductID, Tag: "omitempty,gt=0", Message: "produto_id inválido"},
		{Field: "descricao", Value: r.Description, Tag: "max=255", Message: "descricao deve ter até 255 caracteres"},
		validation.Assert("servico_id", r.ServiceID == nil || r.ProductID == nil, "informe servico_id ou produto_id, não ambos"),
		validation.Assert("quantidade", r.Quantity.IsPositive(), "quantidade deve ser maior que zero"),
		validation.Assert("valor_unitario", r.UnitPrice == nil || !r.UnitPrice.IsNegative(), "valor_unitario não pode ser negativo"),
	}
}

func (r ItemRequest) input() service.ItemInput {
	return service.ItemInput{
		ServiceID:   r.ServiceID,
		ProductID:   r.ProductID,
		Description: r.Description,
		Quantity:    r.Quantity,
		UnitPrice:   r.UnitPrice,
	}
}

// ListItemsHandler returns the items of one order
func ListItemsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		if err := db.Select("id").First(&domain.ServiceOrder{}, id).Error; err != nil {
			respondError(c, classify(err), "Falha ao carregar ordem de serviço")
			return
		}
		items := []domain.OrderItem{}
		if err := db.Where("service_order_id = ?", id).Order("id asc").Find(&items).Error; err != nil {
			respondError(c, err, "Falha ao listar itens")
			return
		}
		c.JSON(http.StatusOK, items)
	}
}

// CreateItemHandler adds an item and returns it with the recomputed order total
func CreateItemHandler(orders *service.Orders, rec *audit.Recorder, cache utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var req ItemRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := validation.Validate(req.rules()...); err != nil {
			respondError(c, err, "")
			return
		}
		actor := currentUser(c)
		res, err := orders.AddItem(c.Request.Context(), id, req.input())
		if err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{"order_id": id, "actor_id": actor.UserID}).Warn("Item creation rolled back")
			respondError(c, err, "Falha ao adicionar item")
			return
		}
		rec.Record(c.Request.Context(), audit.Event{ActorID: actor.UserID, Action: audit.ActionCreate, Entity: audit.EntityOrderItem, EntityID: res.Item.ID, After: res.Item})
		invalidateReports(c.Request.Context(), cache)
		logrus.WithFields(logrus.Fields{"order_id": id, "item_id": res.Item.ID, "total": res.Order.Total.StringFixed(2)}).Info("Item added")
		c.JSON(http.StatusCreated, gin.H{"item": res.Item, "valor_total": res.Order.Total})
	}
}

// UpdateItemHandler replaces an item and returns it with the recomputed order total
func UpdateItemHandler(orders *service.Orders, rec *audit.Recorder, cache utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		itemID, ok := idParam(c, "itemId")
		if !ok {
			return
		}
		var req ItemRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := validation.Validate(req.rules()...); err != nil {
			respondError(c, err, "")
			return
		}
		actor := currentUser(c)
		res, err := orders.UpdateItem(c.Request.Context(), id, itemID, req.input())
		if err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{"order_id": id, "item_id": itemID, "actor_id": actor.UserID}).Warn("Item update rolled back")
			respondError(c, err, "Falha ao atualizar item")
			return
		}
		rec.Record(c.Request.Context(), audit.Event{ActorID: actor.UserID, Action: audit.ActionUpdate, Entity: audit.EntityOrderItem, EntityID: itemID, Before: res.Previous, After: res.Item})
		invalidateReports(c.Request.Context(), cache)
		c.JSON(http.StatusOK, gin.H{"item": res.Item, "valor_total": res.Order.Total})
	}
}

// DeleteItemHandler removes an item and returns the recomputed order total
func DeleteItemHandler(orders *service.Orders, rec *audit.Recorder, cache utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		itemID, ok := idParam(c, "itemId")
		if !ok {
			return
		}
		actor := currentUser(c)
		res, err := orders.DeleteItem(c.Request.Context(), id, itemID)
		if err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{"order_id": id, "item_id": itemID, "actor_id": actor.UserID}).Warn("Item deletion rolled back")
			respondError(c, err, "Falha ao excluir item")
			return
		}
		rec.Record(c.Request.Context(), audit.Event{ActorID: actor.UserID, Action: audit.ActionDelete, Entity: audit.EntityOrderItem, EntityID: itemID, Before: res.Previous})
		invalidateReports(c.Request.Context(), cache)
		c.JSON(http.StatusOK, gin.H{"valor_total": res.Order.Total})
	}
}
