package api

import (
	"fmt"      // Message formatting
	"net/http" // HTTP status codes

	"oficina/internal/audit"      // History recorder
	"oficina/internal/domain"     // Importing domain models
	"oficina/internal/realtime"   // Websocket hub
	"oficina/internal/service"    // Transactional writes
	"oficina/internal/utils"      // Cache interface
	"oficina/internal/validation" // Field rules

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// OrderUpdateRequest is a progress entry. A Status entry with novo_status also changes the order status.
type OrderUpdateRequest struct {
	Type        string `json:"tipo_atualizacao"` // Status, Diagnóstico, Observação...
	Description string `json:"descricao"`        // What happened
	NewStatus   string `json:"novo_status"`      // Target status for Status entries
}

func (r OrderUpdateRequest) rules() []validation.Rule {
	return []validation.Rule{
		{Field: "tipo_atualizacao", Value: r.Type, Tag: "notblank,max=40", Message: "tipo_atualizacao é obrigatório"},
		{Field: "novo_status", Value: r.NewStatus, Tag: "max=40", Message: "novo_status deve ter até 40 caracteres"},
	}
}

// ListOrderUpdatesHandler returns the progress entries of one order, oldest first
func ListOrderUpdatesHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		if err := db.Select("id").First(&domain.ServiceOrder{}, id).Error; err != nil {
			respondError(c, classify(err), "Falha ao carregar ordem de serviço")
			return
		}
		updates := []domain.OrderUpdate{}
		err := db.Preload("User").Where("service_order_id = ?", id).Order("created_at asc, id asc").Find(&updates).Error
		if err != nil {
			respondError(c, err, "Falha ao listar atualizações")
			return
		}
		c.JSON(http.StatusOK, updates)
	}
}

// CreateOrderUpdateHandler appends a progress entry, changing the status in the same
// transaction when asked to, and notifies the client's user of status changes
func CreateOrderUpdateHandler(orders *service.Orders, db *gorm.DB, rec *audit.Recorder, hub *realtime.Hub, cache utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var req OrderUpdateRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := validation.Validate(req.rules()...); err != nil {
			respondError(c, err, "")
			return
		}
		actor := currentUser(c)
		res, err := orders.AppendUpdate(c.Request.Context(), id, service.UpdateInput{
			UserID:      actor.UserID,
			Type:        req.Type,
			Description: req.Description,
			NewStatus:   req.NewStatus,
		})
		if err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{"order_id": id, "actor_id": actor.UserID}).Warn("Order update rolled back")
			respondError(c, err, "Falha ao registrar atualização")
			return
		}
		if res.StatusChanged {
			before := *res.Order
			before.Status = res.PreviousStatus
			rec.Record(c.Request.Context(), audit.Event{ActorID: actor.UserID, Action: audit.ActionUpdate, Entity: audit.EntityServiceOrder, EntityID: id, Before: before, After: res.Order})
			invalidateReports(c.Request.Context(), cache)
			notifyStatusChange(c, db, hub, res.Order)
		}
		logrus.WithFields(logrus.Fields{"order_id": id, "update_id": res.Update.ID, "status": res.Order.Status}).Info("Order update recorded")
		c.JSON(http.StatusCreated, gin.H{"atualizacao": res.Update, "status": res.Order.Status})
	}
}

// notifyStatusChange tells the order's client, when it has login access, about the new status
func notifyStatusChange(c *gin.Context, db *gorm.DB, hub *realtime.Hub, order *domain.ServiceOrder) {
	var client domain.Client
	if err := db.Select("id", "user_id").First(&client, order.ClientID).Error; err != nil || client.UserID == nil {
		return
	}
	notifyUser(c.Request.Context(), db, hub, domain.Notification{
		UserID:  *client.UserID,
		Title:   fmt.Sprintf("Ordem de serviço #%d", order.ID),
		Message: "Status atualizado para " + order.Status,
		Link:    fmt.Sprintf("/ordens-servico/%d", order.ID),
	})
}
