package api

import (
	"net/http" // HTTP status codes

	"oficina/internal/domain"     // Importing domain models
	"oficina/internal/realtime"   // Websocket hub
	"oficina/internal/utils"      // Pagination
	"oficina/internal/validation" // Field rules

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// NotificationRequest is the staff form for sending a notification to a user
type NotificationRequest struct {
	UserID  uint   `json:"usuario_id"` // Recipient
	Title   string `json:"titulo"`     // Headline
	Message string `json:"mensagem"`   // Body
	Link    string `json:"link"`       // SPA route to open
}

func (r NotificationRequest) rules() []validation.Rule {
	return []validation.Rule{
		{Field: "usuario_id", Value: r.UserID, Tag: "required", Message: "usuario_id é obrigatório"},
		{Field: "titulo", Value: r.Title, Tag: "notblank,max=120", Message: "titulo é obrigatório (até 120 caracteres)"},
		{Field: "link", Value: r.Link, Tag: "max=255", Message: "link deve ter até 255 caracteres"},
	}
}

// ListNotificationsHandler returns the caller's notifications, newest first. lida=false keeps unread ones.
func ListNotificationsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		page := utils.ParsePage(c)
		var f utils.Filter
		f.Eq("user_id", currentUser(c).UserID)
		switch c.Query("lida") {
		case "true":
			f.Eq("is_read", true)
		case "false":
			f.Eq("is_read", false)
		}
		query := f.Apply(db.Model(&domain.Notification{}))
		var total int64
		if err := query.Count(&total).Error; err != nil {
			respondError(c, err, "Falha ao contar notificações")
			return
		}
		var items []domain.Notification
		if err := query.Order("created_at desc, id desc").Offset(page.Offset).Limit(page.Limit).Find(&items).Error; err != nil {
			respondError(c, err, "Falha ao listar notificações")
			return
		}
		c.JSON(http.StatusOK, utils.NewList(items, total, page))
	}
}

// CreateNotificationHandler stores a notification for a user and pushes it live
func CreateNotificationHandler(db *gorm.DB, hub *realtime.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req NotificationRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := validation.Validate(req.rules()...); err != nil {
			respondError(c, err, "")
			return
		}
		if err := mustExist(db, &domain.User{}, req.UserID, "usuário informado não existe"); err != nil {
			respondError(c, err, "Falha ao validar usuário")
			return
		}
		n := domain.Notification{UserID: req.UserID, Title: req.Title, Message: req.Message, Link: req.Link}
		if err := db.Create(&n).Error; err != nil {
			respondError(c, classify(err), "Falha ao criar notificação")
			return
		}
		hub.Notify(n.UserID, wsEnvelope("notificacao", n))
		logrus.WithFields(logrus.Fields{"notification_id": n.ID, "user_id": n.UserID, "actor_id": currentUser(c).UserID}).Info("Notification sent")
		c.JSON(http.StatusCreated, n)
	}
}

// MarkNotificationReadHandler marks one of the caller's notifications as read
func MarkNotificationReadHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var n domain.Notification
		if err := db.Where("id = ? AND user_id = ?", id, currentUser(c).UserID).First(&n).Error; err != nil {
			respondError(c, classify(err), "Falha ao carregar notificação")
			return
		}
		if err := db.Model(&n).Update("is_read", true).Error; err != nil {
			respondError(c, err, "Falha ao atualizar notificação")
			return
		}
		n.Read = true
		c.JSON(http.StatusOK, n)
	}
}

// DeleteNotificationHandler removes one of the caller's notifications
func DeleteNotificationHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		res := db.Where("user_id = ?", currentUser(c).UserID).Delete(&domain.Notification{}, id)
		if res.Error != nil {
			respondError(c, res.Error, "Falha ao excluir notificação")
			return
		}
		if res.RowsAffected == 0 {
			respondError(c, domain.ErrNotFound, "")
			return
		}
		c.Status(http.StatusNoContent)
	}
}
