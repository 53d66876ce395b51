package api

import (
	"errors"   // Error inspection
	"fmt"      // Key formatting
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"oficina/internal/domain"     // Importing domain models
	"oficina/internal/storage"    // Object storage
	"oficina/internal/validation" // Field rules

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// orderExists answers 404 when the order in the path does not exist
func orderExists(c *gin.Context, db *gorm.DB) (uint, bool) {
	id, ok := idParam(c, "id")
	if !ok {
		return 0, false
	}
	if err := db.Select("id").First(&domain.ServiceOrder{}, id).Error; err != nil {
		respondError(c, classify(err), "Falha ao carregar ordem de serviço")
		return 0, false
	}
	return id, true
}

// deleteChild removes a row of model that hangs off the order in the path
func deleteChild(c *gin.Context, db *gorm.DB, model any, what string) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}
	childID, ok := idParam(c, "childId")
	if !ok {
		return
	}
	res := db.Where("service_order_id = ?", orderID).Delete(model, childID)
	if res.Error != nil {
		respondError(c, res.Error, "Falha ao excluir "+what)
		return
	}
	if res.RowsAffected == 0 {
		respondError(c, domain.ErrNotFound, "")
		return
	}
	logrus.WithFields(logrus.Fields{"order_id": orderID, "id": childID, "kind": what, "actor_id": currentUser(c).UserID}).Info("Order child deleted")
	c.Status(http.StatusNoContent)
}

// FavoriteRequest pins a service order
type FavoriteRequest struct {
	ServiceOrderID uint `json:"ordem_servico_id"` // Order to pin
}

// ListFavoritesHandler returns the caller's pinned orders
func ListFavoritesHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		favorites := []domain.Favorite{}
		err := db.Preload("ServiceOrder").Where("user_id = ?", currentUser(c).UserID).Order("created_at desc, id desc").Find(&favorites).Error
		if err != nil {
			respondError(c, err, "Falha ao listar favoritos")
			return
		}
		c.JSON(http.StatusOK, favorites)
	}
}

// CreateFavoriteHandler pins an order for the caller. Pinning twice is a conflict.
// Clients can only pin their own orders.
func CreateFavoriteHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req FavoriteRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := validation.Validate(validation.Rule{Field: "ordem_servico_id", Value: req.ServiceOrderID, Tag: "required", Message: "ordem_servico_id é obrigatório"}); err != nil {
			respondError(c, err, "")
			return
		}
		actor := currentUser(c)
		var order domain.ServiceOrder
		if err := db.Select("id", "client_id").First(&order, req.ServiceOrderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				err = domain.NewValidationError("ordem de serviço informada não existe")
			}
			respondError(c, err, "Falha ao validar ordem de serviço")
			return
		}
		if !actor.IsStaff() {
			client, err := clientForUser(db, actor.UserID)
			if err != nil || client.ID != order.ClientID {
				respondError(c, domain.ErrForbidden, "")
				return
			}
		}
		fav := domain.Favorite{UserID: actor.UserID, ServiceOrderID: req.ServiceOrderID}
		if err := db.Omit("ServiceOrder").Create(&fav).Error; err != nil {
			respondError(c, classify(err), "Falha ao salvar favorito")
			return
		}
		c.JSON(http.StatusCreated, fav)
	}
}

// DeleteFavoriteHandler unpins one of the caller's favorites
func DeleteFavoriteHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		res := db.Where("user_id = ?", currentUser(c).UserID).Delete(&domain.Favorite{}, id)
		if res.Error != nil {
			respondError(c, res.Error, "Falha ao excluir favorito")
			return
		}
		if res.RowsAffected == 0 {
			respondError(c, domain.ErrNotFound, "")
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// CommentRequest is a staff note on an order
type CommentRequest struct {
	Text string `json:"texto"` // Comment body
}

// ListCommentsHandler returns an order's comments, oldest first
func ListCommentsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := orderExists(c, db)
		if !ok {
			return
		}
		comments := []domain.Comment{}
		if err := db.Preload("User").Where("service_order_id = ?", id).Order("created_at asc, id asc").Find(&comments).Error; err != nil {
			respondError(c, err, "Falha ao listar comentários")
			return
		}
		c.JSON(http.StatusOK, comments)
	}
}

// CreateCommentHandler adds a comment to an order
func CreateCommentHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := orderExists(c, db)
		if !ok {
			return
		}
		var req CommentRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := validation.Validate(validation.Rule{Field: "texto", Value: req.Text, Tag: "notblank", Message: "texto é obrigatório"}); err != nil {
			respondError(c, err, "")
			return
		}
		comment := domain.Comment{ServiceOrderID: id, UserID: currentUser(c).UserID, Text: strings.TrimSpace(req.Text)}
		if err := db.Omit("User").Create(&comment).Error; err != nil {
			respondError(c, classify(err), "Falha ao criar comentário")
			return
		}
		c.JSON(http.StatusCreated, comment)
	}
}

// DeleteCommentHandler removes a comment of an order
func DeleteCommentHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) { deleteChild(c, db, &domain.Comment{}, "comentário") }
}

// ChecklistRequest is one inspection step
type ChecklistRequest struct {
	Item  string `json:"item"`       // What to check
	Done  bool   `json:"concluido"`  // Checked off
	Notes string `json:"observacao"` // Finding
}

func (r ChecklistRequest) rules() []validation.Rule {
	return []validation.Rule{
		{Field: "item", Value: r.Item, Tag: "notblank,max=200", Message: "item é obrigatório (até 200 caracteres)"},
		{Field: "observacao", Value: r.Notes, Tag: "max=255", Message: "observacao deve ter até 255 caracteres"},
	}
}

// ListChecklistHandler returns an order's checklist in creation order
func ListChecklistHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := orderExists(c, db)
		if !ok {
			return
		}
		items := []domain.ChecklistItem{}
		if err := db.Where("service_order_id = ?", id).Order("id asc").Find(&items).Error; err != nil {
			respondError(c, err, "Falha ao listar checklist")
			return
		}
		c.JSON(http.StatusOK, items)
	}
}

// CreateChecklistHandler adds a step to an order's checklist
func CreateChecklistHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := orderExists(c, db)
		if !ok {
			return
		}
		var req ChecklistRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := validation.Validate(req.rules()...); err != nil {
			respondError(c, err, "")
			return
		}
		item := domain.ChecklistItem{ServiceOrderID: id, Item: strings.TrimSpace(req.Item), Done: req.Done, Notes: req.Notes}
		if err := db.Create(&item).Error; err != nil {
			respondError(c, classify(err), "Falha ao criar item do checklist")
			return
		}
		c.JSON(http.StatusCreated, item)
	}
}

// UpdateChecklistHandler replaces a checklist step, typically to check it off
func UpdateChecklistHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, ok := idParam(c, "id")
		if !ok {
			return
		}
		childID, ok := idParam(c, "childId")
		if !ok {
			return
		}
		var req ChecklistRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := validation.Validate(req.rules()...); err != nil {
			respondError(c, err, "")
			return
		}
		var item domain.ChecklistItem
		if err := db.Where("id = ? AND service_order_id = ?", childID, orderID).First(&item).Error; err != nil {
			respondError(c, classify(err), "Falha ao carregar item do checklist")
			return
		}
		item.Item, item.Done, item.Notes = strings.TrimSpace(req.Item), req.Done, req.Notes
		if err := db.Model(&item).Select("item", "done", "notes").Updates(&item).Error; err != nil {
			respondError(c, classify(err), "Falha ao atualizar item do checklist")
			return
		}
		c.JSON(http.StatusOK, item)
	}
}

// DeleteChecklistHandler removes a checklist step
func DeleteChecklistHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) { deleteChild(c, db, &domain.ChecklistItem{}, "item do checklist") }
}

// ListAttachmentsHandler returns an order's attachments
func ListAttachmentsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := orderExists(c, db)
		if !ok {
			return
		}
		files := []domain.Attachment{}
		if err := db.Where("service_order_id = ?", id).Order("id asc").Find(&files).Error; err != nil {
			respondError(c, err, "Falha ao listar anexos")
			return
		}
		c.JSON(http.StatusOK, files)
	}
}

// CreateAttachmentHandler uploads the multipart field "arquivo" and links it to an order
func CreateAttachmentHandler(db *gorm.DB, up storage.Uploader, maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !uploadsEnabled(c, up) {
			return
		}
		id, ok := orderExists(c, db)
		if !ok {
			return
		}
		fh, err := receiveFile(c, "arquivo", maxSize, attachmentTypes)
		if err != nil {
			respondError(c, err, "")
			return
		}
		url, contentType, err := storeFile(c.Request.Context(), up, fmt.Sprintf("anexos/os-%d", id), fh)
		if err != nil {
			respondError(c, err, "Falha ao enviar anexo")
			return
		}
		actor := currentUser(c)
		file := domain.Attachment{ServiceOrderID: id, UserID: actor.UserID, FileName: fh.Filename, URL: url, ContentType: contentType, Size: fh.Size}
		if err := db.Create(&file).Error; err != nil {
			respondError(c, classify(err), "Falha ao salvar anexo")
			return
		}
		logrus.WithFields(logrus.Fields{"order_id": id, "attachment_id": file.ID, "actor_id": actor.UserID}).Info("Attachment stored")
		c.JSON(http.StatusCreated, file)
	}
}

// DeleteAttachmentHandler unlinks an attachment. The stored object is left in place.
func DeleteAttachmentHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) { deleteChild(c, db, &domain.Attachment{}, "anexo") }
}
