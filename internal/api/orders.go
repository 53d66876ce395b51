package api

import (
	"bytes"    // PDF buffer
	"errors"   // Error inspection
	"fmt"      // Header formatting
	"net/http" // HTTP status codes
	"strings"  // String manipulation
	"time"     // Link expiry

	"oficina/internal/audit"      // History recorder
	"oficina/internal/domain"     // Importing domain models
	"oficina/internal/mailer"     // Outbound email
	"oficina/internal/report"     // PDF rendering
	"oficina/internal/service"    // Transactional writes
	"oficina/internal/storage"    // Object storage
	"oficina/internal/utils"      // Pagination, filters and tokens
	"oficina/internal/validation" // Field rules

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// OrderRequest is the form for service orders. The total is derived from items and never accepted.
type OrderRequest struct {
	ClientID    uint   `json:"cliente_id"`         // Customer
	VehicleID   uint   `json:"veiculo_id"`         // Vehicle being serviced
	EmployeeID  *uint  `json:"funcionario_id"`     // Assigned technician
	Status      string `json:"status"`             // Free text, defaults to aberta
	ScheduledAt string `json:"data_agendada"`      // ISO 8601 date
	Problem     string `json:"descricao_problema"` // Customer complaint
	Diagnosis   string `json:"diagnostico"`        // Technician findings
	Notes       string `json:"observacoes"`        // Free-form notes
	Mileage     int    `json:"km_entrada"`         // Odometer at intake
}

func (r OrderRequest) rules() []validation.Rule {
	return []validation.Rule{
		{Field: "cliente_id", Value: r.ClientID, Tag: "required", Message: "cliente_id é obrigatório"},
		{Field: "veiculo_id", Value: r.VehicleID, Tag: "required", Message: "veiculo_id é obrigatório"},
		{Field: "funcionario_id", Value: r.EmployeeID, Tag: "omitempty,gt=0", Message: "funcionario_id inválido"},
		{Field: "status", Value: r.Status, Tag: "max=40", Message: "status deve ter até 40 caracteres"},
		{Field: "data_agendada", Value: r.ScheduledAt, Tag: "omitempty,isodate", Message: "data_agendada deve ser uma data ISO 8601"},
		{Field: "descricao_problema", Value: r.Problem, Tag: "notblank", Message: "descricao_problema é obrigatória"},
		{Field: "km_entrada", Value: r.Mileage, Tag: "min=0", Message: "km_entrada não pode ser negativo"},
	}
}

// checkReferences validates that the client, vehicle and employee exist and fit together
func (r OrderRequest) checkReferences(db *gorm.DB) error {
	var vehicle domain.Vehicle
	if err := db.First(&vehicle, r.VehicleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.NewValidationError("veículo informado não existe")
		}
		return err
	}
	if vehicle.ClientID != r.ClientID {
		return domain.NewValidationError("veículo não pertence ao cliente informado")
	}
	if r.EmployeeID != nil {
		var employee domain.User
		if err := db.First(&employee, *r.EmployeeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NewValidationError("funcionário informado não existe")
			}
			return err
		}
		if !employee.Identity().IsStaff() {
			return domain.NewValidationError("funcionario_id deve ser um funcionário")
		}
	}
	return nil
}

func (r OrderRequest) apply(o *domain.ServiceOrder) {
	o.ClientID = r.ClientID
	o.VehicleID = r.VehicleID
	o.EmployeeID = r.EmployeeID
	o.Status = strings.TrimSpace(r.Status)
	if o.Status == "" {
		o.Status = domain.StatusOpen
	}
	o.ScheduledAt = optionalDate(r.ScheduledAt)
	o.Problem = strings.TrimSpace(r.Problem)
	o.Diagnosis = r.Diagnosis
	o.Notes = r.Notes
	o.Mileage = r.Mileage
}

// loadOrder reads an order with everything shown on its detail page
func loadOrder(db *gorm.DB, id uint) (*domain.ServiceOrder, error) {
	var order domain.ServiceOrder
	err := db.Preload("Client").Preload("Vehicle").Preload("Employee").
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("id asc") }).
		Preload("Updates", func(tx *gorm.DB) *gorm.DB { return tx.Order("created_at asc, id asc") }).
		Preload("Updates.User").
		First(&order, id).Error
	if err != nil {
		return nil, classify(err)
	}
	return &order, nil
}

// ListOrdersHandler returns orders, most recent first, filtered by status,
// cliente_id, veiculo_id, funcionario_id, inicio and fim
func ListOrdersHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		page := utils.ParsePage(c)
		window, err := parseDateRange(c)
		if err != nil {
			respondError(c, err, "")
			return
		}
		var f utils.Filter
		f.WhereIf(c.Query("status") != "", "status = ?", c.Query("status"))
		if id, ok := queryID(c, "cliente_id"); ok {
			f.Eq("client_id", id)
		}
		if id, ok := queryID(c, "veiculo_id"); ok {
			f.Eq("vehicle_id", id)
		}
		if id, ok := queryID(c, "funcionario_id"); ok {
			f.Eq("employee_id", id)
		}
		window.apply(&f, "created_at")
		query := f.Apply(db.Model(&domain.ServiceOrder{}))
		var total int64
		if err := query.Count(&total).Error; err != nil {
			respondError(c, err, "Falha ao contar ordens de serviço")
			return
		}
		var orders []domain.ServiceOrder
		err = query.Preload("Client").Preload("Vehicle").
			Order("created_at desc, id desc").Offset(page.Offset).Limit(page.Limit).Find(&orders).Error
		if err != nil {
			respondError(c, err, "Falha ao listar ordens de serviço")
			return
		}
		c.JSON(http.StatusOK, utils.NewList(orders, total, page))
	}
}

// GetOrderHandler returns one order with client, vehicle, employee, items and updates
func GetOrderHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		order, err := loadOrder(db, id)
		if err != nil {
			respondError(c, err, "Falha ao carregar ordem de serviço")
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

// CreateOrderHandler opens a service order with a zero total
func CreateOrderHandler(db *gorm.DB, rec *audit.Recorder, cache utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req OrderRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := validation.Validate(req.rules()...); err != nil {
			respondError(c, err, "")
			return
		}
		if err := req.checkReferences(db); err != nil {
			respondError(c, err, "Falha ao validar ordem de serviço")
			return
		}
		var order domain.ServiceOrder
		req.apply(&order)
		if err := db.Omit("Client", "Vehicle", "Employee", "Items", "Updates").Create(&order).Error; err != nil {
			respondError(c, classify(err), "Falha ao criar ordem de serviço")
			return
		}
		actor := currentUser(c)
		rec.Record(c.Request.Context(), audit.Event{ActorID: actor.UserID, Action: audit.ActionCreate, Entity: audit.EntityServiceOrder, EntityID: order.ID, After: order})
		invalidateReports(c.Request.Context(), cache)
		logrus.WithFields(logrus.Fields{"order_id": order.ID, "client_id": order.ClientID, "actor_id": actor.UserID}).Info("Service order created")
		c.JSON(http.StatusCreated, order)
	}
}

// UpdateOrderHandler replaces an order's mutable fields. The total stays derived from items.
func UpdateOrderHandler(db *gorm.DB, rec *audit.Recorder, cache utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var req OrderRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := validation.Validate(req.rules()...); err != nil {
			respondError(c, err, "")
			return
		}
		var order domain.ServiceOrder
		if err := db.First(&order, id).Error; err != nil {
			respondError(c, classify(err), "Falha ao carregar ordem de serviço")
			return
		}
		if err := req.checkReferences(db); err != nil {
			respondError(c, err, "Falha ao validar ordem de serviço")
			return
		}
		before := order
		req.apply(&order)
		err := db.Model(&order).
			Select("client_id", "vehicle_id", "employee_id", "status", "scheduled_at", "problem", "diagnosis", "notes", "mileage").
			Updates(&order).Error
		if err != nil {
			respondError(c, classify(err), "Falha ao atualizar ordem de serviço")
			return
		}
		actor := currentUser(c)
		rec.Record(c.Request.Context(), audit.Event{ActorID: actor.UserID, Action: audit.ActionUpdate, Entity: audit.EntityServiceOrder, EntityID: order.ID, Before: before, After: order})
		invalidateReports(c.Request.Context(), cache)
		logrus.WithFields(logrus.Fields{"order_id": order.ID, "actor_id": actor.UserID}).Info("Service order updated")
		c.JSON(http.StatusOK, order)
	}
}

// DeleteOrderHandler removes an order and everything attached to it
func DeleteOrderHandler(orders *service.Orders, rec *audit.Recorder, cache utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		order, err := orders.DeleteOrder(c.Request.Context(), id)
		actor := currentUser(c)
		if err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{"order_id": id, "actor_id": actor.UserID}).Warn("Service order deletion failed")
			respondError(c, err, "Falha ao excluir ordem de serviço")
			return
		}
		rec.Record(c.Request.Context(), audit.Event{ActorID: actor.UserID, Action: audit.ActionDelete, Entity: audit.EntityServiceOrder, EntityID: id, Before: order})
		invalidateReports(c.Request.Context(), cache)
		logrus.WithFields(logrus.Fields{"order_id": id, "actor_id": actor.UserID}).Info("Service order deleted")
		c.Status(http.StatusNoContent)
	}
}

// OrderPDFHandler streams a printable summary of one order
func OrderPDFHandler(db *gorm.DB, shop string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		order, err := loadOrder(db, id)
		if err != nil {
			respondError(c, err, "Falha ao carregar ordem de serviço")
			return
		}
		var buf bytes.Buffer
		if err := report.OrderPDF(&buf, shop, order); err != nil {
			respondError(c, err, "Falha ao gerar PDF")
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="os-%d.pdf"`, order.ID))
		c.Data(http.StatusOK, "application/pdf", buf.Bytes())
	}
}

// PublicLinkRequest asks for the link to be emailed to the client
type PublicLinkRequest struct {
	SendEmail bool `json:"enviar_email"` // Email the link to the client
}

// PublicLinkConfig carries what the public link handler needs from configuration
type PublicLinkConfig struct {
	Secret      string
	TTL         time.Duration
	FrontendURL string
	Shop        string
}

// PublicLinkHandler issues a signed, time-limited read-only link to one order
func PublicLinkHandler(db *gorm.DB, mail mailer.Sender, cfg PublicLinkConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var req PublicLinkRequest
		if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
			return
		}
		var order domain.ServiceOrder
		if err := db.Preload("Client").First(&order, id).Error; err != nil {
			respondError(c, classify(err), "Falha ao carregar ordem de serviço")
			return
		}
		token, expires, err := utils.GenerateViewToken(order.ID, cfg.Secret, cfg.TTL)
		if err != nil {
			respondError(c, err, "Falha ao gerar link")
			return
		}
		url := strings.TrimRight(cfg.FrontendURL, "/") + "/publico/ordens-servico/" + token
		sent := false
		if req.SendEmail {
			sent = emailPublicLink(c, mail, cfg.Shop, &order, url, expires)
		}
		logrus.WithFields(logrus.Fields{"order_id": order.ID, "actor_id": currentUser(c).UserID, "emailed": sent}).Info("Public link issued")
		c.JSON(http.StatusCreated, gin.H{"token": token, "url": url, "expira_em": expires, "email_enviado": sent})
	}
}

// emailPublicLink sends the link to the client. Failures are logged and reported as not sent.
func emailPublicLink(c *gin.Context, mail mailer.Sender, shop string, order *domain.ServiceOrder, url string, expires time.Time) bool {
	if mail == nil || order.Client == nil || order.Client.Email == nil {
		return false
	}
	body, err := mailer.PublicLinkBody(mailer.PublicLinkData{
		Shop: shop, Client: order.Client.Name, OrderID: order.ID, URL: url, Expires: expires.Format("02/01/2006 15:04"),
	})
	if err == nil {
		err = mail.Send(c.Request.Context(), *order.Client.Email, fmt.Sprintf("%s: ordem de serviço #%d", shop, order.ID), body)
	}
	if err != nil {
		logrus.WithError(err).WithField("order_id", order.ID).Warn("Public link email not sent")
		return false
	}
	return true
}

// UploadSignatureHandler stores the customer's signature image on an order.
// Clients may only sign orders of their own profile.
func UploadSignatureHandler(db *gorm.DB, up storage.Uploader, maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		if !uploadsEnabled(c, up) {
			return
		}
		var order domain.ServiceOrder
		if err := db.First(&order, id).Error; err != nil {
			respondError(c, classify(err), "Falha ao carregar ordem de serviço")
			return
		}
		actor := currentUser(c)
		if !actor.IsStaff() {
			client, err := clientForUser(db, actor.UserID)
			if err != nil || client.ID != order.ClientID {
				logrus.WithFields(logrus.Fields{"order_id": id, "user_id": actor.UserID}).Warn("Signature refused for foreign order")
				respondError(c, domain.ErrForbidden, "")
				return
			}
		}
		fh, err := receiveFile(c, "assinatura", maxSize, imageTypes)
		if err != nil {
			respondError(c, err, "")
			return
		}
		url, _, err := storeFile(c.Request.Context(), up, fmt.Sprintf("assinaturas/os-%d", order.ID), fh)
		if err != nil {
			respondError(c, err, "Falha ao enviar assinatura")
			return
		}
		if err := db.Model(&order).Update("signature_url", url).Error; err != nil {
			respondError(c, classify(err), "Falha ao salvar assinatura")
			return
		}
		logrus.WithFields(logrus.Fields{"order_id": order.ID, "user_id": actor.UserID}).Info("Signature stored")
		c.JSON(http.StatusOK, gin.H{"assinatura_url": url})
	}
}
