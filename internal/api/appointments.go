package api

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"oficina/internal/domain"     // Importing domain models
	"oficina/internal/utils"      // Pagination and filters
	"oficina/internal/validation" // Field rules

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

var appointmentStatuses = "oneof=" + strings.Join([]string{
	domain.AppointmentScheduled, domain.AppointmentConfirmed, domain.AppointmentDone, domain.AppointmentCancelled,
}, " ")

// AppointmentRequest is the booking form. Clients booking for themselves may omit cliente_id.
type AppointmentRequest struct {
	ClientID    uint   `json:"cliente_id"`     // Customer
	VehicleID   *uint  `json:"veiculo_id"`     // Vehicle, if known
	EmployeeID  *uint  `json:"funcionario_id"` // Assigned staff
	ScheduledAt string `json:"data_hora"`      // ISO 8601 date and time
	Description string `json:"descricao"`      // Requested work
	Status      string `json:"status"`         // Defaults to agendado
}

func (r AppointmentRequest) rules() []validation.Rule {
	return []validation.Rule{
		{Field: "cliente_id", Value: r.ClientID, Tag: "required", Message: "cliente_id é obrigatório"},
		{Field: "veiculo_id", Value: r.VehicleID, Tag: "omitempty,gt=0", Message: "veiculo_id inválido"},
		{Field: "funcionario_id", Value: r.EmployeeID, Tag: "omitempty,gt=0", Message: "funcionario_id inválido"},
		{Field: "data_hora", Value: r.ScheduledAt, Tag: "required,isodate", Message: "data_hora é obrigatória (ISO 8601)"},
		{Field: "status", Value: r.Status, Tag: "omitempty," + appointmentStatuses, Message: "status inválido"},
	}
}

// checkReferences verifies the client exists and owns the vehicle
func (r AppointmentRequest) checkReferences(db *gorm.DB) error {
	if err := mustExist(db, &domain.Client{}, r.ClientID, "cliente informado não existe"); err != nil {
		return err
	}
	if r.VehicleID != nil {
		var n int64
		if err := db.Model(&domain.Vehicle{}).Where("id = ? AND client_id = ?", *r.VehicleID, r.ClientID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return domain.NewValidationError("veículo não pertence ao cliente informado")
		}
	}
	if r.EmployeeID != nil {
		return mustExist(db, &domain.User{}, *r.EmployeeID, "funcionário informado não existe")
	}
	return nil
}

func (r AppointmentRequest) apply(a *domain.Appointment) {
	a.ClientID = r.ClientID
	a.VehicleID = r.VehicleID
	a.EmployeeID = r.EmployeeID
	if t := optionalDate(r.ScheduledAt); t != nil {
		a.ScheduledAt = *t
	}
	a.Description = strings.TrimSpace(r.Description)
	a.Status = r.Status
	if a.Status == "" {
		a.Status = domain.AppointmentScheduled
	}
}

// ListAppointmentsHandler returns appointments by date, filtered by status,
// cliente_id, funcionario_id, inicio and fim
func ListAppointmentsHandler(db *gorm.DB) gin.HandlerFunc {
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
		if id, ok := queryID(c, "funcionario_id"); ok {
			f.Eq("employee_id", id)
		}
		window.apply(&f, "scheduled_at")
		query := f.Apply(db.Model(&domain.Appointment{}))
		var total int64
		if err := query.Count(&total).Error; err != nil {
			respondError(c, err, "Falha ao contar agendamentos")
			return
		}
		var appointments []domain.Appointment
		err = query.Preload("Client").Preload("Vehicle").Order("scheduled_at asc, id asc").
			Offset(page.Offset).Limit(page.Limit).Find(&appointments).Error
		if err != nil {
			respondError(c, err, "Falha ao listar agendamentos")
			return
		}
		c.JSON(http.StatusOK, utils.NewList(appointments, total, page))
	}
}

// GetAppointmentHandler returns one appointment
func GetAppointmentHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var a domain.Appointment
		if err := db.Preload("Client").Preload("Vehicle").First(&a, id).Error; err != nil {
			respondError(c, classify(err), "Falha ao carregar agendamento")
			return
		}
		c.JSON(http.StatusOK, a)
	}
}

// CreateAppointmentHandler books an appointment. Clients always book for their own profile.
func CreateAppointmentHandler(db *gorm.DB, cache utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AppointmentRequest
		if !bindJSON(c, &req) {
			return
		}
		actor := currentUser(c)
		if !actor.IsStaff() {
			client, err := clientForUser(db, actor.UserID)
			if err != nil {
				respondError(c, err, "Falha ao carregar perfil do cliente")
				return
			}
			if req.ClientID != 0 && req.ClientID != client.ID {
				respondError(c, domain.ErrForbidden, "")
				return
			}
			req.ClientID = client.ID
			req.EmployeeID = nil
			req.Status = ""
		}
		if err := validation.Validate(req.rules()...); err != nil {
			respondError(c, err, "")
			return
		}
		if err := req.checkReferences(db); err != nil {
			respondError(c, err, "Falha ao validar agendamento")
			return
		}
		a := domain.Appointment{CreatedByID: actor.UserID}
		req.apply(&a)
		if err := db.Omit("Client", "Vehicle").Create(&a).Error; err != nil {
			respondError(c, classify(err), "Falha ao criar agendamento")
			return
		}
		logrus.WithFields(logrus.Fields{"appointment_id": a.ID, "client_id": a.ClientID, "actor_id": actor.UserID}).Info("Appointment booked")
		invalidateDashboard(c.Request.Context(), cache)
		c.JSON(http.StatusCreated, a)
	}
}

// UpdateAppointmentHandler replaces an appointment's mutable fields
func UpdateAppointmentHandler(db *gorm.DB, cache utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var req AppointmentRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := validation.Validate(req.rules()...); err != nil {
			respondError(c, err, "")
			return
		}
		var a domain.Appointment
		if err := db.First(&a, id).Error; err != nil {
			respondError(c, classify(err), "Falha ao carregar agendamento")
			return
		}
		if err := req.checkReferences(db); err != nil {
			respondError(c, err, "Falha ao validar agendamento")
			return
		}
		req.apply(&a)
		err := db.Model(&a).Select("client_id", "vehicle_id", "employee_id", "scheduled_at", "description", "status").Updates(&a).Error
		if err != nil {
			respondError(c, classify(err), "Falha ao atualizar agendamento")
			return
		}
		logrus.WithFields(logrus.Fields{"appointment_id": a.ID, "status": a.Status, "actor_id": currentUser(c).UserID}).Info("Appointment updated")
		invalidateDashboard(c.Request.Context(), cache)
		c.JSON(http.StatusOK, a)
	}
}

// DeleteAppointmentHandler removes an appointment
func DeleteAppointmentHandler(db *gorm.DB, cache utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		res := db.Delete(&domain.Appointment{}, id)
		if res.Error != nil {
			respondError(c, classify(res.Error), "Falha ao excluir agendamento")
			return
		}
		if res.RowsAffected == 0 {
			respondError(c, domain.ErrNotFound, "")
			return
		}
		logrus.WithFields(logrus.Fields{"appointment_id": id, "actor_id": currentUser(c).UserID}).Info("Appointment deleted")
		invalidateDashboard(c.Request.Context(), cache)
		c.Status(http.StatusNoContent)
	}
}
