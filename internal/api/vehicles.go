package api

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"oficina/internal/audit"      // History recorder
	"oficina/internal/domain"     // Importing domain models
	"oficina/internal/utils"      // Pagination and filters
	"oficina/internal/validation" // Field rules

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// VehicleRequest is the form for vehicles
type VehicleRequest struct {
	ClientID uint   `json:"cliente_id"` // Owner
	Plate    string `json:"placa"`      // License plate
	Make     string `json:"marca"`      // Manufacturer
	Model    string `json:"modelo"`     // Model name
	Year     int    `json:"ano"`        // Model year
	Color    string `json:"cor"`        // Color
	Mileage  int    `json:"km"`         // Odometer reading
}

func (r VehicleRequest) rules() []validation.Rule {
	return []validation.Rule{
		{Field: "cliente_id", Value: r.ClientID, Tag: "required", Message: "cliente_id é obrigatório"},
		{Field: "placa", Value: normalizePlate(r.Plate), Tag: "min=7,max=8", Message: "placa deve ter 7 caracteres"},
		{Field: "marca", Value: r.Make, Tag: "notblank", Message: "marca é obrigatória"},
		{Field: "modelo", Value: r.Model, Tag: "notblank", Message: "modelo é obrigatório"},
		{Field: "ano", Value: r.Year, Tag: "omitempty,min=1900,max=2100", Message: "ano inválido"},
		{Field: "km", Value: r.Mileage, Tag: "min=0", Message: "km não pode ser negativo"},
	}
}

func (r VehicleRequest) apply(v *domain.Vehicle) {
	v.ClientID = r.ClientID
	v.Plate = normalizePlate(r.Plate)
	v.Make = strings.TrimSpace(r.Make)
	v.Model = strings.TrimSpace(r.Model)
	v.Year = r.Year
	v.Color = strings.TrimSpace(r.Color)
	v.Mileage = r.Mileage
}

// normalizePlate upper-cases a plate and drops separators
func normalizePlate(s string) string {
	return strings.ToUpper(strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(s)))
}

// mustExist answers a missing referenced row with a validation message instead of 404
func mustExist(db *gorm.DB, model any, id uint, msg string) error {
	err := db.Select("id").First(model, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.NewValidationError(msg)
	}
	return err
}

// ListVehiclesHandler returns vehicles filtered by cliente_id, placa and busca
func ListVehiclesHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		page := utils.ParsePage(c)
		var f utils.Filter
		if id, ok := queryID(c, "cliente_id"); ok {
			f.Eq("client_id", id)
		}
		f.WhereIf(c.Query("placa") != "", "plate = ?", normalizePlate(c.Query("placa")))
		if q := strings.TrimSpace(c.Query("busca")); q != "" {
			like := "%" + q + "%"
			f.Where("(plate LIKE ? OR make LIKE ? OR model LIKE ?)", like, like, like)
		}
		query := f.Apply(db.Model(&domain.Vehicle{}))
		var total int64
		if err := query.Count(&total).Error; err != nil {
			respondError(c, err, "Falha ao contar veículos")
			return
		}
		var vehicles []domain.Vehicle
		if err := query.Preload("Client").Order("plate asc").Offset(page.Offset).Limit(page.Limit).Find(&vehicles).Error; err != nil {
			respondError(c, err, "Falha ao listar veículos")
			return
		}
		c.JSON(http.StatusOK, utils.NewList(vehicles, total, page))
	}
}

// GetVehicleHandler returns one vehicle with its owner
func GetVehicleHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var vehicle domain.Vehicle
		if err := db.Preload("Client").First(&vehicle, id).Error; err != nil {
			respondError(c, classify(err), "Falha ao carregar veículo")
			return
		}
		c.JSON(http.StatusOK, vehicle)
	}
}

// CreateVehicleHandler registers a vehicle for an existing client
func CreateVehicleHandler(db *gorm.DB, rec *audit.Recorder, cache utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req VehicleRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := validation.Validate(req.rules()...); err != nil {
			respondError(c, err, "")
			return
		}
		if err := mustExist(db, &domain.Client{}, req.ClientID, "cliente informado não existe"); err != nil {
			respondError(c, err, "Falha ao validar cliente")
			return
		}
		var vehicle domain.Vehicle
		req.apply(&vehicle)
		if err := db.Create(&vehicle).Error; err != nil {
			respondError(c, classify(err), "Falha ao criar veículo")
			return
		}
		actor := currentUser(c)
		rec.Record(c.Request.Context(), audit.Event{ActorID: actor.UserID, Action: audit.ActionCreate, Entity: audit.EntityVehicle, EntityID: vehicle.ID, After: vehicle})
		logrus.WithFields(logrus.Fields{"vehicle_id": vehicle.ID, "client_id": vehicle.ClientID, "actor_id": actor.UserID}).Info("Vehicle created")
		invalidateDashboard(c.Request.Context(), cache)
		c.JSON(http.StatusCreated, vehicle)
	}
}

// UpdateVehicleHandler replaces a vehicle's mutable fields
func UpdateVehicleHandler(db *gorm.DB, rec *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var req VehicleRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := validation.Validate(req.rules()...); err != nil {
			respondError(c, err, "")
			return
		}
		var vehicle domain.Vehicle
		if err := db.First(&vehicle, id).Error; err != nil {
			respondError(c, classify(err), "Falha ao carregar veículo")
			return
		}
		if err := mustExist(db, &domain.Client{}, req.ClientID, "cliente informado não existe"); err != nil {
			respondError(c, err, "Falha ao validar cliente")
			return
		}
		before := vehicle
		req.apply(&vehicle)
		err := db.Model(&vehicle).Select("client_id", "plate", "make", "model", "year", "color", "mileage").Updates(&vehicle).Error
		if err != nil {
			respondError(c, classify(err), "Falha ao atualizar veículo")
			return
		}
		rec.Record(c.Request.Context(), audit.Event{ActorID: currentUser(c).UserID, Action: audit.ActionUpdate, Entity: audit.EntityVehicle, EntityID: vehicle.ID, Before: before, After: vehicle})
		c.JSON(http.StatusOK, vehicle)
	}
}

// DeleteVehicleHandler removes a vehicle that no order or appointment references
func DeleteVehicleHandler(db *gorm.DB, rec *audit.Recorder, cache utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var vehicle domain.Vehicle
		if err := db.First(&vehicle, id).Error; err != nil {
			respondError(c, classify(err), "Falha ao carregar veículo")
			return
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := ensureUnreferenced(tx, "vehicle_id = ?", id, &domain.ServiceOrder{}, &domain.Appointment{}); err != nil {
				return err
			}
			return classify(tx.Delete(&vehicle).Error)
		})
		if err != nil {
			respondError(c, err, "Falha ao excluir veículo")
			return
		}
		rec.Record(c.Request.Context(), audit.Event{ActorID: currentUser(c).UserID, Action: audit.ActionDelete, Entity: audit.EntityVehicle, EntityID: id, Before: vehicle})
		invalidateDashboard(c.Request.Context(), cache)
		c.Status(http.StatusNoContent)
	}
}
