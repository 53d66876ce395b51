package api

import (
	"net/http" // HTTP status codes

	"oficina/internal/domain" // Importing domain models
	"oficina/internal/utils"  // Pagination

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// clientForUser resolves the client profile linked to a login
func clientForUser(db *gorm.DB, userID uint) (*domain.Client, error) {
	var client domain.Client
	if err := db.Where("user_id = ?", userID).First(&client).Error; err != nil {
		return nil, classify(err)
	}
	return &client, nil
}

// myClient resolves the caller's client profile, answering 404 when there is none
func myClient(c *gin.Context, db *gorm.DB) (*domain.Client, bool) {
	client, err := clientForUser(db, currentUser(c).UserID)
	if err != nil {
		respondError(c, err, "Falha ao carregar perfil do cliente")
		return nil, false
	}
	return client, true
}

// MyOrdersHandler returns the caller's service orders, most recent first
func MyOrdersHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		client, ok := myClient(c, db)
		if !ok {
			return
		}
		page := utils.ParsePage(c)
		query := db.Model(&domain.ServiceOrder{}).Where("client_id = ?", client.ID)
		var total int64
		if err := query.Count(&total).Error; err != nil {
			respondError(c, err, "Falha ao contar ordens de serviço")
			return
		}
		var orders []domain.ServiceOrder
		err := query.Preload("Vehicle").Preload("Items").Order("created_at desc, id desc").
			Offset(page.Offset).Limit(page.Limit).Find(&orders).Error
		if err != nil {
			respondError(c, err, "Falha ao listar ordens de serviço")
			return
		}
		c.JSON(http.StatusOK, utils.NewList(orders, total, page))
	}
}

// MyVehiclesHandler returns the caller's vehicles
func MyVehiclesHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		client, ok := myClient(c, db)
		if !ok {
			return
		}
		vehicles := []domain.Vehicle{}
		if err := db.Where("client_id = ?", client.ID).Order("id asc").Find(&vehicles).Error; err != nil {
			respondError(c, err, "Falha ao listar veículos")
			return
		}
		c.JSON(http.StatusOK, vehicles)
	}
}

// MyAppointmentsHandler returns the caller's appointments by date
func MyAppointmentsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		client, ok := myClient(c, db)
		if !ok {
			return
		}
		appointments := []domain.Appointment{}
		err := db.Preload("Vehicle").Where("client_id = ?", client.ID).Order("scheduled_at desc, id desc").Find(&appointments).Error
		if err != nil {
			respondError(c, err, "Falha ao listar agendamentos")
			return
		}
		c.JSON(http.StatusOK, appointments)
	}
}
