package api

import (
	"net/http" // HTTP status codes
	"time"     // Timestamps

	"oficina/internal/domain" // Importing domain models
	"oficina/internal/utils"  // View tokens

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/shopspring/decimal" // Decimal arithmetic for money
	"github.com/sirupsen/logrus"    // Logging library
	"gorm.io/gorm"                  // GORM ORM library
)

// PublicOrder is the read-only projection of an order shown through a public link
type PublicOrder struct {
	ID          uint                `json:"id"`
	Status      string              `json:"status"`
	Total       decimal.Decimal     `json:"valor_total"`
	ScheduledAt *time.Time          `json:"data_agendada"`
	Problem     string              `json:"descricao_problema"`
	Diagnosis   string              `json:"diagnostico"`
	CreatedAt   time.Time           `json:"created_at"`
	Client      string              `json:"cliente"`
	Vehicle     PublicVehicle       `json:"veiculo"`
	Items       []domain.OrderItem  `json:"itens"`
	Updates     []PublicOrderUpdate `json:"atualizacoes"`
}

// PublicVehicle identifies the vehicle without owner details
type PublicVehicle struct {
	Plate string `json:"placa"`
	Make  string `json:"marca"`
	Model string `json:"modelo"`
	Year  int    `json:"ano"`
}

// PublicOrderUpdate is a progress entry without its author
type PublicOrderUpdate struct {
	Type        string    `json:"tipo_atualizacao"`
	Description string    `json:"descricao"`
	NewStatus   string    `json:"novo_status"`
	CreatedAt   time.Time `json:"created_at"`
}

func newPublicOrder(o *domain.ServiceOrder) PublicOrder {
	p := PublicOrder{
		ID: o.ID, Status: o.Status, Total: o.Total, ScheduledAt: o.ScheduledAt,
		Problem: o.Problem, Diagnosis: o.Diagnosis, CreatedAt: o.CreatedAt,
		Items: o.Items, Updates: make([]PublicOrderUpdate, 0, len(o.Updates)),
	}
	if p.Items == nil {
		p.Items = []domain.OrderItem{}
	}
	if o.Client != nil {
		p.Client = o.Client.Name
	}
	if o.Vehicle != nil {
		p.Vehicle = PublicVehicle{Plate: o.Vehicle.Plate, Make: o.Vehicle.Make, Model: o.Vehicle.Model, Year: o.Vehicle.Year}
	}
	for _, u := range o.Updates {
		p.Updates = append(p.Updates, PublicOrderUpdate{Type: u.Type, Description: u.Description, NewStatus: u.NewStatus, CreatedAt: u.CreatedAt})
	}
	return p
}

// PublicOrderHandler serves one order to anyone holding a valid view token.
// Bad signatures, expired tokens and vanished orders all get the same answer.
func PublicOrderHandler(db *gorm.DB, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, err := utils.ParseViewToken(c.Param("token"), secret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Link inválido ou expirado"})
			return
		}
		order, err := loadOrder(db, orderID)
		if err != nil {
			logrus.WithError(err).WithField("order_id", orderID).Info("Public link for missing order")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Link inválido ou expirado"})
			return
		}
		c.JSON(http.StatusOK, newPublicOrder(order))
	}
}
