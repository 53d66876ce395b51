package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Conventional service order statuses. Status is free text: any value is
// accepted and no transition order is enforced.
const (
	StatusOpen         = "aberta"
	StatusScheduled    = "agendada"
	StatusInProgress   = "em andamento"
	StatusWaitingParts = "aguardando peças"
	StatusDone         = "concluída"
	StatusCancelled    = "cancelada"
)

// OrderStatuses lists the conventional vocabulary, in lifecycle order
var OrderStatuses = []string{StatusOpen, StatusScheduled, StatusInProgress, StatusWaitingParts, StatusDone, StatusCancelled}

// UpdateTypeStatus marks an OrderUpdate that also changes the order status
const UpdateTypeStatus = "Status"

// IsStatusUpdate reports whether an update of type t with new status s must change the order status
func IsStatusUpdate(t, s string) bool {
	return strings.EqualFold(strings.TrimSpace(t), UpdateTypeStatus) && strings.TrimSpace(s) != ""
}

// ServiceOrder Model (ordem de serviço)
type ServiceOrder struct {
	ID           uint            `gorm:"primaryKey" json:"id"`                                     // Primary key
	ClientID     uint            `gorm:"index;not null" json:"cliente_id"`                         // Customer
	VehicleID    uint            `gorm:"index;not null" json:"veiculo_id"`                         // Vehicle being serviced
	EmployeeID   *uint           `gorm:"index" json:"funcionario_id"`                              // Assigned technician
	Status       string          `gorm:"size:40;not null;index" json:"status"`                     // Free-text status
	Total        decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"valor_total"` // SUM(items.subtotal), maintained by the item writers
	ScheduledAt  *time.Time      `json:"data_agendada"`                                            // Planned service date
	Problem      string          `gorm:"type:text" json:"descricao_problema"`                      // Customer complaint
	Diagnosis    string          `gorm:"type:text" json:"diagnostico"`                             // Technician findings
	Notes        string          `gorm:"type:text" json:"observacoes"`                             // Free-form notes
	Mileage      int             `json:"km_entrada"`                                               // Odometer at intake
	SignatureURL string          `gorm:"size:500" json:"assinatura_url"`                           // Customer signature image
	CreatedAt    time.Time       `gorm:"index" json:"created_at"`                                  // Timestamp of creation
	UpdatedAt    time.Time       `json:"updated_at"`                                               // Timestamp of last change
	Client       *Client         `json:"cliente,omitempty"`                                        // Loaded on detail reads
	Vehicle      *Vehicle        `json:"veiculo,omitempty"`                                        // Loaded on detail reads
	Employee     *User           `gorm:"foreignKey:EmployeeID" json:"funcionario,omitempty"`       // Loaded on detail reads
	Items        []OrderItem     `json:"itens,omitempty"`                                          // Loaded on detail reads
	Updates      []OrderUpdate   `json:"atualizacoes,omitempty"`                                   // Loaded on detail reads
}

// OrderItem Model: a billable line of a ServiceOrder
type OrderItem struct {
	ID             uint            `gorm:"primaryKey" json:"id"`                              // Primary key
	ServiceOrderID uint            `gorm:"index;not null" json:"ordem_servico_id"`            // Parent order
	ServiceID      *uint           `gorm:"index" json:"servico_id"`                           // Catalog service, if any
	ProductID      *uint           `gorm:"index" json:"produto_id"`                           // Catalog product, if any
	Description    string          `gorm:"size:255;not null" json:"descricao"`                // Line description
	Quantity       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"quantidade"`     // Units
	UnitPrice      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"valor_unitario"` // Price per unit
	Subtotal       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`       // Quantity * UnitPrice
	CreatedAt      time.Time       `json:"created_at"`                                        // Timestamp of creation
	UpdatedAt      time.Time       `json:"updated_at"`                                        // Timestamp of last change
}

// ComputeSubtotal sets Subtotal from Quantity and UnitPrice, rounded to cents
func (i *OrderItem) ComputeSubtotal() {
	i.Subtotal = i.Quantity.Mul(i.UnitPrice).Round(2)
}

// OrderUpdate Model: an append-only progress entry on a ServiceOrder
type OrderUpdate struct {
	ID             uint      `gorm:"primaryKey" json:"id"`                     // Primary key
	ServiceOrderID uint      `gorm:"index;not null" json:"ordem_servico_id"`   // Parent order
	UserID         uint      `gorm:"index;not null" json:"usuario_id"`         // Author
	Type           string    `gorm:"size:40;not null" json:"tipo_atualizacao"` // Status, Diagnóstico, Observação...
	Description    string    `gorm:"type:text" json:"descricao"`               // What happened
	NewStatus      string    `gorm:"size:40" json:"novo_status"`               // Set for Status updates
	CreatedAt      time.Time `gorm:"index" json:"created_at"`                  // Timestamp of creation
	User           *User     `json:"usuario,omitempty"`                        // Loaded on list reads
}
