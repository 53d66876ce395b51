package domain

import "time"

// Appointment statuses
const (
	AppointmentScheduled = "agendado"
	AppointmentConfirmed = "confirmado"
	AppointmentDone      = "realizado"
	AppointmentCancelled = "cancelado"
)

// Appointment Model: a booking for future work, kept apart from service orders
type Appointment struct {
	ID          uint      `gorm:"primaryKey" json:"id"`             // Primary key
	ClientID    uint      `gorm:"index;not null" json:"cliente_id"` // Customer
	VehicleID   *uint     `gorm:"index" json:"veiculo_id"`          // Vehicle, if known
	EmployeeID  *uint     `gorm:"index" json:"funcionario_id"`      // Assigned staff, if any
	ScheduledAt time.Time `gorm:"index;not null" json:"data_hora"`  // Booked date and time
	Description string    `gorm:"type:text" json:"descricao"`       // Requested work
	Status      string    `gorm:"size:20;not null" json:"status"`   // agendado, confirmado, realizado, cancelado
	CreatedByID uint      `gorm:"index" json:"criado_por"`          // User who booked it
	CreatedAt   time.Time `json:"created_at"`                       // Timestamp of creation
	UpdatedAt   time.Time `json:"updated_at"`                       // Timestamp of last change
	Client      *Client   `json:"cliente,omitempty"`                // Loaded on reads
	Vehicle     *Vehicle  `json:"veiculo,omitempty"`                // Loaded on reads
}
