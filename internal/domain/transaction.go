package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ledger directions, shared by categories and transactions
const (
	KindIncome  = "entrada" // Credit
	KindExpense = "saida"   // Debit
)

// Category Model: a named grouping for ledger entries
type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`         // Primary key
	Name      string    `gorm:"size:80;not null" json:"nome"` // Display name
	Kind      string    `gorm:"size:10;not null" json:"tipo"` // entrada or saida
	CreatedAt time.Time `json:"created_at"`                   // Timestamp of creation
	UpdatedAt time.Time `json:"updated_at"`                   // Timestamp of last change
}

// Transaction Model: a financial ledger entry
type Transaction struct {
	ID             uint            `gorm:"primaryKey" json:"id"`                     // Primary key
	Kind           string          `gorm:"size:10;not null;index" json:"tipo"`       // entrada or saida
	Amount         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"valor"` // Always positive, direction comes from Kind
	Description    string          `gorm:"size:255" json:"descricao"`                // What it was for
	CategoryID     uint            `gorm:"index;not null" json:"categoria_id"`       // Category, must exist
	ServiceOrderID *uint           `gorm:"index" json:"ordem_servico_id"`            // Optional order this pays for
	Date           time.Time       `gorm:"index;not null" json:"data"`               // Date the money moved
	UserID         uint            `gorm:"index" json:"usuario_id"`                  // Who recorded it
	CreatedAt      time.Time       `json:"created_at"`                               // Timestamp of creation
	UpdatedAt      time.Time       `json:"updated_at"`                               // Timestamp of last change
	Category       *Category       `json:"categoria,omitempty"`                      // Loaded on reads
}
