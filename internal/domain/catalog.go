package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Service Model: a billable labour item in the catalog
type Service struct {
	ID               uint            `gorm:"primaryKey" json:"id"`                     // Primary key
	Name             string          `gorm:"size:120;not null" json:"nome"`            // Display name
	Description      string          `gorm:"type:text" json:"descricao"`               // Details
	Price            decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"preco"` // Default unit price
	EstimatedMinutes int             `json:"tempo_estimado"`                           // Expected duration
	Active           bool            `gorm:"not null" json:"ativo"`                    // Hidden from pickers when false
	CreatedAt        time.Time       `json:"created_at"`                               // Timestamp of creation
	UpdatedAt        time.Time       `json:"updated_at"`                               // Timestamp of last change
}

// Product Model: a part sold through order items
type Product struct {
	ID          uint            `gorm:"primaryKey" json:"id"`                     // Primary key
	Name        string          `gorm:"size:120;not null" json:"nome"`            // Display name
	Description string          `gorm:"type:text" json:"descricao"`               // Details
	SKU         *string         `gorm:"size:60;uniqueIndex" json:"codigo"`        // Supplier code, unique when present
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"preco"` // Default unit price
	Stock       int             `gorm:"not null;default:0" json:"estoque"`        // Units on hand
	CreatedAt   time.Time       `json:"created_at"`                               // Timestamp of creation
	UpdatedAt   time.Time       `json:"updated_at"`                               // Timestamp of last change
}
