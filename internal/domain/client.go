package domain

import "time"

// Client Model, optionally linked 1:1 to a login User
type Client struct {
	ID        uint      `gorm:"primaryKey" json:"id"`                          // Primary key
	UserID    *uint     `gorm:"uniqueIndex" json:"usuario_id"`                 // Login account, nil when the client has none
	Name      string    `gorm:"size:120;not null" json:"nome"`                 // Full name or company name
	Email     *string   `gorm:"size:160;uniqueIndex" json:"email"`             // Unique when present
	TaxID     *string   `gorm:"size:20;uniqueIndex" json:"cpf_cnpj"`           // CPF or CNPJ, unique when present
	Phone     string    `gorm:"size:30" json:"telefone"`                       // Contact phone
	Address   string    `gorm:"size:255" json:"endereco"`                      // Postal address
	Notes     string    `gorm:"type:text" json:"observacoes"`                  // Free-form notes
	CreatedAt time.Time `json:"created_at"`                                    // Timestamp of creation
	UpdatedAt time.Time `json:"updated_at"`                                    // Timestamp of last change
	Vehicles  []Vehicle `gorm:"foreignKey:ClientID" json:"veiculos,omitempty"` // Owned vehicles, loaded on detail reads
}

// Vehicle Model, owned by exactly one Client
type Vehicle struct {
	ID        uint      `gorm:"primaryKey" json:"id"`                      // Primary key
	ClientID  uint      `gorm:"index;not null" json:"cliente_id"`          // Owner
	Plate     string    `gorm:"size:10;uniqueIndex;not null" json:"placa"` // License plate, stored upper-case
	Make      string    `gorm:"size:60;not null" json:"marca"`             // Manufacturer
	Model     string    `gorm:"size:80;not null" json:"modelo"`            // Model name
	Year      int       `json:"ano"`                                       // Model year
	Color     string    `gorm:"size:40" json:"cor"`                        // Color
	Mileage   int       `json:"km"`                                        // Odometer reading
	CreatedAt time.Time `json:"created_at"`                                // Timestamp of creation
	UpdatedAt time.Time `json:"updated_at"`                                // Timestamp of last change
	Client    *Client   `json:"cliente,omitempty"`                         // Owner, loaded on detail reads
}
