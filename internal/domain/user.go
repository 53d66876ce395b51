package domain

import "time"

// User Model
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`                       // Primary key
	Name      string    `gorm:"size:120;not null" json:"nome"`              // Display name, carried in tokens
	Email     string    `gorm:"size:160;uniqueIndex;not null" json:"email"` // Unique login
	Password  string    `gorm:"size:100;not null" json:"-"`                 // bcrypt hash, never serialized
	Role      Role      `gorm:"size:20;not null;index" json:"role"`         // admin, funcionario or cliente
	Phone     string    `gorm:"size:30" json:"telefone"`                    // Contact phone
	PhotoURL  string    `gorm:"size:500" json:"foto_url"`                   // Profile photo in object storage
	Active    bool      `gorm:"not null" json:"ativo"`                      // Inactive users cannot log in
	CreatedAt time.Time `json:"created_at"`                                 // Timestamp of creation
	UpdatedAt time.Time `json:"updated_at"`                                 // Timestamp of last change
}

// Identity returns the token identity of u
func (u User) Identity() Identity {
	return Identity{UserID: u.ID, Name: u.Name, Role: u.Role}
}
