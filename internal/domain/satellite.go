package domain

import "time"

// Notification Model: a message for one user, also pushed over the websocket hub
type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`                      // Primary key
	UserID    uint      `gorm:"index;not null" json:"usuario_id"`          // Recipient
	Title     string    `gorm:"size:120;not null" json:"titulo"`           // Headline
	Message   string    `gorm:"type:text" json:"mensagem"`                 // Body
	Link      string    `gorm:"size:255" json:"link"`                      // SPA route to open, optional
	Read      bool      `gorm:"column:is_read;not null;index" json:"lida"` // Marked read by the recipient
	CreatedAt time.Time `json:"created_at"`                                // Timestamp of creation
}

// Favorite Model: a service order pinned by a user
type Favorite struct {
	ID             uint          `gorm:"primaryKey" json:"id"`                                                  // Primary key
	UserID         uint          `gorm:"not null;uniqueIndex:idx_favorites_user_order" json:"usuario_id"`       // Owner
	ServiceOrderID uint          `gorm:"not null;uniqueIndex:idx_favorites_user_order" json:"ordem_servico_id"` // Pinned order
	CreatedAt      time.Time     `json:"created_at"`                                                            // Timestamp of creation
	ServiceOrder   *ServiceOrder `json:"ordem_servico,omitempty"`                                               // Loaded on list reads
}

// Comment Model: a staff note on a service order
type Comment struct {
	ID             uint      `gorm:"primaryKey" json:"id"`                   // Primary key
	ServiceOrderID uint      `gorm:"index;not null" json:"ordem_servico_id"` // Parent order
	UserID         uint      `gorm:"index;not null" json:"usuario_id"`       // Author
	Text           string    `gorm:"type:text;not null" json:"texto"`        // Comment body
	CreatedAt      time.Time `json:"created_at"`                             // Timestamp of creation
	User           *User     `json:"usuario,omitempty"`                      // Loaded on list reads
}

// ChecklistItem Model: one inspection step on a service order
type ChecklistItem struct {
	ID             uint      `gorm:"primaryKey" json:"id"`                   // Primary key
	ServiceOrderID uint      `gorm:"index;not null" json:"ordem_servico_id"` // Parent order
	Item           string    `gorm:"size:200;not null" json:"item"`          // What to check
	Done           bool      `gorm:"not null" json:"concluido"`              // Checked off
	Notes          string    `gorm:"size:255" json:"observacao"`             // Finding
	CreatedAt      time.Time `json:"created_at"`                             // Timestamp of creation
}

// Attachment Model: a file stored in object storage and linked to a service order
type Attachment struct {
	ID             uint      `gorm:"primaryKey" json:"id"`                   // Primary key
	ServiceOrderID uint      `gorm:"index;not null" json:"ordem_servico_id"` // Parent order
	UserID         uint      `gorm:"index" json:"usuario_id"`                // Uploader
	FileName       string    `gorm:"size:255;not null" json:"nome_arquivo"`  // Original file name
	URL            string    `gorm:"size:500;not null" json:"url"`           // Public URL in storage
	ContentType    string    `gorm:"size:100" json:"tipo_conteudo"`          // MIME type
	Size           int64     `json:"tamanho"`                                // Bytes
	CreatedAt      time.Time `json:"created_at"`                             // Timestamp of creation
}
