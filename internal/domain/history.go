package domain

import "time"

// JSONText is a JSON document kept in a text column and emitted verbatim
type JSONText string

// MarshalJSON emits the stored document, or null when empty
func (j JSONText) MarshalJSON() ([]byte, error) {
	if j == "" {
		return []byte("null"), nil
	}
	return []byte(j), nil
}

// HistoryRecord Model: an append-only audit row. The application never updates or deletes it.
type HistoryRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`                                      // Primary key
	UserID    *uint     `gorm:"index" json:"usuario_id"`                                   // Actor, nil for anonymous flows
	Action    string    `gorm:"size:20;not null;index" json:"acao"`                        // create, update or delete
	Entity    string    `gorm:"size:50;not null;index:idx_history_entity" json:"entidade"` // Entity type
	EntityID  uint      `gorm:"not null;index:idx_history_entity" json:"entidade_id"`      // Entity primary key
	Before    JSONText  `gorm:"type:text" json:"dados_anteriores"`                         // Snapshot prior to the change
	After     JSONText  `gorm:"type:text" json:"dados_novos"`                              // Snapshot after the change
	CreatedAt time.Time `gorm:"index" json:"created_at"`                                   // Timestamp of the change
}

// TableName keeps audit rows in a dedicated table name
func (HistoryRecord) TableName() string { return "history" }
