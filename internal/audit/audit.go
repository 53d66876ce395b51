// Package audit appends before/after snapshots of core entity mutations to the history table.
package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"oficina/internal/domain"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Actions recorded in the history table
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Entity names recorded in the history table
const (
	EntityClient       = "cliente"
	EntityVehicle      = "veiculo"
	EntityServiceOrder = "ordem_servico"
	EntityOrderItem    = "item_ordem_servico"
	EntityUser         = "usuario"
	EntityTransaction  = "transacao"
)

// Event describes one mutation. Before is nil on create and After is nil on delete.
type Event struct {
	ActorID  uint
	Action   string
	Entity   string
	EntityID uint
	Before   any
	After    any
}

// Recorder writes history rows on a best-effort basis
type Recorder struct {
	db *gorm.DB
}

// NewRecorder returns a Recorder writing through db
func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{db: db}
}

// Record appends one history row. It has no error result: every failure,
// a panic included, is logged and dropped so the calling operation is unaffected.
func (r *Recorder) Record(ctx context.Context, ev Event) {
	if r == nil || r.db == nil {
		return
	}
	log := logrus.WithContext(ctx).WithFields(logrus.Fields{
		"action":    ev.Action,
		"entity":    ev.Entity,
		"entity_id": ev.EntityID,
		"actor_id":  ev.ActorID,
	})
	defer func() {
		if p := recover(); p != nil {
			log.WithField("panic", p).Error("history record dropped")
		}
	}()

	before, err := snapshot(ev.Before)
	if err != nil {
		log.WithError(err).Warn("history snapshot failed")
	}
	after, err := snapshot(ev.After)
	if err != nil {
		log.WithError(err).Warn("history snapshot failed")
	}
	rec := domain.HistoryRecord{
		Action:   ev.Action,
		Entity:   ev.Entity,
		EntityID: ev.EntityID,
		Before:   before,
		After:    after,
	}
	if ev.ActorID != 0 {
		actor := ev.ActorID
		rec.UserID = &actor
	}
	if err := r.db.WithContext(context.WithoutCancel(ctx)).Create(&rec).Error; err != nil {
		log.WithError(err).Warn("history record not written")
	}
}

func snapshot(v any) (domain.JSONText, error) {
	if v == nil {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("audit: marshal snapshot: %w", err)
	}
	return domain.JSONText(b), nil
}
