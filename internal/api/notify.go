package api

import (
	"context" // Request context

	"oficina/internal/domain"   // Notification model
	"oficina/internal/realtime" // Websocket hub

	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// notifyUser stores a notification and pushes it live. Failures are logged only.
func notifyUser(ctx context.Context, db *gorm.DB, hub *realtime.Hub, n domain.Notification) {
	if err := db.WithContext(ctx).Create(&n).Error; err != nil {
		logrus.WithError(err).WithField("user_id", n.UserID).Warn("notification not stored")
		return
	}
	hub.Notify(n.UserID, wsEnvelope("notificacao", n))
}

// wsEnvelope is the message shape pushed over the websocket hub
func wsEnvelope(kind string, data any) map[string]any {
	return map[string]any{"type": kind, "data": data}
}
