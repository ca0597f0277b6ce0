package messages

import "time"

const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// TrackingChanged публикуется после каждой успешной админской мутации.
// Потребители: инвалидация кэша на других инстансах и внешние подписчики.
type TrackingChanged struct {
	TrackingID string    `json:"tracking_id"`
	Action     string    `json:"action"`
	ChangedAt  time.Time `json:"changed_at"`
}
