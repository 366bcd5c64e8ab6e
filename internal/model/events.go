package model

import "time"

// GrantEvent is published after an ownership edge has been committed.
type GrantEvent struct {
	PlayerUUID    string    `json:"player_uuid"`
	CosmeticID    int64     `json:"cosmetic_id"`
	TransactionID string    `json:"transaction_id"`
	Source        string    `json:"source"` // "webhook" or "restore"
	PaymentStatus string    `json:"payment_status,omitempty"`
	GrantedAt     time.Time `json:"granted_at"`
}

// Grant sources.
const (
	GrantSourceWebhook = "webhook"
	GrantSourceRestore = "restore"
)
