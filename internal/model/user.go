package model

import (
	"time"

	"github.com/google/uuid"
)

// User is the internal identity of a player. It is created lazily the first
// time a purchase or an authenticated action references the player.
type User struct {
	ID         string    `json:"id"`
	PlayerUUID uuid.UUID `json:"player_uuid"`
	CreatedAt  time.Time `json:"created_at"`
}
