package model

import (
	"time"

	"github.com/google/uuid"
)

// TokenData is the verified content of a player session token.
type TokenData struct {
	PlayerUUID uuid.UUID `json:"player_uuid"`
	IssuedAt   time.Time `json:"issued_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}
