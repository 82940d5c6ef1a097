package models

import "time"

// DefaultDisplayName is used when the platform user has neither a username nor a first name.
const DefaultDisplayName = "User"

// Identity is the caller resolved from a verified init-data assertion.
// ID is always the decimal string form of the platform's numeric user id.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// User is the persisted row upserted by ensure_user before any ledger write.
type User struct {
	ID        string    `json:"telegram_id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}
