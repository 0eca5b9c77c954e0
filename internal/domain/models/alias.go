package models

import "time"

// AliasRecord is a persistent display-name override for a user.
// At most one exists per user; later saves overwrite earlier ones.
type AliasRecord struct {
	UserID    int64     `bson:"_id" json:"user_id"`
	FirstName string    `bson:"first_name" json:"first_name"`
	LastName  *string   `bson:"last_name" json:"last_name,omitempty"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// FullName returns the alias rendered for display.
func (a AliasRecord) FullName() string {
	return JoinName(a.FirstName, a.LastName)
}
