package model

import (
	"time"

	"github.com/google/uuid"
)

// Habit is the subset of a habit definition the streak engine reads.
type Habit struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	OwnerID   uuid.UUID `json:"uid"`
	CreatedOn time.Time `json:"created_on"`
}
