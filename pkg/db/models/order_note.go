package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderNote is an append-only audit trail entry on an order. AuthorID is nil
// when the note was written by the system (settlement decisions, auto-resume
// attempts) rather than by operations staff.
type OrderNote struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID  `gorm:"column:order_id;type:uuid;not null;index"`
	AuthorID  *uuid.UUID `gorm:"column:author_id;type:uuid"`
	Content   string     `gorm:"column:content;not null"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}
