package domain

import (
	"time"

	"github.com/google/uuid"
)

// GenerationAck is the backend's acknowledgement of a begin-generation
// request. It never carries the generated content; that arrives later on the
// trip itself.
type GenerationAck struct {
	TripID     uuid.UUID `json:"trip_id"`
	Accepted   bool      `json:"accepted"`
	TotalDays  int       `json:"total_days"`
	Message    string    `json:"message,omitempty"`
	AcceptedAt time.Time `json:"accepted_at"`
}
