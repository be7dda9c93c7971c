package technician

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusAvailable Status = "available"
	StatusBusy      Status = "busy"
	StatusOnLeave   Status = "on_leave"
	StatusBorrowed  Status = "borrowed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusBusy, StatusOnLeave, StatusBorrowed:
		return true
	}
	return false
}

// Assignable reports whether a technician in this status may receive new work.
func (s Status) Assignable() bool {
	return s.Valid() && s != StatusOnLeave
}

type Technician struct {
	ID        uuid.UUID
	Name      string
	Status    Status
	Site      string
	Lab       *string
	CreatedAt time.Time
}
