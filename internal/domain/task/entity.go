package task

import (
	"time"

	"lab-scheduler/internal/domain/skill"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusBlocked    Status = "blocked"
	StatusCancelled  Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusPending:    {StatusAssigned, StatusBlocked, StatusCancelled},
	StatusAssigned:   {StatusPending, StatusInProgress, StatusBlocked, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusBlocked, StatusCancelled},
	StatusBlocked:    {StatusPending, StatusAssigned, StatusCancelled},
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAssigned, StatusInProgress, StatusCompleted, StatusBlocked, StatusCancelled:
		return true
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Open tasks count toward a technician's workload.
func (s Status) Open() bool {
	return s == StatusAssigned || s == StatusInProgress
}

func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type Task struct {
	ID                   uuid.UUID
	WorkOrderID          uuid.UUID
	Title                string
	RequiredEquipmentID  *uuid.UUID
	RequiredCapacity     *int
	RequiredSkills       []skill.Requirement
	Status               Status
	AssignedTechnicianID *uuid.UUID
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Slots is the number of capacity slots the task holds on non-critical equipment.
func (t Task) Slots() int {
	if t.RequiredCapacity == nil || *t.RequiredCapacity <= 0 {
		return 1
	}
	return *t.RequiredCapacity
}
