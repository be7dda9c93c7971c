package equipment

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Strategy selects how an equipment item is allocated. It is either Exclusive
// (critical equipment, time-slot reservations) or Capacitated (slot ceiling).
type Strategy interface {
	isStrategy()
}

type Exclusive struct{}

type Capacitated struct {
	Slots int
}

func (Exclusive) isStrategy()   {}
func (Capacitated) isStrategy() {}

type Equipment struct {
	ID        uuid.UUID
	Name      string
	Category  string
	Strategy  Strategy
	CreatedAt time.Time
}

func (e Equipment) IsCritical() bool {
	_, ok := e.Strategy.(Exclusive)
	return ok
}

// Capacity returns the slot ceiling of capacitated equipment.
func (e Equipment) Capacity() (int, bool) {
	c, ok := e.Strategy.(Capacitated)
	if !ok {
		return 0, false
	}
	return c.Slots, true
}

// ErrUnknownCapacity marks a non-critical row stored without a slot count.
var ErrUnknownCapacity = errors.New("non-critical equipment has no capacity")

// StrategyFromColumns maps the stored (is_critical, capacity) pair onto a Strategy.
func StrategyFromColumns(isCritical bool, capacity *int) (Strategy, error) {
	if isCritical {
		return Exclusive{}, nil
	}
	if capacity == nil {
		return nil, ErrUnknownCapacity
	}
	if *capacity < 0 {
		return nil, fmt.Errorf("negative capacity %d", *capacity)
	}
	return Capacitated{Slots: *capacity}, nil
}

// StrategyColumns is the inverse of StrategyFromColumns.
func StrategyColumns(s Strategy) (bool, *int) {
	switch v := s.(type) {
	case Exclusive:
		return true, nil
	case Capacitated:
		n := v.Slots
		return false, &n
	default:
		return false, nil
	}
}
