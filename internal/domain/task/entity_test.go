package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusPending, StatusAssigned))
	assert.True(t, CanTransition(StatusAssigned, StatusPending))
	assert.True(t, CanTransition(StatusBlocked, StatusAssigned))
	assert.False(t, CanTransition(StatusPending, StatusCompleted))
	assert.False(t, CanTransition(StatusCompleted, StatusPending))
	assert.False(t, CanTransition(StatusCancelled, StatusPending))
}

func TestSlots(t *testing.T) {
	zero, three := 0, 3
	assert.Equal(t, 1, Task{}.Slots())
	assert.Equal(t, 1, Task{RequiredCapacity: &zero}.Slots())
	assert.Equal(t, 3, Task{RequiredCapacity: &three}.Slots())
}
