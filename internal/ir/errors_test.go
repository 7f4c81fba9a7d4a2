package ir

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMaterializeError_Helpers(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewReferenceError("tm1", "id"))

	assert.True(t, IsReferenceError(err))
	assert.False(t, IsShapeError(err))
	assert.Contains(t, err.Error(), `reference "id" not found`)
	assert.Contains(t, err.Error(), "rule=tm1")
}

func TestMaterializeError_UnwrapsCause(t *testing.T) {
	cause := errors.New("no such table: people")
	err := NewDataAccessError("tm1", cause)
	err.Elapsed = 3 * time.Millisecond

	assert.ErrorIs(t, err, cause)
	assert.True(t, IsDataAccessError(err))
	assert.Contains(t, err.Error(), "elapsed=3ms")
}

func TestNewCycleError_Path(t *testing.T) {
	err := NewCycleError([]string{"a", "b", "a"})
	assert.True(t, IsCycleError(err))
	assert.Equal(t, "a", err.RuleID)
	assert.Contains(t, err.Error(), "a -> b -> a")
}
