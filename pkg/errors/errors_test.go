package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByCode(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := WrapAs(ErrStorageWrite, cause, "failed to save subjects")

	assert.True(t, errors.Is(err, ErrStorageWrite))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrStorageRead))
	assert.Equal(t, "failed to save subjects: disk full", err.Error())
}

func TestCloneKeepsSentinelIntact(t *testing.T) {
	clone := Clone(ErrValidation, "attended classes exceed total")
	assert.Equal(t, "attended classes exceed total", clone.Message)
	assert.Equal(t, "validation failed", ErrValidation.Message)
	assert.True(t, errors.Is(clone, ErrValidation))
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	wrapped := fmt.Errorf("outer: %w", ErrNotFound)
	assert.Equal(t, ErrNotFound, FromError(wrapped))

	plain := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, plain.Code)
	assert.Equal(t, http.StatusInternalServerError, plain.Status)
}
