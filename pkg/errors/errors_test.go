package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorWrapsUnknownAsInternal(t *testing.T) {
	err := FromError(fmt.Errorf("boom"))
	assert.Equal(t, ErrInternal.Code, err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.Nil(t, FromError(nil))
}

func TestHasCodeFollowsWrapping(t *testing.T) {
	base := Clone(ErrSchedulingConflict, "tech busy")
	wrapped := fmt.Errorf("schedule: %w", base)

	assert.True(t, HasCode(wrapped, ErrSchedulingConflict))
	assert.False(t, HasCode(wrapped, ErrInvalidTransition))
	assert.False(t, HasCode(fmt.Errorf("plain"), ErrInternal))
}

func TestWithDetailsDoesNotMutateOriginal(t *testing.T) {
	withDetails := WithDetails(ErrSchedulingConflict, []string{"block-1"})
	assert.Equal(t, []string{"block-1"}, withDetails.Details)
	assert.Nil(t, ErrSchedulingConflict.Details)
}
