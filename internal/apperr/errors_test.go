package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByKind(t *testing.T) {
	err := Forbidden("only the mentor can accept request %d", 7)

	assert.True(t, errors.Is(err, ErrForbidden))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "only the mentor can accept request 7", err.Error())
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("accept request: %w", InvalidTransition("request is rejected"))

	assert.Equal(t, KindInvalidStateTransition, KindOf(err))
	assert.True(t, errors.Is(err, ErrInvalidStateTransition))
	assert.Equal(t, Kind(""), KindOf(errors.New("boom")))
}

func TestExternalUnwraps(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := External("calendar", cause)

	assert.True(t, errors.Is(err, cause))
	assert.True(t, errors.Is(err, ErrExternalCollaboratorFailure))
	assert.Contains(t, err.Error(), "calendar unavailable")
}
