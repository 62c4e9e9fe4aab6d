package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_BuildsClassifiedError(t *testing.T) {
	err := New(InvalidRequest, "bad url")
	assert.Equal(t, InvalidRequest, KindOf(err))
	assert.Contains(t, err.Error(), "bad url")
}

func TestWrap_PreservesCauseAndKind(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Wrap(OriginUnreachable, "dialing origin", cause)

	assert.Equal(t, OriginUnreachable, KindOf(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestAs_MatchesExpectedKind(t *testing.T) {
	err := New(SsrfBlocked, "blocked hostname")
	assert.True(t, As(err, SsrfBlocked))
	assert.False(t, As(err, InvalidRequest))
}

func TestKindOf_DefaultsToInternalForUnclassifiedError(t *testing.T) {
	assert.Equal(t, Internal, KindOf(errors.New("some plain error")))
}

func TestRetryable_OnlyTrueForOriginUnreachable(t *testing.T) {
	assert.True(t, New(OriginUnreachable, "").Retryable())
	assert.False(t, New(Timeout, "").Retryable())
	assert.False(t, New(Internal, "").Retryable())
}
