package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorMessage(t *testing.T) {
	err := New(ErrCodeNotFound, "coin not found")
	assert.Equal(t, "[NOT_FOUND] coin not found", err.Error())

	wrapped := Wrap(stderrors.New("dial tcp: refused"), ErrCodeDatabaseError, "insert coin")
	assert.Equal(t, "[DATABASE_ERROR] insert coin: dial tcp: refused", wrapped.Error())
}

func TestAsAppErrorFollowsChain(t *testing.T) {
	base := NewInvalidInputError("source_url", "must be absolute")
	err := fmt.Errorf("handler: %w", base)

	appErr, ok := AsAppError(err)
	require.True(t, ok)
	assert.Same(t, base, appErr)
	assert.True(t, HasCode(err, ErrCodeInvalidInput))
	assert.False(t, HasCode(err, ErrCodeNotFound))

	_, ok = AsAppError(stderrors.New("plain"))
	assert.False(t, ok)
	_, ok = AsAppError(nil)
	assert.False(t, ok)
}

func TestPartialFailureCarriesAddress(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := NewPartialFailureError("0xAbC", cause)

	assert.Equal(t, ErrCodePartialFailure, err.Code)
	assert.Equal(t, "0xAbC", err.Detail("coin_address"))
	assert.ErrorIs(t, err, cause)
	assert.True(t, err.IsInternal())
}

func TestClassification(t *testing.T) {
	assert.True(t, New(ErrCodeInvalidInput, "x").IsValidation())
	assert.True(t, New(ErrCodeNotFound, "x").IsNotFound())
	assert.True(t, New(ErrCodeForbidden, "x").IsForbidden())
	assert.False(t, New(ErrCodeMintFailed, "x").IsInternal())
	assert.Nil(t, New(ErrCodeInternal, "x").Detail("missing"))
}
