package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_MatchesKindAndCause(t *testing.T) {
	err := NewError(ErrTimeout, "fetch forecast", context.DeadlineExceeded)

	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrNetwork)
	assert.Equal(t, "fetch forecast: timeout: context deadline exceeded", err.Error())
}

func TestError_SurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("run abc: %w", Errorf(ErrStorageWrite, "upload", "%w", ErrObjectExists))

	assert.ErrorIs(t, err, ErrStorageWrite)
	assert.ErrorIs(t, err, ErrObjectExists)
	assert.True(t, IsClassified(err))
	assert.Equal(t, "storage_write", KindOf(err))
}

func TestError_NilCause(t *testing.T) {
	err := NewError(ErrAuth, "open session", nil)

	assert.ErrorIs(t, err, ErrAuth)
	assert.Equal(t, "open session: auth error", err.Error())
}

func TestKindOf(t *testing.T) {
	cases := map[string]error{
		"network":        NewError(ErrNetwork, "op", nil),
		"parse":          NewError(ErrParse, "op", nil),
		"shape_mismatch": NewError(ErrShapeMismatch, "op", nil),
		"missing_field":  NewError(ErrMissingField, "op", nil),
		"auth":           NewError(ErrAuth, "op", nil),
		"serialization":  NewError(ErrSerialization, "op", nil),
		"storage_write":  NewError(ErrStorageWrite, "op", nil),
		"timeout":        NewError(ErrTimeout, "op", nil),
		"unknown":        errors.New("plain"),
		"none":           nil,
	}
	for want, err := range cases {
		assert.Equal(t, want, KindOf(err))
	}
	assert.False(t, IsClassified(errors.New("plain")))
}
