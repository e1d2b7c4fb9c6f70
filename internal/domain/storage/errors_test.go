package storage

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap(t *testing.T) {
	base := errors.New("connection refused")

	t.Run("nilはnilのまま", func(t *testing.T) {
		assert.NoError(t, Wrap("op", nil))
	})

	t.Run("元のエラーを辿れる", func(t *testing.T) {
		err := Wrap("insert booking", base)
		assert.ErrorIs(t, err, base)
		assert.True(t, IsStorageError(err))
		assert.Contains(t, err.Error(), "insert booking")
	})

	t.Run("二重に包まない", func(t *testing.T) {
		inner := Wrap("inner", base)
		outer := Wrap("outer", fmt.Errorf("context: %w", inner))

		var se *Error
		assert.True(t, errors.As(outer, &se))
		assert.Equal(t, "inner", se.Op)
	})

	t.Run("通常のエラーはストレージエラーではない", func(t *testing.T) {
		assert.False(t, IsStorageError(base))
	})
}
