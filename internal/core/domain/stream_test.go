package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenStream_EmitAndConsume(t *testing.T) {
	s := NewTokenStream(4)

	assert.True(t, s.Emit("hello"))
	assert.True(t, s.Emit(" world"))
	s.Close(nil)

	var got []string
	for piece := range s.Tokens() {
		got = append(got, piece)
	}

	assert.Equal(t, []string{"hello", " world"}, got)
	assert.NoError(t, s.Err())
}

func TestTokenStream_EmitFullBuffer(t *testing.T) {
	s := NewTokenStream(1)

	assert.True(t, s.Emit("a"))
	// Buffer full and nobody consuming: the piece is dropped, not blocked on.
	assert.False(t, s.Emit("b"))
}

func TestTokenStream_Cancel(t *testing.T) {
	s := NewTokenStream(4)

	assert.False(t, s.Cancelled())
	s.Cancel()
	assert.True(t, s.Cancelled())
	assert.False(t, s.Emit("late"))

	// Cancel is idempotent.
	s.Cancel()
	assert.True(t, s.Cancelled())
}

func TestTokenStream_CloseWithError(t *testing.T) {
	s := NewTokenStream(1)
	failure := errors.New("engine exploded")

	s.Close(failure)

	_, open := <-s.Tokens()
	require.False(t, open)
	assert.ErrorIs(t, s.Err(), failure)
}

func TestTokenStream_CloseKeepsFirstError(t *testing.T) {
	s := NewTokenStream(1)
	first := errors.New("first")

	s.Close(first)
	s.Close(errors.New("second"))

	assert.ErrorIs(t, s.Err(), first)
}

func TestTokenStream_MinimumBuffer(t *testing.T) {
	s := NewTokenStream(0)

	assert.True(t, s.Emit("x"))
}
