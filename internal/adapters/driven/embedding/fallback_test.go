package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder is a scripted embedding service for tests.
type fakeEmbedder struct {
	vec   []float32
	err   error
	calls int
	name  string
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vec, nil
}

func (f *fakeEmbedder) Dimensions() int { return len(f.vec) }

func (f *fakeEmbedder) ModelName() string { return f.name }

func TestFallback_UsesPrimaryWhenHealthy(t *testing.T) {
	primary := &fakeEmbedder{vec: []float32{1, 0}, name: "primary"}
	secondary := &fakeEmbedder{vec: []float32{0, 1}, name: "secondary"}
	f := NewFallback(primary, secondary)

	vec, err := f.Embed(context.Background(), "text")

	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, vec)
	assert.Equal(t, 1, primary.calls)
	assert.Zero(t, secondary.calls)
}

func TestFallback_DegradesOnPrimaryError(t *testing.T) {
	primary := &fakeEmbedder{err: errors.New("connection refused"), name: "primary"}
	secondary := &fakeEmbedder{vec: []float32{0, 1}, name: "secondary"}
	f := NewFallback(primary, secondary)

	vec, err := f.Embed(context.Background(), "text")

	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1}, vec)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, secondary.calls)
}

func TestFallback_NilPrimary(t *testing.T) {
	secondary := &fakeEmbedder{vec: []float32{0, 1}, name: "secondary"}
	f := NewFallback(nil, secondary)

	vec, err := f.Embed(context.Background(), "text")

	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1}, vec)
	assert.Equal(t, "secondary", f.ModelName())
	assert.Equal(t, 2, f.Dimensions())
}

func TestFallback_ReportsPrimaryIdentity(t *testing.T) {
	primary := &fakeEmbedder{vec: []float32{1, 0, 0}, name: "primary"}
	secondary := &fakeEmbedder{vec: []float32{0, 1}, name: "secondary"}
	f := NewFallback(primary, secondary)

	assert.Equal(t, "primary", f.ModelName())
	assert.Equal(t, 3, f.Dimensions())
}
