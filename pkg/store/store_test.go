package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teslashibe/go-companion/pkg/affect"
)

func TestRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(NewMemory())

	_, err := repo.LoadMood(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	m := affect.NewMood(0.4, 0.7, 0.9)
	require.NoError(t, repo.SaveMood(ctx, m))
	got, err := repo.LoadMood(ctx)
	require.NoError(t, err)
	assert.Equal(t, m, got)

	p := affect.Personality{Warmth: 0.2, Playfulness: 0.9, Curiosity: 0.5}
	require.NoError(t, repo.SavePersonality(ctx, p))
	gotP, err := repo.LoadPersonality(ctx)
	require.NoError(t, err)
	assert.Equal(t, p, gotP)
}

func TestRepositoryClampsOnLoad(t *testing.T) {
	ctx := context.Background()
	kv := NewMemory()
	require.NoError(t, kv.Put(ctx, KeyMood, []byte(`{"mood":4,"energy":-1,"trust":0.5}`)))

	got, err := NewRepository(kv).LoadMood(ctx)
	require.NoError(t, err)
	assert.Equal(t, affect.Mood{Mood: 1, Energy: 0, Trust: 0.5}, got)
}

func TestRepositoryCorruptDocument(t *testing.T) {
	ctx := context.Background()
	kv := NewMemory()
	require.NoError(t, kv.Put(ctx, KeyPersonality, []byte(`not json`)))

	_, err := NewRepository(kv).LoadPersonality(ctx)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestMemoryCopiesValues(t *testing.T) {
	ctx := context.Background()
	kv := NewMemory()
	v := []byte(`{"a":1}`)
	require.NoError(t, kv.Put(ctx, "k", v))
	v[0] = 'x'

	got, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(got))

	require.NoError(t, kv.Delete(ctx, "k"))
	_, err = kv.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}
