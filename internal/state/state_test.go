package state

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Get(ctx, "s1", KeyCart)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.Set(ctx, "s1", KeyCart, []byte(`[]`)))
	v, err := m.Get(ctx, "s1", KeyCart)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(v))

	require.NoError(t, m.Delete(ctx, "s1", KeyCart))
	_, err = m.Get(ctx, "s1", KeyCart)
	assert.ErrorIs(t, err, ErrNotFound)

	// deleting twice is fine
	assert.NoError(t, m.Delete(ctx, "s1", KeyCart))
}

func TestMemory_CopiesValues(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	buf := []byte("en")
	require.NoError(t, m.Set(ctx, "s1", KeyLanguage, buf))
	buf[0] = 'x'

	v, err := m.Get(ctx, "s1", KeyLanguage)
	require.NoError(t, err)
	assert.Equal(t, "en", string(v))
}

func TestScoped_IsolatesSessions(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	a := Scoped(m, "a")
	b := Scoped(m, "b")

	require.NoError(t, a.Set(ctx, KeyCart, []byte("A")))
	_, err := b.Get(ctx, KeyCart)
	assert.ErrorIs(t, err, ErrNotFound)

	v, err := a.Get(ctx, KeyCart)
	require.NoError(t, err)
	assert.Equal(t, "A", string(v))
}
