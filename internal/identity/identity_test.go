package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_SignInAndOut(t *testing.T) {
	p := NewLocal(Handle{ID: "u1", DisplayName: "Ada"})

	var seen []*Handle
	unsub := p.Subscribe(func(h *Handle) { seen = append(seen, h) })
	require.Len(t, seen, 1)
	assert.Nil(t, seen[0])

	h, err := p.SignInInteractive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u1", h.ID)

	cur, ok := p.CurrentUser()
	assert.True(t, ok)
	assert.Equal(t, h, cur)

	p.SignOut()
	_, ok = p.CurrentUser()
	assert.False(t, ok)

	require.Len(t, seen, 3)
	assert.Equal(t, "u1", seen[1].ID)
	assert.Nil(t, seen[2])

	unsub()
	_, _ = p.SignInInteractive(context.Background())
	assert.Len(t, seen, 3)
}

func TestLocal_NoAccount(t *testing.T) {
	p := NewLocal(Handle{})
	_, err := p.SignInInteractive(context.Background())
	assert.True(t, errors.Is(err, ErrNoAccount))
	_, ok := p.CurrentUser()
	assert.False(t, ok)
}

func TestLocal_CancelledContext(t *testing.T) {
	p := NewLocal(Handle{ID: "u1"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.SignInInteractive(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
