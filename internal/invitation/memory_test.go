package invitation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	token := NewToken(10, "trip", 1, "owner", 2, "alice@test.io", "INVITED", time.Hour)
	require.NoError(t, s.Save(ctx, token))

	got, err := s.Get(ctx, token.Value)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, token.Value, got.Value)
	assert.Equal(t, "trip", got.GroupName)

	byMember, err := s.GetByMember(ctx, 10, 2)
	require.NoError(t, err)
	require.NotNil(t, byMember)
	assert.Equal(t, token.Value, byMember.Value)
}

func TestMemoryStoreUnknownToken(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	got, err := s.Get(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = s.GetByMember(ctx, 1, 2)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	token := NewToken(10, "trip", 1, "owner", 2, "alice@test.io", "INVITED", -time.Minute)
	require.NoError(t, s.Save(ctx, token))

	got, err := s.Get(ctx, token.Value)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = s.GetByMember(ctx, 10, 2)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStoreUpdateStatus(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	token := NewToken(10, "trip", 1, "owner", 2, "alice@test.io", "INVITED", time.Hour)
	require.NoError(t, s.Save(ctx, token))

	require.NoError(t, s.UpdateStatus(ctx, token.Value, "PENDING_APPROVAL"))

	got, err := s.Get(ctx, token.Value)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "PENDING_APPROVAL", got.Status)

	assert.Error(t, s.UpdateStatus(ctx, "nope", "PENDING_APPROVAL"))
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	token := NewToken(10, "trip", 1, "owner", 2, "alice@test.io", "INVITED", time.Hour)
	require.NoError(t, s.Save(ctx, token))
	require.NoError(t, s.DeleteByMember(ctx, 10, 2))

	got, err := s.Get(ctx, token.Value)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStoreSecondInviteReplacesToken(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	first := NewToken(10, "trip", 1, "owner", 2, "alice@test.io", "INVITED", time.Hour)
	require.NoError(t, s.Save(ctx, first))

	second := NewToken(10, "trip", 1, "owner", 2, "alice@test.io", "INVITED", time.Hour)
	require.NoError(t, s.Save(ctx, second))

	got, err := s.GetByMember(ctx, 10, 2)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, second.Value, got.Value)
}

func TestMemoryStorePurgeExpired(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	live := NewToken(10, "trip", 1, "owner", 2, "alice@test.io", "INVITED", time.Hour)
	dead := NewToken(11, "house", 1, "owner", 3, "bob@test.io", "INVITED", -time.Minute)
	require.NoError(t, s.Save(ctx, live))
	require.NoError(t, s.Save(ctx, dead))

	// the dead token plus its dangling member index entry
	removed, err := s.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	got, err := s.Get(ctx, live.Value)
	require.NoError(t, err)
	assert.NotNil(t, got)
}
