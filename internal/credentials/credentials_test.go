package credentials

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/pdfchat/internal/apperr"
	"github.com/ziadkadry99/pdfchat/internal/config"
	"github.com/ziadkadry99/pdfchat/internal/db"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	key, err := GenerateKey()
	require.NoError(t, err)
	cipher, err := NewCipher(key)
	require.NoError(t, err)
	return NewStore(database, cipher, config.ProviderGroq)
}

func TestCipherRoundTrip(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)
	c, err := NewCipher(key)
	require.NoError(t, err)

	tok, err := c.Encrypt("gsk_secret_value")
	require.NoError(t, err)
	assert.NotContains(t, tok, "gsk_secret_value")

	plain, err := c.Decrypt(tok)
	require.NoError(t, err)
	assert.Equal(t, "gsk_secret_value", plain)

	other, err := GenerateKey()
	require.NoError(t, err)
	c2, err := NewCipher(other)
	require.NoError(t, err)
	_, err = c2.Decrypt(tok)
	assert.Error(t, err)
}

func TestNewCipherRejectsGarbage(t *testing.T) {
	_, err := NewCipher("not-a-key")
	assert.Error(t, err)
}

func TestMask(t *testing.T) {
	assert.Equal(t, "gsk_...wxyz", Mask("gsk_abcdefwxyz"))
	assert.Equal(t, "****", Mask("12345678"))
	assert.Equal(t, "****", Mask(""))
}

func TestFirstCredentialIsActive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.Add(ctx, "u1", "main", "", "gsk_first_secret")
	require.NoError(t, err)
	assert.True(t, first.IsActive)
	assert.Equal(t, config.ProviderGroq, first.Provider)

	second, err := s.Add(ctx, "u1", "backup", config.ProviderOpenAI, "sk-second-secret")
	require.NoError(t, err)
	assert.False(t, second.IsActive)

	active, err := s.Active(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, first.ID, active.ID)
	assert.Equal(t, "gsk_first_secret", active.Secret)
}

func TestAddValidation(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Add(context.Background(), "u1", "", "", "secret")
	assert.ErrorIs(t, err, apperr.ErrBadRequest)
	_, err = s.Add(context.Background(), "u1", "name", "", "  ")
	assert.ErrorIs(t, err, apperr.ErrBadRequest)
	_, err = s.Add(context.Background(), "u1", "name", "mystery", "secret")
	assert.ErrorIs(t, err, apperr.ErrBadRequest)
}

func TestActivateIsExclusive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a, _ := s.Add(ctx, "u1", "a", "", "aaaaaaaaaaaa")
	b, _ := s.Add(ctx, "u1", "b", "", "bbbbbbbbbbbb")

	require.NoError(t, s.Activate(ctx, "u1", b.ID))
	list, err := s.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)
	assert.False(t, list[0].IsActive)
	assert.True(t, list[1].IsActive)
	assert.Equal(t, "bbbb...bbbb", list[1].Masked)
}

func TestActivateForeignCredential(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a, _ := s.Add(ctx, "u1", "a", "", "aaaaaaaaaaaa")
	err := s.Activate(ctx, "u2", a.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDeleteActivePromotesOldestRemaining(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a, _ := s.Add(ctx, "u1", "a", "", "aaaaaaaaaaaa")
	b, _ := s.Add(ctx, "u1", "b", "", "bbbbbbbbbbbb")
	c, _ := s.Add(ctx, "u1", "c", "", "cccccccccccc")
	require.NoError(t, s.Activate(ctx, "u1", c.ID))

	changed, err := s.Delete(ctx, "u1", c.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	active, err := s.Active(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, a.ID, active.ID)

	changed, err = s.Delete(ctx, "u1", b.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = s.Delete(ctx, "u1", a.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	active, err = s.Active(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestDeleteUnknown(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Delete(context.Background(), "u1", "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUsersAreIsolated(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.Add(ctx, "u1", "a", "", "aaaaaaaaaaaa")
	require.NoError(t, err)
	u2, err := s.Add(ctx, "u2", "b", "", "bbbbbbbbbbbb")
	require.NoError(t, err)
	assert.True(t, u2.IsActive, "each user gets their own first active credential")

	list, err := s.List(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestManagerFiresHookOnActiveChange(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	var changes []string
	m := NewManager(s, func(u string) { changes = append(changes, u) }, nil)

	a, err := m.Add(ctx, "u1", "a", "", "aaaaaaaaaaaa")
	require.NoError(t, err)
	b, err := m.Add(ctx, "u1", "b", "", "bbbbbbbbbbbb")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, changes, "only the first add changes the active key")

	require.NoError(t, m.Activate(ctx, "u1", b.ID))
	assert.Len(t, changes, 2)

	require.NoError(t, m.Delete(ctx, "u1", a.ID))
	assert.Len(t, changes, 2, "deleting an inactive key keeps the active one")

	require.NoError(t, m.Delete(ctx, "u1", b.ID))
	assert.Len(t, changes, 3)
}
