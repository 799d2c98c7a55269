package documents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/pdfchat/internal/apperr"
	"github.com/ziadkadry99/pdfchat/internal/db"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func saveDoc(t *testing.T, s *Store, user, name, text string) *Document {
	t.Helper()
	d := &Document{UserID: user, Filename: name, OriginalFilename: name, FileSize: int64(len(text)), PageCount: 1, Text: text}
	require.NoError(t, s.Save(context.Background(), d))
	return d
}

func TestSaveActivatesAndDeactivatesPrevious(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := saveDoc(t, s, "u1", "a.pdf", "alpha text")
	assert.NotEmpty(t, a.ID)
	assert.True(t, a.IsActive)

	b := saveDoc(t, s, "u1", "b.pdf", "beta text")

	id, err := s.ActiveID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, b.ID, id)

	got, err := s.Get(ctx, "u1", a.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Equal(t, "alpha text", got.Text)
}

func TestActiveNone(t *testing.T) {
	s := newTestStore(t)
	doc, err := s.Active(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestSetActive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := saveDoc(t, s, "u1", "a.pdf", "alpha")
	saveDoc(t, s, "u1", "b.pdf", "beta")

	require.NoError(t, s.SetActive(ctx, "u1", a.ID))
	active, err := s.Active(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, a.ID, active.ID)
	assert.Equal(t, "alpha", active.Text)
	require.NotNil(t, active.LastAccessed)

	list, err := s.List(ctx, "u1")
	require.NoError(t, err)
	actives := 0
	for _, d := range list {
		if d.IsActive {
			actives++
		}
		assert.Empty(t, d.Text)
	}
	assert.Equal(t, 1, actives)
}

func TestOwnershipIsEnforced(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := saveDoc(t, s, "u1", "a.pdf", "alpha")

	_, err := s.Get(ctx, "u2", a.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = s.GetText(ctx, "u2", a.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, s.SetActive(ctx, "u2", a.ID), apperr.ErrNotFound)
	_, err = s.Delete(ctx, "u2", a.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	text, err := s.GetText(ctx, "u1", a.ID)
	require.NoError(t, err)
	assert.Equal(t, "alpha", text)
}

func TestListNewestFirst(t *testing.T) {
	s := newTestStore(t)
	saveDoc(t, s, "u1", "first.pdf", "1")
	saveDoc(t, s, "u1", "second.pdf", "2")
	saveDoc(t, s, "u2", "other.pdf", "3")

	list, err := s.List(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second.pdf", list[0].Filename)
	assert.Equal(t, "first.pdf", list[1].Filename)
}

func TestDeleteReportsActive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := saveDoc(t, s, "u1", "a.pdf", "alpha")
	b := saveDoc(t, s, "u1", "b.pdf", "beta")

	wasActive, err := s.Delete(ctx, "u1", a.ID)
	require.NoError(t, err)
	assert.False(t, wasActive)

	wasActive, err = s.Delete(ctx, "u1", b.ID)
	require.NoError(t, err)
	assert.True(t, wasActive)

	id, err := s.ActiveID(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestDeactivateAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	saveDoc(t, s, "u1", "a.pdf", "alpha")
	require.NoError(t, s.DeactivateAll(ctx, "u1"))
	id, err := s.ActiveID(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, id)
}
