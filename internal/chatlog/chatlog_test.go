package chatlog

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/pdfchat/internal/db"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func TestAppendAndListNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx,
		Message{UserID: "u1", Role: RoleUser, Content: "hello", Language: "French", DocumentName: "a.pdf"},
		Message{UserID: "u1", Role: RoleAssistant, Content: "bonjour", Language: "French", DocumentName: "a.pdf"},
	))
	require.NoError(t, s.Append(ctx, Message{UserID: "u2", Role: RoleUser, Content: "other"}))

	page, err := s.List(ctx, "u1", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 1, page.Pages)
	assert.Equal(t, 1, page.CurrentPage)
	require.Len(t, page.Messages, 2)
	assert.Equal(t, "bonjour", page.Messages[0].Content)
	assert.Equal(t, RoleAssistant, page.Messages[0].Role)
	assert.Equal(t, "hello", page.Messages[1].Content)
	assert.Equal(t, "French", page.Messages[1].Language)
	assert.Equal(t, "a.pdf", page.Messages[1].DocumentName)
}

func TestAppendDefaultsLanguageAndNoDocument(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Append(ctx, Message{UserID: "u1", Role: RoleUser, Content: "hi"}))

	page, err := s.List(ctx, "u1", 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Messages, 1)
	assert.Equal(t, "English", page.Messages[0].Language)
	assert.Empty(t, page.Messages[0].DocumentName)
}

func TestAppendRejectsBadRoleAtomically(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	err := s.Append(ctx,
		Message{UserID: "u1", Role: RoleUser, Content: "q"},
		Message{UserID: "u1", Role: "system", Content: "bad"},
	)
	require.Error(t, err)

	page, err := s.List(ctx, "u1", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total)
}

func TestPagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Append(ctx, Message{UserID: "u1", Role: RoleUser, Content: fmt.Sprintf("m%d", i)}))
	}

	page, err := s.List(ctx, "u1", 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 3, page.Pages)
	require.Len(t, page.Messages, 2)
	assert.Equal(t, "m2", page.Messages[0].Content)
	assert.Equal(t, "m1", page.Messages[1].Content)

	page, err = s.List(ctx, "u1", 9, 2)
	require.NoError(t, err)
	assert.Empty(t, page.Messages)
}

func TestPerPageCap(t *testing.T) {
	s := newTestStore(t)
	page, err := s.List(context.Background(), "u1", 1, 10000)
	require.NoError(t, err)
	assert.Equal(t, 0, page.Pages)
	assert.NotNil(t, page.Messages)
}

func TestClear(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Append(ctx,
		Message{UserID: "u1", Role: RoleUser, Content: "a"},
		Message{UserID: "u1", Role: RoleAssistant, Content: "b"},
		Message{UserID: "u2", Role: RoleUser, Content: "c"},
	))

	n, err := s.Clear(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	page, err := s.List(ctx, "u2", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
}
