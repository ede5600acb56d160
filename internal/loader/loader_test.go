package loader

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ButyrinIA/yatube/internal/models"
	"github.com/ButyrinIA/yatube/internal/storage"
	"github.com/ButyrinIA/yatube/internal/storage/memory"
)

// countingStorage считает пакетные запросы к хранилищу.
type countingStorage struct {
	storage.Storage
	userBatches  int
	groupBatches int
}

func (s *countingStorage) GetUsersByIDs(ctx context.Context, ids []int64) (map[int64]*models.User, error) {
	s.userBatches++
	return s.Storage.GetUsersByIDs(ctx, ids)
}

func (s *countingStorage) GetGroupsByIDs(ctx context.Context, ids []int64) (map[int64]*models.Group, error) {
	s.groupBatches++
	return s.Storage.GetGroupsByIDs(ctx, ids)
}

func TestHydrate(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	leo := &models.User{Username: "leo"}
	kate := &models.User{Username: "kate"}
	require.NoError(t, mem.CreateUser(ctx, leo))
	require.NoError(t, mem.CreateUser(ctx, kate))
	cats := &models.Group{Slug: "cats", Title: "Cats"}
	require.NoError(t, mem.CreateGroup(ctx, cats))

	posts := []*models.Post{
		{ID: 3, AuthorID: leo.ID, GroupID: &cats.ID},
		{ID: 2, AuthorID: kate.ID},
		{ID: 1, AuthorID: leo.ID, GroupID: &cats.ID},
	}

	store := &countingStorage{Storage: mem}
	err := New(store).Hydrate(ctx, posts)
	require.NoError(t, err)

	assert.Equal(t, "leo", posts[0].Author.Username)
	assert.Equal(t, "kate", posts[1].Author.Username)
	assert.Equal(t, "leo", posts[2].Author.Username)
	assert.Equal(t, "cats", posts[0].Group.Slug)
	assert.Nil(t, posts[1].Group)
	assert.Equal(t, "cats", posts[2].Group.Slug)
	assert.Equal(t, 1, store.userBatches, "авторы должны загружаться одним запросом")
	assert.Equal(t, 1, store.groupBatches, "группы должны загружаться одним запросом")
}

func TestHydrateWithoutGroups(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	leo := &models.User{Username: "leo"}
	require.NoError(t, mem.CreateUser(ctx, leo))

	store := &countingStorage{Storage: mem}
	posts := []*models.Post{{ID: 1, AuthorID: leo.ID}}
	require.NoError(t, New(store).Hydrate(ctx, posts))

	assert.Equal(t, "leo", posts[0].Author.Username)
	assert.Equal(t, 0, store.groupBatches)
}

func TestHydrateMissingAuthor(t *testing.T) {
	posts := []*models.Post{{ID: 1, AuthorID: 404}}

	err := New(memory.New()).Hydrate(context.Background(), posts)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestHydrateEmpty(t *testing.T) {
	assert.NoError(t, New(memory.New()).Hydrate(context.Background(), nil))
}
