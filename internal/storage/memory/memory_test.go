package memory

import (
	"context"
	"testing"
	"time"

	"github.com/ButyrinIA/yatube/internal/models"
	"github.com/ButyrinIA/yatube/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUser(t *testing.T, store *MemoryStorage, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username}
	require.NoError(t, store.CreateUser(context.Background(), u))
	return u
}

func TestMemoryStorage(t *testing.T) {
	t.Run("CreatePost and GetPost", func(t *testing.T) {
		store := New()
		ctx := context.Background()
		author := newUser(t, store, "leo")

		post := &models.Post{Text: "Тестовый пост", AuthorID: author.ID}
		err := store.CreatePost(ctx, post)
		assert.NoError(t, err, "Ошибка при создании поста")
		assert.NotZero(t, post.ID, "ID поста не назначен")
		assert.False(t, post.CreatedAt.IsZero(), "Дата создания не назначена")

		retrieved, err := store.GetPost(ctx, post.ID)
		assert.NoError(t, err, "Ошибка при получении поста")
		assert.Equal(t, post, retrieved, "Полученный пост не совпадает с созданным")
	})

	t.Run("GetPost Not Found", func(t *testing.T) {
		store := New()

		_, err := store.GetPost(context.Background(), 42)
		assert.ErrorIs(t, err, storage.ErrNotFound, "Ожидалась ошибка для несуществующего поста")
	})

	t.Run("CreatePost unknown author", func(t *testing.T) {
		store := New()

		err := store.CreatePost(context.Background(), &models.Post{Text: "x", AuthorID: 7})
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("ListPosts newest first with id tie-break", func(t *testing.T) {
		store := New()
		ctx := context.Background()
		author := newUser(t, store, "leo")
		now := time.Now()

		old := &models.Post{Text: "старый", AuthorID: author.ID, CreatedAt: now.Add(-time.Hour)}
		a := &models.Post{Text: "a", AuthorID: author.ID, CreatedAt: now}
		b := &models.Post{Text: "b", AuthorID: author.ID, CreatedAt: now}
		for _, p := range []*models.Post{old, a, b} {
			require.NoError(t, store.CreatePost(ctx, p))
		}

		posts, err := store.ListPosts(ctx, models.PostFilter{})
		require.NoError(t, err)
		require.Len(t, posts, 3)
		assert.Equal(t, []int64{b.ID, a.ID, old.ID}, []int64{posts[0].ID, posts[1].ID, posts[2].ID})

		page, err := store.ListPosts(ctx, models.PostFilter{Offset: 1, Limit: 1})
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, a.ID, page[0].ID)

		tail, err := store.ListPosts(ctx, models.PostFilter{Offset: 10, Limit: 5})
		require.NoError(t, err)
		assert.Empty(t, tail)
	})

	t.Run("ListPosts and CountPosts filters", func(t *testing.T) {
		store := New()
		ctx := context.Background()
		leo := newUser(t, store, "leo")
		kate := newUser(t, store, "kate")
		groupA := &models.Group{Slug: "a", Title: "A"}
		groupB := &models.Group{Slug: "b", Title: "B"}
		require.NoError(t, store.CreateGroup(ctx, groupA))
		require.NoError(t, store.CreateGroup(ctx, groupB))

		inA := &models.Post{Text: "в группе A", AuthorID: leo.ID, GroupID: &groupA.ID}
		noGroup := &models.Post{Text: "без группы", AuthorID: kate.ID}
		require.NoError(t, store.CreatePost(ctx, inA))
		require.NoError(t, store.CreatePost(ctx, noGroup))

		byB, err := store.ListPosts(ctx, models.PostFilter{GroupID: &groupB.ID})
		require.NoError(t, err)
		assert.Empty(t, byB, "Пост группы A не должен попадать в группу B")

		byA, err := store.ListPosts(ctx, models.PostFilter{GroupID: &groupA.ID})
		require.NoError(t, err)
		require.Len(t, byA, 1)
		assert.Equal(t, inA.ID, byA[0].ID)

		count, err := store.CountPosts(ctx, models.PostFilter{AuthorID: &kate.ID})
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("UpdatePost keeps author and date", func(t *testing.T) {
		store := New()
		ctx := context.Background()
		author := newUser(t, store, "leo")
		post := &models.Post{Text: "до", AuthorID: author.ID}
		require.NoError(t, store.CreatePost(ctx, post))

		require.NoError(t, store.UpdatePost(ctx, &models.Post{ID: post.ID, Text: "после", AuthorID: 99}))

		got, err := store.GetPost(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, "после", got.Text)
		assert.Equal(t, author.ID, got.AuthorID)
		assert.Equal(t, post.CreatedAt, got.CreatedAt)
	})

	t.Run("DeleteGroup keeps posts", func(t *testing.T) {
		store := New()
		ctx := context.Background()
		author := newUser(t, store, "leo")
		group := &models.Group{Slug: "cats", Title: "Cats"}
		require.NoError(t, store.CreateGroup(ctx, group))
		post := &models.Post{Text: "кот", AuthorID: author.ID, GroupID: &group.ID}
		require.NoError(t, store.CreatePost(ctx, post))

		require.NoError(t, store.DeleteGroup(ctx, group.ID))

		got, err := store.GetPost(ctx, post.ID)
		require.NoError(t, err)
		assert.Nil(t, got.GroupID)
	})

	t.Run("unique username and slug", func(t *testing.T) {
		store := New()
		ctx := context.Background()
		newUser(t, store, "leo")

		err := store.CreateUser(ctx, &models.User{Username: "leo"})
		assert.ErrorIs(t, err, storage.ErrAlreadyExists)

		// имя сравнивается с учетом регистра, как UNIQUE в postgres
		leoUpper := &models.User{Username: "Leo"}
		require.NoError(t, store.CreateUser(ctx, leoUpper))
		got, err := store.GetUserByUsername(ctx, "Leo")
		require.NoError(t, err)
		assert.Equal(t, leoUpper.ID, got.ID)

		require.NoError(t, store.CreateGroup(ctx, &models.Group{Slug: "cats"}))
		err = store.CreateGroup(ctx, &models.Group{Slug: "cats"})
		assert.ErrorIs(t, err, storage.ErrAlreadyExists)
	})

	t.Run("GetUsersByIDs skips unknown", func(t *testing.T) {
		store := New()
		leo := newUser(t, store, "leo")

		users, err := store.GetUsersByIDs(context.Background(), []int64{leo.ID, 100})
		require.NoError(t, err)
		assert.Len(t, users, 1)
		assert.Equal(t, "leo", users[leo.ID].Username)
	})
}
