package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"

	"github.com/ButyrinIA/yatube/internal/models"
	"github.com/ButyrinIA/yatube/internal/storage"
)

func TestPostgresStorage(t *testing.T) {
	if testing.Short() {
		t.Skip("пропуск интеграционного теста в режиме -short")
	}

	// Запуск тестового контейнера PostgreSQL
	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:13",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "user",
			"POSTGRES_PASSWORD": "password",
			"POSTGRES_DB":       "yatube",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5432/tcp"),
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		),
	}
	postgresC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Не удалось запустить контейнер PostgreSQL: %v", err)
	}
	defer postgresC.Terminate(ctx)

	host, err := postgresC.Host(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить хост контейнера: %v", err)
	}
	port, err := postgresC.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Не удалось получить порт контейнера: %v", err)
	}
	dsn := "postgres://user:password@" + host + ":" + port.Port() + "/yatube?sslmode=disable"

	store, err := New(ctx, Config{DSN: dsn, MaxConns: 4}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Не удалось инициализировать PostgresStorage: %v", err)
	}
	defer store.Close()

	author := &models.User{Username: "leo", FirstName: "Лев"}
	require.NoError(t, store.CreateUser(ctx, author))
	groupA := &models.Group{Slug: "group-a", Title: "A", Description: "первая"}
	groupB := &models.Group{Slug: "group-b", Title: "B", Description: "вторая"}
	require.NoError(t, store.CreateGroup(ctx, groupA))
	require.NoError(t, store.CreateGroup(ctx, groupB))

	t.Run("CreatePost and GetPost", func(t *testing.T) {
		post := &models.Post{Text: "Тестовый пост", AuthorID: author.ID, GroupID: &groupA.ID, Image: "posts/a.gif"}

		err := store.CreatePost(ctx, post)
		assert.NoError(t, err, "Ошибка при создании поста")
		assert.NotZero(t, post.ID)

		retrieved, err := store.GetPost(ctx, post.ID)
		require.NoError(t, err, "Ошибка при получении поста")
		assert.Equal(t, post.Text, retrieved.Text, "Текст поста не совпадает")
		assert.Equal(t, groupA.ID, *retrieved.GroupID, "Группа поста не совпадает")
		assert.Equal(t, "posts/a.gif", retrieved.Image)
	})

	t.Run("GetPost Not Found", func(t *testing.T) {
		_, err := store.GetPost(ctx, 1_000_000)
		assert.ErrorIs(t, err, storage.ErrNotFound, "Ожидалась ошибка для несуществующего поста")
	})

	t.Run("unknown author", func(t *testing.T) {
		err := store.CreatePost(ctx, &models.Post{Text: "x", AuthorID: 1_000_000})
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("duplicate username", func(t *testing.T) {
		err := store.CreateUser(ctx, &models.User{Username: "leo"})
		assert.ErrorIs(t, err, storage.ErrAlreadyExists)

		assert.NoError(t, store.CreateUser(ctx, &models.User{Username: "Leo"}))
	})

	t.Run("ListPosts order, filters and count", func(t *testing.T) {
		base := time.Now().Add(time.Hour).Truncate(time.Microsecond)
		first := &models.Post{Text: "1", AuthorID: author.ID, GroupID: &groupB.ID, CreatedAt: base}
		second := &models.Post{Text: "2", AuthorID: author.ID, GroupID: &groupB.ID, CreatedAt: base}
		third := &models.Post{Text: "3", AuthorID: author.ID, GroupID: &groupB.ID, CreatedAt: base.Add(time.Minute)}
		for _, p := range []*models.Post{first, second, third} {
			require.NoError(t, store.CreatePost(ctx, p))
		}

		posts, err := store.ListPosts(ctx, models.PostFilter{GroupID: &groupB.ID})
		require.NoError(t, err)
		require.Len(t, posts, 3)
		assert.Equal(t, []int64{third.ID, second.ID, first.ID}, []int64{posts[0].ID, posts[1].ID, posts[2].ID})

		page, err := store.ListPosts(ctx, models.PostFilter{GroupID: &groupB.ID, Offset: 2, Limit: 2})
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, first.ID, page[0].ID)

		count, err := store.CountPosts(ctx, models.PostFilter{GroupID: &groupB.ID})
		require.NoError(t, err)
		assert.Equal(t, 3, count)

		inA, err := store.ListPosts(ctx, models.PostFilter{GroupID: &groupA.ID})
		require.NoError(t, err)
		for _, p := range inA {
			assert.NotEqual(t, groupB.ID, *p.GroupID)
		}
	})

	t.Run("UpdatePost and DeletePost", func(t *testing.T) {
		post := &models.Post{Text: "до", AuthorID: author.ID}
		require.NoError(t, store.CreatePost(ctx, post))

		require.NoError(t, store.UpdatePost(ctx, &models.Post{ID: post.ID, Text: "после", GroupID: &groupA.ID}))
		got, err := store.GetPost(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, "после", got.Text)
		assert.Equal(t, groupA.ID, *got.GroupID)

		require.NoError(t, store.DeletePost(ctx, post.ID))
		_, err = store.GetPost(ctx, post.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.ErrorIs(t, store.DeletePost(ctx, post.ID), storage.ErrNotFound)
	})

	t.Run("batch lookups", func(t *testing.T) {
		users, err := store.GetUsersByIDs(ctx, []int64{author.ID, 1_000_000})
		require.NoError(t, err)
		assert.Len(t, users, 1)
		assert.Equal(t, "Лев", users[author.ID].FirstName)

		groups, err := store.GetGroupsByIDs(ctx, []int64{groupA.ID, groupB.ID})
		require.NoError(t, err)
		assert.Len(t, groups, 2)
		assert.Equal(t, "group-b", groups[groupB.ID].Slug)
	})

	t.Run("DeleteGroup keeps posts", func(t *testing.T) {
		group := &models.Group{Slug: "temp", Title: "Temp"}
		require.NoError(t, store.CreateGroup(ctx, group))
		post := &models.Post{Text: "в удаляемой группе", AuthorID: author.ID, GroupID: &group.ID}
		require.NoError(t, store.CreatePost(ctx, post))

		require.NoError(t, store.DeleteGroup(ctx, group.ID))

		got, err := store.GetPost(ctx, post.ID)
		require.NoError(t, err)
		assert.Nil(t, got.GroupID)
	})
}
