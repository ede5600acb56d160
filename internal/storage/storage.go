package storage

import (
	"context"
	"errors"

	"github.com/ButyrinIA/yatube/internal/models"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

type Storage interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUsersByIDs(ctx context.Context, ids []int64) (map[int64]*models.User, error)

	CreateGroup(ctx context.Context, group *models.Group) error
	GetGroupBySlug(ctx context.Context, slug string) (*models.Group, error)
	GetGroupsByIDs(ctx context.Context, ids []int64) (map[int64]*models.Group, error)
	ListGroups(ctx context.Context) ([]*models.Group, error)
	DeleteGroup(ctx context.Context, id int64) error

	CreatePost(ctx context.Context, post *models.Post) error
	GetPost(ctx context.Context, id int64) (*models.Post, error)
	UpdatePost(ctx context.Context, post *models.Post) error
	DeletePost(ctx context.Context, id int64) error
	// ListPosts возвращает посты в порядке created_at DESC, id DESC.
	ListPosts(ctx context.Context, filter models.PostFilter) ([]*models.Post, error)
	CountPosts(ctx context.Context, filter models.PostFilter) (int, error)

	Ping(ctx context.Context) error
	Close() error
}

// PostSource отдает выборку постов пагинатору.
type PostSource struct {
	Storage Storage
	Filter  models.PostFilter
}

func (s PostSource) Count(ctx context.Context) (int, error) {
	return s.Storage.CountPosts(ctx, s.Filter)
}

func (s PostSource) Slice(ctx context.Context, offset, limit int) ([]*models.Post, error) {
	f := s.Filter
	f.Offset = offset
	f.Limit = limit
	return s.Storage.ListPosts(ctx, f)
}
