// Package loader batches author and group lookups for a page of posts.
// Loaders are created per request so cached values never outlive it.
package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/graph-gophers/dataloader/v7"

	"github.com/ButyrinIA/yatube/internal/models"
	"github.com/ButyrinIA/yatube/internal/storage"
)

// Все ключи страницы передаются одним LoadMany, долго ждать добора не нужно.
const batchWait = time.Millisecond

type Loaders struct {
	Users  *dataloader.Loader[int64, *models.User]
	Groups *dataloader.Loader[int64, *models.Group]
}

func New(store storage.Storage) *Loaders {
	return &Loaders{
		Users: dataloader.NewBatchedLoader(batch(store.GetUsersByIDs, "user"),
			dataloader.WithWait[int64, *models.User](batchWait)),
		Groups: dataloader.NewBatchedLoader(batch(store.GetGroupsByIDs, "group"),
			dataloader.WithWait[int64, *models.Group](batchWait)),
	}
}

// batch превращает выборку map[id]value в BatchFunc, сохраняя порядок ключей.
func batch[V any](fetch func(context.Context, []int64) (map[int64]V, error), kind string) dataloader.BatchFunc[int64, V] {
	return func(ctx context.Context, keys []int64) []*dataloader.Result[V] {
		results := make([]*dataloader.Result[V], len(keys))
		found, err := fetch(ctx, keys)
		for i, key := range keys {
			switch v, ok := found[key]; {
			case err != nil:
				results[i] = &dataloader.Result[V]{Error: err}
			case !ok:
				results[i] = &dataloader.Result[V]{Error: fmt.Errorf("%s %d: %w", kind, key, storage.ErrNotFound)}
			default:
				results[i] = &dataloader.Result[V]{Data: v}
			}
		}
		return results
	}
}

// Hydrate заполняет Author и Group у постов двумя пакетными запросами.
func (l *Loaders) Hydrate(ctx context.Context, posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}

	userIDs := make([]int64, 0, len(posts))
	var groupIDs []int64
	for _, p := range posts {
		userIDs = append(userIDs, p.AuthorID)
		if p.GroupID != nil {
			groupIDs = append(groupIDs, *p.GroupID)
		}
	}

	usersThunk := l.Users.LoadMany(ctx, userIDs)
	var groupsThunk dataloader.ThunkMany[*models.Group]
	if len(groupIDs) > 0 {
		groupsThunk = l.Groups.LoadMany(ctx, groupIDs)
	}

	users, errs := usersThunk()
	if err := first(errs); err != nil {
		return err
	}
	for i, p := range posts {
		p.Author = users[i]
	}

	if groupsThunk == nil {
		return nil
	}
	groups, errs := groupsThunk()
	if err := first(errs); err != nil {
		return err
	}
	j := 0
	for _, p := range posts {
		if p.GroupID != nil {
			p.Group = groups[j]
			j++
		}
	}
	return nil
}

func first(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
