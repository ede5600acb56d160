package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ButyrinIA/yatube/internal/models"
	"github.com/ButyrinIA/yatube/internal/storage"
)

type MemoryStorage struct {
	users  map[int64]*models.User
	groups map[int64]*models.Group
	posts  map[int64]*models.Post

	lastUserID  int64
	lastGroupID int64
	lastPostID  int64

	mu sync.RWMutex
}

func New() *MemoryStorage {
	return &MemoryStorage{
		users:  make(map[int64]*models.User),
		groups: make(map[int64]*models.Group),
		posts:  make(map[int64]*models.Post),
	}
}

func (s *MemoryStorage) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == user.Username {
			return fmt.Errorf("user %q: %w", user.Username, storage.ErrAlreadyExists)
		}
	}
	s.lastUserID++
	user.ID = s.lastUserID
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	u := *user
	s.users[u.ID] = &u
	return nil
}

func (s *MemoryStorage) GetUser(ctx context.Context, id int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, storage.ErrNotFound)
	}
	res := *u
	return &res, nil
}

func (s *MemoryStorage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			res := *u
			return &res, nil
		}
	}
	return nil, fmt.Errorf("user %q: %w", username, storage.ErrNotFound)
}

func (s *MemoryStorage) GetUsersByIDs(ctx context.Context, ids []int64) (map[int64]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := make(map[int64]*models.User, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			cp := *u
			res[id] = &cp
		}
	}
	return res, nil
}

func (s *MemoryStorage) CreateGroup(ctx context.Context, group *models.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, g := range s.groups {
		if g.Slug == group.Slug {
			return fmt.Errorf("group %q: %w", group.Slug, storage.ErrAlreadyExists)
		}
	}
	s.lastGroupID++
	group.ID = s.lastGroupID
	g := *group
	s.groups[g.ID] = &g
	return nil
}

func (s *MemoryStorage) GetGroupBySlug(ctx context.Context, slug string) (*models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, g := range s.groups {
		if g.Slug == slug {
			res := *g
			return &res, nil
		}
	}
	return nil, fmt.Errorf("group %q: %w", slug, storage.ErrNotFound)
}

func (s *MemoryStorage) GetGroupsByIDs(ctx context.Context, ids []int64) (map[int64]*models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := make(map[int64]*models.Group, len(ids))
	for _, id := range ids {
		if g, ok := s.groups[id]; ok {
			cp := *g
			res[id] = &cp
		}
	}
	return res, nil
}

func (s *MemoryStorage) ListGroups(ctx context.Context) ([]*models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := make([]*models.Group, 0, len(s.groups))
	for _, g := range s.groups {
		cp := *g
		res = append(res, &cp)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Title < res[j].Title })
	return res, nil
}

func (s *MemoryStorage) DeleteGroup(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[id]; !ok {
		return fmt.Errorf("group %d: %w", id, storage.ErrNotFound)
	}
	delete(s.groups, id)
	for _, p := range s.posts {
		if p.GroupID != nil && *p.GroupID == id {
			p.GroupID = nil
		}
	}
	return nil
}

func (s *MemoryStorage) CreatePost(ctx context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[post.AuthorID]; !ok {
		return fmt.Errorf("author %d: %w", post.AuthorID, storage.ErrNotFound)
	}
	s.lastPostID++
	post.ID = s.lastPostID
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now()
	}
	s.posts[post.ID] = clonePost(post)
	return nil
}

func (s *MemoryStorage) GetPost(ctx context.Context, id int64) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return nil, fmt.Errorf("post %d: %w", id, storage.ErrNotFound)
	}
	return clonePost(p), nil
}

func (s *MemoryStorage) UpdatePost(ctx context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[post.ID]
	if !ok {
		return fmt.Errorf("post %d: %w", post.ID, storage.ErrNotFound)
	}
	p.Text = post.Text
	p.GroupID = copyID(post.GroupID)
	p.Image = post.Image
	return nil
}

func (s *MemoryStorage) DeletePost(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[id]; !ok {
		return fmt.Errorf("post %d: %w", id, storage.ErrNotFound)
	}
	delete(s.posts, id)
	return nil
}

func (s *MemoryStorage) ListPosts(ctx context.Context, filter models.PostFilter) ([]*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	posts := s.filtered(filter)
	sort.Slice(posts, func(i, j int) bool {
		if posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].ID > posts[j].ID
		}
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})

	start := filter.Offset
	if start < 0 {
		start = 0
	}
	if start > len(posts) {
		start = len(posts)
	}
	end := len(posts)
	if filter.Limit > 0 && start+filter.Limit < end {
		end = start + filter.Limit
	}

	result := make([]*models.Post, 0, end-start)
	for _, p := range posts[start:end] {
		result = append(result, clonePost(p))
	}
	return result, nil
}

func (s *MemoryStorage) CountPosts(ctx context.Context, filter models.PostFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.filtered(filter)), nil
}

func (s *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}

func (s *MemoryStorage) Close() error {
	return nil
}

// filtered вызывается под s.mu.
func (s *MemoryStorage) filtered(filter models.PostFilter) []*models.Post {
	var posts []*models.Post
	for _, p := range s.posts {
		if filter.AuthorID != nil && p.AuthorID != *filter.AuthorID {
			continue
		}
		if filter.GroupID != nil && (p.GroupID == nil || *p.GroupID != *filter.GroupID) {
			continue
		}
		posts = append(posts, p)
	}
	return posts
}

func clonePost(p *models.Post) *models.Post {
	cp := *p
	cp.GroupID = copyID(p.GroupID)
	cp.Author = nil
	cp.Group = nil
	return &cp
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
