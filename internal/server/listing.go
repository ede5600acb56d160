package server

import (
	"bytes"
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/ButyrinIA/yatube/internal/cache"
	"github.com/ButyrinIA/yatube/internal/loader"
	"github.com/ButyrinIA/yatube/internal/models"
	"github.com/ButyrinIA/yatube/internal/storage"
)

// listingRoute описывает страницу со списком постов. cached - единственный
// переключатель кэша ответов для маршрута.
type listingRoute struct {
	name     string
	path     string
	template string
	cached   bool
	resolve  func(ctx context.Context, r *http.Request) (*listing, error)
}

type listing struct {
	filter models.PostFilter
	extra  Context
}

func (s *Server) listingRoutes() []listingRoute {
	return []listingRoute{
		{
			name:     "index",
			path:     "/",
			template: "posts/index.html",
			cached:   true,
			resolve: func(context.Context, *http.Request) (*listing, error) {
				return &listing{}, nil
			},
		},
		{
			name:     "group_list",
			path:     "/group/{slug}/",
			template: "posts/group_list.html",
			resolve:  s.resolveGroup,
		},
		{
			name:     "profile",
			path:     "/profile/{username}/",
			template: "posts/profile.html",
			resolve:  s.resolveProfile,
		},
	}
}

func (s *Server) resolveGroup(ctx context.Context, r *http.Request) (*listing, error) {
	group, err := s.storage.GetGroupBySlug(ctx, mux.Vars(r)["slug"])
	if err != nil {
		return nil, err
	}
	return &listing{
		filter: models.PostFilter{GroupID: &group.ID},
		extra:  Context{"group": group},
	}, nil
}

func (s *Server) resolveProfile(ctx context.Context, r *http.Request) (*listing, error) {
	author, err := s.storage.GetUserByUsername(ctx, mux.Vars(r)["username"])
	if err != nil {
		return nil, err
	}
	return &listing{
		filter: models.PostFilter{AuthorID: &author.ID},
		extra:  Context{"author": author},
	}, nil
}

func (s *Server) listingHandler(rt listingRoute) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		render := func(ctx context.Context) ([]byte, error) {
			return s.renderListing(ctx, r, rt)
		}

		var (
			body []byte
			err  error
		)
		if rt.cached {
			body, err = s.responses.GetOrRender(r.Context(), cache.Key(s.cacheKeyPrefix(r, rt), r.URL), render)
		} else {
			body, err = render(r.Context())
		}
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeHTML(w, http.StatusOK, body)
	})
}

// cacheKeyPrefix разделяет кэш анонимных и вошедших пользователей: в шапке
// страницы выводится имя текущего пользователя.
func (s *Server) cacheKeyPrefix(r *http.Request, rt listingRoute) string {
	prefix := rt.name + "_page"
	if u := currentUser(r.Context()); u != nil {
		prefix += ":u" + strconv.FormatInt(u.ID, 10)
	}
	return prefix
}

func (s *Server) renderListing(ctx context.Context, r *http.Request, rt listingRoute) ([]byte, error) {
	l, err := rt.resolve(ctx, r)
	if err != nil {
		return nil, err
	}

	src := storage.PostSource{Storage: s.storage, Filter: l.filter}
	page, err := s.pages.GetPage(ctx, src, r.URL.Query().Get("page"))
	if err != nil {
		return nil, err
	}
	if err := loader.New(s.storage).Hydrate(ctx, page.Items); err != nil {
		return nil, err
	}

	data := s.baseContext(r)
	data["page_obj"] = page
	for k, v := range l.extra {
		data[k] = v
	}

	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, rt.template, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
