package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/ButyrinIA/yatube/internal/loader"
	"github.com/ButyrinIA/yatube/internal/media"
	"github.com/ButyrinIA/yatube/internal/models"
	"github.com/ButyrinIA/yatube/internal/storage"
)

type postForm struct {
	Text   string
	Group  string
	Groups []*models.Group
	Errors map[string]string

	groupID  *int64
	imageKey string
}

func (f *postForm) addError(field, msg string) {
	if f.Errors == nil {
		f.Errors = make(map[string]string)
	}
	f.Errors[field] = msg
}

func (f *postForm) Valid() bool {
	return len(f.Errors) == 0
}

func (s *Server) postFromPath(ctx context.Context, r *http.Request) (*models.Post, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("post id %q: %w", mux.Vars(r)["id"], storage.ErrNotFound)
	}
	return s.storage.GetPost(ctx, id)
}

func (s *Server) postDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	post, err := s.postFromPath(ctx, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := loader.New(s.storage).Hydrate(ctx, []*models.Post{post}); err != nil {
		s.fail(w, r, err)
		return
	}
	count, err := s.storage.CountPosts(ctx, models.PostFilter{AuthorID: &post.AuthorID})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	data := s.baseContext(r)
	data["post"] = post
	data["posts_count"] = count
	u := currentUser(ctx)
	data["is_author"] = u != nil && u.ID == post.AuthorID
	s.render(w, r, http.StatusOK, "posts/post_detail.html", data)
}

func (s *Server) postCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := currentUser(ctx)

	form, err := s.newPostForm(ctx, nil)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if r.Method == http.MethodPost {
		if err := s.bindPostForm(w, r, form); err != nil {
			s.fail(w, r, err)
			return
		}
		if form.Valid() {
			post := &models.Post{
				Text:     form.Text,
				AuthorID: user.ID,
				GroupID:  form.groupID,
				Image:    form.imageKey,
			}
			if err := s.storage.CreatePost(ctx, post); err != nil {
				s.discardUpload(ctx, form)
				s.fail(w, r, err)
				return
			}
			s.logger.Info("пост создан", zap.Int64("post_id", post.ID), zap.Int64("author_id", user.ID))
			http.Redirect(w, r, "/profile/"+user.Username+"/", http.StatusFound)
			return
		}
	}

	data := s.baseContext(r)
	data["form"] = form
	data["is_edit"] = false
	s.render(w, r, http.StatusOK, "posts/create_post.html", data)
}

func (s *Server) postEdit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := currentUser(ctx)

	post, err := s.postFromPath(ctx, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	detailURL := "/posts/" + strconv.FormatInt(post.ID, 10) + "/"
	if post.AuthorID != user.ID {
		if r.Method == http.MethodPost {
			s.fail(w, r, errForbidden)
			return
		}
		http.Redirect(w, r, detailURL, http.StatusFound)
		return
	}

	form, err := s.newPostForm(ctx, post)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if r.Method == http.MethodPost {
		if err := s.bindPostForm(w, r, form); err != nil {
			s.fail(w, r, err)
			return
		}
		if form.Valid() {
			oldImage := post.Image
			post.Text = form.Text
			post.GroupID = form.groupID
			if form.imageKey != "" {
				post.Image = form.imageKey
			}
			if err := s.storage.UpdatePost(ctx, post); err != nil {
				s.discardUpload(ctx, form)
				s.fail(w, r, err)
				return
			}
			if oldImage != "" && oldImage != post.Image {
				if err := s.media.Delete(ctx, oldImage); err != nil {
					s.logger.Warn("не удалось удалить старую картинку", zap.String("key", oldImage), zap.Error(err))
				}
			}
			http.Redirect(w, r, detailURL, http.StatusFound)
			return
		}
	}

	data := s.baseContext(r)
	data["form"] = form
	data["post"] = post
	data["is_edit"] = true
	s.render(w, r, http.StatusOK, "posts/create_post.html", data)
}

func (s *Server) newPostForm(ctx context.Context, post *models.Post) (*postForm, error) {
	groups, err := s.storage.ListGroups(ctx)
	if err != nil {
		return nil, err
	}
	form := &postForm{Groups: groups}
	if post != nil {
		form.Text = post.Text
		form.groupID = post.GroupID
		if post.GroupID != nil {
			form.Group = strconv.FormatInt(*post.GroupID, 10)
		}
	}
	return form, nil
}

// bindPostForm заполняет форму из запроса. Ошибки валидации попадают в
// form.Errors, возвращаются только ошибки хранилищ.
func (s *Server) bindPostForm(w http.ResponseWriter, r *http.Request, form *postForm) error {
	maxSize := s.cfg.Media.MaxUploadSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+1<<20)
	if err := r.ParseMultipartForm(maxSize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		form.addError("image", "Не удалось прочитать форму: файл слишком большой")
		return nil
	}

	form.Text = strings.TrimSpace(r.PostFormValue("text"))
	if form.Text == "" {
		form.addError("text", "Обязательное поле.")
	}

	form.Group = r.PostFormValue("group")
	form.groupID = nil
	if form.Group != "" {
		id, err := strconv.ParseInt(form.Group, 10, 64)
		if err != nil || !hasGroup(form.Groups, id) {
			form.addError("group", "Выберите корректный вариант. Вашего варианта нет среди допустимых значений.")
		} else {
			form.groupID = &id
		}
	}

	file, _, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return nil
	case err != nil:
		form.addError("image", "Не удалось прочитать файл.")
		return nil
	}
	defer file.Close()

	if !form.Valid() {
		return nil
	}
	key, err := media.SaveImage(r.Context(), s.media, file, maxSize)
	switch {
	case errors.Is(err, media.ErrNotAnImage):
		form.addError("image", "Загрузите правильное изображение. Файл, который вы загрузили, поврежден или не является изображением.")
	case errors.Is(err, media.ErrTooLarge):
		form.addError("image", "Файл слишком большой.")
	case err != nil:
		return err
	default:
		form.imageKey = key
	}
	return nil
}

// discardUpload удаляет картинку, сохраненную для поста, который не удалось записать.
func (s *Server) discardUpload(ctx context.Context, form *postForm) {
	if form.imageKey == "" {
		return
	}
	if err := s.media.Delete(ctx, form.imageKey); err != nil {
		s.logger.Warn("не удалось удалить загруженную картинку", zap.String("key", form.imageKey), zap.Error(err))
	}
}

func hasGroup(groups []*models.Group, id int64) bool {
	for _, g := range groups {
		if g.ID == id {
			return true
		}
	}
	return false
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data Context) {
	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, name, data); err != nil {
		s.fail(w, r, err)
		return
	}
	writeHTML(w, status, buf.Bytes())
}
