package server

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/ButyrinIA/yatube/internal/auth"
	"github.com/ButyrinIA/yatube/internal/models"
	"github.com/ButyrinIA/yatube/internal/storage"
)

const minPasswordLen = 8

var usernameRe = regexp.MustCompile(`^[\w.@+-]{1,150}$`)

type userForm struct {
	Username  string
	FirstName string
	LastName  string
	Errors    map[string]string
}

func (f *userForm) addError(field, msg string) {
	if f.Errors == nil {
		f.Errors = make(map[string]string)
	}
	f.Errors[field] = msg
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	form := &userForm{}
	if r.Method == http.MethodPost {
		form.Username = strings.TrimSpace(r.PostFormValue("username"))
		form.FirstName = strings.TrimSpace(r.PostFormValue("first_name"))
		form.LastName = strings.TrimSpace(r.PostFormValue("last_name"))
		password := r.PostFormValue("password1")

		if !usernameRe.MatchString(form.Username) {
			form.addError("username", "Введите правильное имя пользователя: буквы, цифры и символы @/./+/-/_.")
		}
		switch {
		case len([]rune(password)) < minPasswordLen:
			form.addError("password", "Пароль слишком короткий. Он должен содержать как минимум 8 символов.")
		case password != r.PostFormValue("password2"):
			form.addError("password", "Введенные пароли не совпадают.")
		}

		if len(form.Errors) == 0 {
			user, err := s.createUser(r, form, password)
			switch {
			case errors.Is(err, storage.ErrAlreadyExists):
				form.addError("username", "Пользователь с таким именем уже существует.")
			case err != nil:
				s.fail(w, r, err)
				return
			default:
				if err := s.startSession(w, user); err != nil {
					s.fail(w, r, err)
					return
				}
				http.Redirect(w, r, "/", http.StatusFound)
				return
			}
		}
	}

	data := s.baseContext(r)
	data["form"] = form
	s.render(w, r, http.StatusOK, "users/signup.html", data)
}

func (s *Server) createUser(r *http.Request, form *userForm, password string) (*models.User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Username:     form.Username,
		FirstName:    form.FirstName,
		LastName:     form.LastName,
		PasswordHash: hash,
	}
	if err := s.storage.CreateUser(r.Context(), user); err != nil {
		return nil, err
	}
	s.logger.Info("зарегистрирован пользователь", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
	return user, nil
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	next := safeNext(r.URL.Query().Get("next"))
	form := &userForm{}

	if r.Method == http.MethodPost {
		form.Username = strings.TrimSpace(r.PostFormValue("username"))
		user, err := s.storage.GetUserByUsername(r.Context(), form.Username)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			err = auth.ErrInvalidCredentials
		case err == nil:
			err = auth.CheckPassword(user.PasswordHash, r.PostFormValue("password"))
		}

		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			form.addError("__all__", "Пожалуйста, введите правильные имя пользователя и пароль.")
		case err != nil:
			s.fail(w, r, err)
			return
		default:
			if err := s.startSession(w, user); err != nil {
				s.fail(w, r, err)
				return
			}
			target := next
			if target == "" {
				target = "/"
			}
			http.Redirect(w, r, target, http.StatusFound)
			return
		}
	}

	data := s.baseContext(r)
	data["form"] = form
	data["next"] = next
	s.render(w, r, http.StatusOK, "users/login.html", data)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	// шапка страницы выхода рендерится уже для анонимного пользователя
	data := s.baseContext(r)
	delete(data, "user")
	s.render(w, r, http.StatusOK, "users/logged_out.html", data)
}

func (s *Server) startSession(w http.ResponseWriter, user *models.User) error {
	token, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.tokens.TTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// safeNext допускает только локальные пути, чтобы не было открытого редиректа.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return ""
	}
	return next
}
