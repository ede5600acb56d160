package server

import (
	"bytes"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ButyrinIA/yatube/internal/media"
	"github.com/ButyrinIA/yatube/internal/storage"
)

var (
	errForbidden   = errors.New("forbidden")
	errCrossOrigin = errors.New("cross-origin request")
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, media.ErrNotFound),
		errors.Is(err, media.ErrInvalidName):
		return http.StatusNotFound
	case errors.Is(err, errForbidden), errors.Is(err, errCrossOrigin):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// fail отвечает страницей ошибки, подходящей для err.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch status := statusFor(err); status {
	case http.StatusNotFound:
		s.notFound(w, r)
	case http.StatusForbidden:
		if errors.Is(err, errCrossOrigin) {
			s.errorPage(w, r, http.StatusForbidden, "core/403csrf.html", nil)
			return
		}
		s.errorPage(w, r, http.StatusForbidden, "core/403.html", nil)
	default:
		s.logger.Error("ошибка обработки запроса",
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.Error(err))
		s.errorPage(w, r, http.StatusInternalServerError, "core/500.html", nil)
	}
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	s.errorPage(w, r, http.StatusNotFound, "core/404.html", Context{"path": r.URL.Path})
}

func (s *Server) errorPage(w http.ResponseWriter, r *http.Request, status int, template string, extra Context) {
	data := s.baseContext(r)
	for k, v := range extra {
		data[k] = v
	}
	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, template, data); err != nil {
		s.logger.Error("не удалось отрендерить страницу ошибки", zap.String("template", template), zap.Error(err))
		http.Error(w, http.StatusText(status), status)
		return
	}
	writeHTML(w, status, buf.Bytes())
}

func writeHTML(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
