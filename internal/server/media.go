package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func (s *Server) serveMedia(w http.ResponseWriter, r *http.Request) {
	rc, obj, err := s.media.Open(r.Context(), mux.Vars(r)["key"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer rc.Close()

	if obj.ContentType != "" {
		w.Header().Set("Content-Type", obj.ContentType)
	}
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, rc); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("ошибка отдачи файла", zap.String("key", obj.Key), zap.Error(err))
	}
}
