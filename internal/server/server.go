package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ButyrinIA/yatube/internal/auth"
	"github.com/ButyrinIA/yatube/internal/cache"
	"github.com/ButyrinIA/yatube/internal/config"
	"github.com/ButyrinIA/yatube/internal/media"
	mediafs "github.com/ButyrinIA/yatube/internal/media/fs"
	"github.com/ButyrinIA/yatube/internal/models"
	"github.com/ButyrinIA/yatube/internal/paginator"
	"github.com/ButyrinIA/yatube/internal/storage"
)

// Pinger проверяет доступность зависимости для /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Cache    *cache.ResponseCache
	Media    media.Storage
	Tokens   *auth.TokenManager
	Renderer Renderer
	Logger   *zap.Logger
	// Pingers - дополнительные зависимости для /readyz, хранилище проверяется всегда.
	Pingers map[string]Pinger
}

type Server struct {
	cfg       *config.Config
	storage   storage.Storage
	responses *cache.ResponseCache
	media     media.Storage
	tokens    *auth.TokenManager
	renderer  Renderer
	logger    *zap.Logger
	pages     *paginator.Paginator[*models.Post]
	pingers   map[string]Pinger
	handler   http.Handler
}

func New(cfg *config.Config, storage storage.Storage, opts Options) (*Server, error) {
	s := &Server{
		cfg:       cfg,
		storage:   storage,
		responses: opts.Cache,
		media:     opts.Media,
		tokens:    opts.Tokens,
		renderer:  opts.Renderer,
		logger:    opts.Logger,
		pages:     paginator.New[*models.Post](cfg.Pagination.PageSize),
		pingers:   map[string]Pinger{"storage": storage},
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.responses == nil {
		s.responses = cache.NewResponseCache(cache.NewMemory(cache.MemoryOptions{}), cfg.Cache.TTL, s.logger)
	}
	if s.media == nil {
		st, err := mediafs.New(cfg.Media.Root)
		if err != nil {
			return nil, err
		}
		s.media = st
	}
	if s.tokens == nil {
		s.tokens = auth.NewTokenManager(cfg.Auth.Secret, "yatube", cfg.Auth.TokenTTL)
	}
	if s.renderer == nil {
		r, err := NewTemplateRenderer()
		if err != nil {
			return nil, err
		}
		s.renderer = r
	}
	for name, p := range opts.Pingers {
		s.pingers[name] = p
	}

	s.handler = s.routes()
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

// ClearCache сбрасывает все закэшированные страницы.
func (s *Server) ClearCache(ctx context.Context) error {
	return s.responses.Clear(ctx)
}

// Run обслуживает запросы до отмены ctx, затем корректно останавливает сервер.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         ":" + s.cfg.Server.Port,
		Handler:      s.handler,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("сервер запущен", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("остановка сервера")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
