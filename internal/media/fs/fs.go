package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/ButyrinIA/yatube/internal/media"
)

type Storage struct {
	root string
}

func New(root string) (*Storage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create media root: %w", err)
	}
	return &Storage{root: root}, nil
}

func (s *Storage) path(key string) (string, error) {
	key, err := media.CleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}

func (s *Storage) Put(_ context.Context, key, _ string, r io.Reader, _ int64) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create media dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write media: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close media: %w", err)
	}
	return os.Rename(tmp.Name(), p)
}

func (s *Storage) Open(_ context.Context, key string) (io.ReadCloser, media.Object, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, media.Object{}, err
	}
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, media.Object{}, fmt.Errorf("%s: %w", key, media.ErrNotFound)
	}
	if err != nil {
		return nil, media.Object{}, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, media.Object{}, err
	}
	if info.IsDir() {
		f.Close()
		return nil, media.Object{}, fmt.Errorf("%s: %w", key, media.ErrNotFound)
	}
	return f, media.Object{
		Key:         key,
		ContentType: mime.TypeByExtension(filepath.Ext(p)),
		Size:        info.Size(),
	}, nil
}

func (s *Storage) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
