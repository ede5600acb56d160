// Package media stores post image attachments.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNotFound    = errors.New("media not found")
	ErrNotAnImage  = errors.New("file is not an image")
	ErrTooLarge    = errors.New("file is too large")
	ErrInvalidName = errors.New("invalid media key")
)

type Object struct {
	Key         string
	ContentType string
	Size        int64
}

type Storage interface {
	Put(ctx context.Context, key, contentType string, r io.Reader, size int64) error
	Open(ctx context.Context, key string) (io.ReadCloser, Object, error)
	Delete(ctx context.Context, key string) error
}

var imageExt = map[string]string{
	"image/gif":  ".gif",
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}

// SaveImage проверяет, что содержимое - изображение, и сохраняет его под новым
// ключем вида posts/<uuid><ext>.
func SaveImage(ctx context.Context, st Storage, r io.Reader, maxSize int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > maxSize {
		return "", ErrTooLarge
	}

	contentType := http.DetectContentType(data)
	ext, ok := imageExt[contentType]
	if !ok {
		return "", ErrNotAnImage
	}

	key := "posts/" + uuid.NewString() + ext
	if err := st.Put(ctx, key, contentType, bytes.NewReader(data), int64(len(data))); err != nil {
		return "", err
	}
	return key, nil
}

// CleanKey отбрасывает ключи, выходящие за пределы хранилища.
func CleanKey(key string) (string, error) {
	if key == "" || strings.Contains(key, "\\") {
		return "", ErrInvalidName
	}
	cleaned := path.Clean("/" + key)[1:]
	if cleaned == "" || cleaned != key {
		return "", ErrInvalidName
	}
	return cleaned, nil
}
