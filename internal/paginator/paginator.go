// Package paginator splits an ordered result set into fixed-size pages.
//
// A requested page number never produces an error: an empty or non-numeric value
// selects the first page, and a number outside [1, NumPages] selects the last page.
package paginator

import (
	"context"
	"errors"
	"strconv"
	"strings"
)

// Source - упорядоченная выборка, которую можно посчитать и нарезать.
type Source[T any] interface {
	Count(ctx context.Context) (int, error)
	Slice(ctx context.Context, offset, limit int) ([]T, error)
}

// SliceSource отдает срез, уже находящийся в памяти.
type SliceSource[T any] []T

func (s SliceSource[T]) Count(context.Context) (int, error) {
	return len(s), nil
}

func (s SliceSource[T]) Slice(_ context.Context, offset, limit int) ([]T, error) {
	if offset > len(s) {
		offset = len(s)
	}
	end := offset + limit
	if end > len(s) {
		end = len(s)
	}
	return s[offset:end], nil
}

type Page[T any] struct {
	Items    []T
	Number   int
	NumPages int
	Count    int
	PerPage  int
}

func (p *Page[T]) HasNext() bool {
	return p.Number*p.PerPage < p.Count
}

func (p *Page[T]) HasPrevious() bool {
	return p.Number > 1
}

func (p *Page[T]) HasOtherPages() bool {
	return p.HasNext() || p.HasPrevious()
}

func (p *Page[T]) NextPageNumber() int {
	return p.Number + 1
}

func (p *Page[T]) PreviousPageNumber() int {
	return p.Number - 1
}

func (p *Page[T]) Len() int {
	return len(p.Items)
}

// StartIndex - 1-based номер первого элемента страницы, 0 для пустой выборки.
func (p *Page[T]) StartIndex() int {
	if p.Count == 0 {
		return 0
	}
	return (p.Number-1)*p.PerPage + 1
}

func (p *Page[T]) EndIndex() int {
	return p.StartIndex() + len(p.Items) - 1
}

type Paginator[T any] struct {
	PerPage int
}

func New[T any](perPage int) *Paginator[T] {
	if perPage < 1 {
		perPage = 1
	}
	return &Paginator[T]{PerPage: perPage}
}

// NumPages всегда не меньше 1, пустая выборка дает одну пустую страницу.
func (p *Paginator[T]) NumPages(count int) int {
	if count == 0 {
		return 1
	}
	return (count + p.PerPage - 1) / p.PerPage
}

// Number приводит значение параметра page к допустимому номеру страницы.
func (p *Paginator[T]) Number(raw string, count int) int {
	last := p.NumPages(count)
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	switch {
	case errors.Is(err, strconv.ErrRange):
		return last
	case err != nil:
		return 1
	}
	if n < 1 || n > last {
		return last
	}
	return n
}

func (p *Paginator[T]) GetPage(ctx context.Context, src Source[T], raw string) (*Page[T], error) {
	count, err := src.Count(ctx)
	if err != nil {
		return nil, err
	}
	number := p.Number(raw, count)

	page := &Page[T]{
		Number:   number,
		NumPages: p.NumPages(count),
		Count:    count,
		PerPage:  p.PerPage,
	}
	if count == 0 {
		return page, nil
	}

	page.Items, err = src.Slice(ctx, (number-1)*p.PerPage, p.PerPage)
	if err != nil {
		return nil, err
	}
	return page, nil
}
