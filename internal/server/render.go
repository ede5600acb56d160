package server

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"strings"
	"time"
)

//go:embed templates
var templateFS embed.FS

// Context - данные, передаваемые в шаблон.
type Context map[string]any

type Renderer interface {
	Render(w io.Writer, name string, data Context) error
}

// TemplateRenderer собирает каждую страницу из base.html, includes/* и самой страницы.
type TemplateRenderer struct {
	pages map[string]*template.Template
}

var templateFuncs = template.FuncMap{
	"date": func(t time.Time) string {
		return t.Format("02.01.2006")
	},
	"truncate": func(n int, s string) string {
		r := []rune(s)
		if len(r) <= n {
			return s
		}
		return string(r[:n]) + "…"
	},
	"paragraphs": func(s string) []string {
		return strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	},
}

func NewTemplateRenderer() (*TemplateRenderer, error) {
	root, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, err
	}
	pages := make(map[string]*template.Template)
	for _, dir := range []string{"core", "posts", "users"} {
		names, err := fs.Glob(root, dir+"/*.html")
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			t, err := template.New(name).Funcs(templateFuncs).ParseFS(root, "base.html", "includes/*.html", name)
			if err != nil {
				return nil, fmt.Errorf("parse template %s: %w", name, err)
			}
			pages[name] = t
		}
	}
	return &TemplateRenderer{pages: pages}, nil
}

func (r *TemplateRenderer) Render(w io.Writer, name string, data Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	return t.ExecuteTemplate(w, "base", data)
}
