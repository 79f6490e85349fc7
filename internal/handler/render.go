package handler

import (
	"fmt"
	"html/template"
	"io"

	"github.com/labstack/echo/v4"
)

// Renderer implements echo.Renderer over html/template. Each page template
// is defined by name inside the glob; shared layout bits live in the same
// files.
type Renderer struct {
	templates *template.Template
}

// NewRenderer parses every template under the given glob (e.g.
// "web/templates/*.html").
func NewRenderer(glob string) (*Renderer, error) {
	t, err := template.ParseGlob(glob)
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{templates: t}, nil
}

func (r *Renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}
