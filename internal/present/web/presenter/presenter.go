// Package presenter renders portal pages from the embedded templates.
package presenter

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gorilla/csrf"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
	"go.opentelemetry.io/otel/trace"

	"github.com/totegamma/concrnt-console"
	"github.com/totegamma/concrnt-console/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

const layout = "layout.html"

// Refresh is a meta refresh emitted in the page head.
type Refresh struct {
	Seconds int
	URL     string
}

// Page is the data handed to every template.
type Page struct {
	Title   string
	Profile concrnt.DomainProfile
	Session domain.Session
	IsAdmin bool
	Error   string
	Notice  string
	Refresh *Refresh
	Data    any

	CSRFField template.HTML
}

type Presenter struct {
	pages map[string]*template.Template
	md    goldmark.Markdown
}

func New() (*Presenter, error) {
	p := &Presenter{
		pages: map[string]*template.Template{},
		md:    goldmark.New(goldmark.WithRendererOptions(goldmarkHTML.WithHardWraps())),
	}

	names, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	for _, name := range names {
		base := path.Base(name)
		if base == layout {
			continue
		}
		tmpl, err := template.New(layout).
			Funcs(p.funcs()).
			ParseFS(templateFS, "templates/"+layout, name)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse "+base)
		}
		p.pages[base] = tmpl
	}

	return p, nil
}

func (p *Presenter) funcs() template.FuncMap {
	return template.FuncMap{
		"markdown": p.Markdown,
		"date": func(t time.Time) string {
			if t.IsZero() {
				return "-"
			}
			return t.Format("2006-01-02 15:04")
		},
		"join": strings.Join,
	}
}

// Markdown renders a legal document. Raw html in the source is not passed
// through; plain text stays readable with hard wraps.
func (p *Presenter) Markdown(source string) template.HTML {
	var buf bytes.Buffer
	if err := p.md.Convert([]byte(source), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(source))
	}
	return template.HTML(buf.String())
}

// Render executes the named page inside the layout.
func (p *Presenter) Render(c echo.Context, status int, name string, page Page) error {
	tmpl, ok := p.pages[name]
	if !ok {
		return InternalError(c, errors.New("unknown page "+name))
	}

	page.CSRFField = csrf.TemplateField(c.Request())

	var buf bytes.Buffer
	err := tmpl.ExecuteTemplate(&buf, layout, page)
	if err != nil {
		return InternalError(c, errors.Wrap(err, "failed to render "+name))
	}

	return c.HTMLBlob(status, buf.Bytes())
}

// Error renders the error page with message as the banner.
func (p *Presenter) Error(c echo.Context, status int, page Page, message string) error {
	page.Error = message
	if page.Title == "" {
		page.Title = http.StatusText(status)
	}
	return p.Render(c, status, "error.html", page)
}

// OK wraps a successful JSON response.
func OK(c echo.Context, payload any) error {
	return c.JSON(http.StatusOK, payload)
}

func InternalError(c echo.Context, err error) error {
	ctx := c.Request().Context()
	traceID := trace.SpanContextFromContext(ctx).TraceID().String()
	slog.ErrorContext(
		ctx, "internal error",
		slog.String("error", err.Error()),
		slog.String("traceID", traceID),
		slog.String("module", "web"),
	)
	return c.String(http.StatusInternalServerError, "internal error ("+traceID+")")
}
