package web

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/totegamma/concrnt-console"
	"github.com/totegamma/concrnt-console/client"
	"github.com/totegamma/concrnt-console/internal/domain"
	"github.com/totegamma/concrnt-console/internal/present/web/middleware"
	"github.com/totegamma/concrnt-console/internal/present/web/presenter"
	"github.com/totegamma/concrnt-console/internal/usecase"
)

// adminPanel serves the routes of one admin list.
type adminPanel interface {
	list(h *Handler, c echo.Context) error
	create(h *Handler, c echo.Context) error
	update(h *Handler, c echo.Context) error
	remove(h *Handler, c echo.Context) error
}

// resource describes how records of one kind are shown and edited.
type resource[T any] struct {
	kind        string
	title       string
	createLabel string
	columns     []string
	key         func(T) string
	row         func(T) []string
	details     func(T) []presenter.Property
	fields      func(T) []presenter.EditField
	apply       func(T, url.Values) (T, error)
	open        func(*usecase.AdminUsecase, domain.Session) (*usecase.Panel[T], error)
}

var panels = map[string]adminPanel{
	"entities": entities,
	"domains":  domains,
	"hosts":    hosts,
}

func (h *Handler) panelFor(c echo.Context) (adminPanel, error) {
	panel, ok := panels[c.Param("kind")]
	if !ok {
		return nil, domain.NotFoundError{Resource: "admin panel " + c.Param("kind")}
	}
	return panel, nil
}

func (h *Handler) handleAdminList(c echo.Context) error {
	panel, err := h.panelFor(c)
	if err != nil {
		return h.fail(c, err)
	}
	return panel.list(h, c)
}

func (h *Handler) handleAdminCreate(c echo.Context) error {
	panel, err := h.panelFor(c)
	if err != nil {
		return h.fail(c, err)
	}
	return panel.create(h, c)
}

func (h *Handler) handleAdminUpdate(c echo.Context) error {
	panel, err := h.panelFor(c)
	if err != nil {
		return h.fail(c, err)
	}
	return panel.update(h, c)
}

func (h *Handler) handleAdminDelete(c echo.Context) error {
	panel, err := h.panelFor(c)
	if err != nil {
		return h.fail(c, err)
	}
	return panel.remove(h, c)
}

// load opens a panel for the current session and fills it.
func (r resource[T]) load(h *Handler, c echo.Context) (*usecase.Panel[T], error) {
	panel, err := r.open(h.admin, middleware.Session(c))
	if err != nil {
		return nil, err
	}
	_, err = panel.Refresh(c.Request().Context())
	if err != nil {
		panel.Close()
		return nil, err
	}
	return panel, nil
}

func (r resource[T]) render(h *Handler, c echo.Context, panel *usecase.Panel[T], status int, failure error) error {
	page := h.page(c, r.title)

	view := presenter.PanelView{
		Kind:        r.kind,
		Title:       r.title,
		CreateLabel: r.createLabel,
		Tabs:        tabs(r.kind),
		Columns:     r.columns,
	}
	for _, item := range panel.Items() {
		view.Rows = append(view.Rows, presenter.Row{ID: r.key(item), Cells: r.row(item)})
	}
	if item, ok := panel.Selected(); ok {
		view.Selected = &presenter.Detail{
			ID:       r.key(item),
			ReadOnly: r.details(item),
			Fields:   r.fields(item),
		}
	}
	if failure != nil {
		_, page.Error = describe(failure)
	}

	page.Data = view
	return h.presenter.Render(c, status, "admin.html", page)
}

// failed renders a mutation failure on the panel it happened on.
// Authorization failures end the session instead.
func (r resource[T]) failed(h *Handler, c echo.Context, panel *usecase.Panel[T], err error) error {
	if errors.Is(err, client.ErrUnauthorized) || errors.Is(err, domain.ErrNoCredential) {
		return h.fail(c, err)
	}
	status, _ := describe(err)
	return r.render(h, c, panel, status, err)
}

func (r resource[T]) list(h *Handler, c echo.Context) error {
	panel, err := r.load(h, c)
	if err != nil {
		return h.fail(c, err)
	}
	defer panel.Close()

	var failure error
	if id := c.QueryParam("select"); id != "" {
		_, failure = panel.Select(id)
	}

	status := http.StatusOK
	if failure != nil {
		status, _ = describe(failure)
	}
	return r.render(h, c, panel, status, failure)
}

func (r resource[T]) create(h *Handler, c echo.Context) error {
	panel, err := r.load(h, c)
	if err != nil {
		return h.fail(c, err)
	}
	defer panel.Close()

	err = panel.Create(c.Request().Context(), strings.TrimSpace(c.FormValue("id")))
	if err != nil {
		return r.failed(h, c, panel, err)
	}
	return c.Redirect(http.StatusSeeOther, "/admin/"+r.kind)
}

func (r resource[T]) update(h *Handler, c echo.Context) error {
	panel, err := r.load(h, c)
	if err != nil {
		return h.fail(c, err)
	}
	defer panel.Close()

	buffer, err := panel.Select(c.Param("id"))
	if err != nil {
		return r.failed(h, c, panel, err)
	}

	values, err := c.FormParams()
	if err != nil {
		return r.failed(h, c, panel, errors.Join(domain.ErrMalformedInput, err))
	}
	item, err := r.apply(buffer, values)
	if err != nil {
		return r.failed(h, c, panel, err)
	}

	err = panel.Update(c.Request().Context(), item)
	if err != nil {
		return r.failed(h, c, panel, err)
	}
	return c.Redirect(http.StatusSeeOther, "/admin/"+r.kind)
}

func (r resource[T]) remove(h *Handler, c echo.Context) error {
	panel, err := r.load(h, c)
	if err != nil {
		return h.fail(c, err)
	}
	defer panel.Close()

	err = panel.Delete(c.Request().Context(), c.Param("id"))
	if err != nil {
		return r.failed(h, c, panel, err)
	}
	return c.Redirect(http.StatusSeeOther, "/admin/"+r.kind)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04")
}

// score reads an integer field, keeping current when the field is absent.
func score(values url.Values, current int) (int, error) {
	raw := strings.TrimSpace(values.Get("score"))
	if raw == "" {
		return current, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Join(domain.ErrMalformedInput, errors.New("score must be an integer"))
	}
	return n, nil
}

func checked(values url.Values, name string) bool {
	switch values.Get(name) {
	case "true", "on", "1":
		return true
	default:
		return false
	}
}

var entities = resource[concrnt.Entity]{
	kind:        "entities",
	title:       "Entities",
	createLabel: "CCID",
	columns:     []string{"CCID", "Tag", "Score", "Registered"},
	key:         concrnt.Entity.CCID,
	row: func(e concrnt.Entity) []string {
		return []string{e.CCID(), strings.Join(e.Tags(), ", "), strconv.Itoa(e.Score), formatDate(e.CDate)}
	},
	details: func(e concrnt.Entity) []presenter.Property {
		return []presenter.Property{
			{Label: "Domain", Value: e.Domain},
			{Label: "Registered", Value: formatDate(e.CDate)},
		}
	},
	fields: func(e concrnt.Entity) []presenter.EditField {
		return []presenter.EditField{
			{Name: "tag", Label: "Tag", Type: "text", Value: e.Tag},
			{Name: "score", Label: "Score", Type: "number", Value: strconv.Itoa(e.Score)},
			{Name: "isScoreFixed", Label: "Fix score", Type: "checkbox", Checked: e.IsScoreFixed},
		}
	},
	apply: func(e concrnt.Entity, values url.Values) (concrnt.Entity, error) {
		n, err := score(values, e.Score)
		if err != nil {
			return e, err
		}
		e.Tag = strings.TrimSpace(values.Get("tag"))
		e.Score = n
		e.IsScoreFixed = checked(values, "isScoreFixed")
		return e, nil
	},
	open: (*usecase.AdminUsecase).Entities,
}

var domains = resource[concrnt.Domain]{
	kind:        "domains",
	title:       "Domains",
	createLabel: "FQDN",
	columns:     []string{"FQDN", "CCID", "Tag", "Score", "Last scraped"},
	key:         func(d concrnt.Domain) string { return d.ID },
	row: func(d concrnt.Domain) []string {
		return []string{d.ID, d.CCID, d.Tag, strconv.Itoa(d.Score), formatDate(d.LastScraped)}
	},
	details: func(d concrnt.Domain) []presenter.Property {
		return []presenter.Property{
			{Label: "CCID", Value: d.CCID},
			{Label: "Public key", Value: d.Pubkey},
			{Label: "Created", Value: formatDate(d.CDate)},
			{Label: "Modified", Value: formatDate(d.MDate)},
		}
	},
	fields: func(d concrnt.Domain) []presenter.EditField {
		return []presenter.EditField{
			{Name: "tag", Label: "Tag", Type: "text", Value: d.Tag},
			{Name: "score", Label: "Score", Type: "number", Value: strconv.Itoa(d.Score)},
			{Name: "isScoreFixed", Label: "Fix score", Type: "checkbox", Checked: d.IsScoreFixed},
		}
	},
	apply: func(d concrnt.Domain, values url.Values) (concrnt.Domain, error) {
		n, err := score(values, d.Score)
		if err != nil {
			return d, err
		}
		d.Tag = strings.TrimSpace(values.Get("tag"))
		d.Score = n
		d.IsScoreFixed = checked(values, "isScoreFixed")
		return d, nil
	},
	open: (*usecase.AdminUsecase).Domains,
}

var hosts = resource[concrnt.Host]{
	kind:        "hosts",
	title:       "Hosts",
	createLabel: "FQDN",
	columns:     []string{"FQDN", "CCID", "Role", "Score"},
	key:         func(h concrnt.Host) string { return h.ID },
	row: func(h concrnt.Host) []string {
		return []string{h.ID, h.CCAddr, h.Role, strconv.Itoa(h.Score)}
	},
	details: func(h concrnt.Host) []presenter.Property {
		return []presenter.Property{
			{Label: "CCID", Value: h.CCAddr},
			{Label: "Public key", Value: h.Pubkey},
			{Label: "Created", Value: formatDate(h.CDate)},
		}
	},
	fields: func(h concrnt.Host) []presenter.EditField {
		return []presenter.EditField{
			{Name: "role", Label: "Role", Type: "text", Value: h.Role},
			{Name: "score", Label: "Score", Type: "number", Value: strconv.Itoa(h.Score)},
		}
	},
	apply: func(h concrnt.Host, values url.Values) (concrnt.Host, error) {
		n, err := score(values, h.Score)
		if err != nil {
			return h, err
		}
		h.Role = strings.TrimSpace(values.Get("role"))
		h.Score = n
		return h, nil
	},
	open: (*usecase.AdminUsecase).Hosts,
}
