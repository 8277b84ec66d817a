package web

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"

	"github.com/totegamma/concrnt-console/client"
	"github.com/totegamma/concrnt-console/internal/config"
	"github.com/totegamma/concrnt-console/internal/domain"
	"github.com/totegamma/concrnt-console/internal/present/web/middleware"
	"github.com/totegamma/concrnt-console/internal/present/web/presenter"
	"github.com/totegamma/concrnt-console/internal/usecase"
)

var tracer = otel.Tracer("web")

type Handler struct {
	config    config.Portal
	server    *usecase.ServerUsecase
	sessions  *usecase.SessionUsecase
	login     *usecase.LoginUsecase
	register  *usecase.RegistrationUsecase
	admin     *usecase.AdminUsecase
	cookies   *middleware.SessionMiddleware
	presenter *presenter.Presenter
}

func NewHandler(
	config config.Portal,
	server *usecase.ServerUsecase,
	sessions *usecase.SessionUsecase,
	login *usecase.LoginUsecase,
	register *usecase.RegistrationUsecase,
	admin *usecase.AdminUsecase,
	cookies *middleware.SessionMiddleware,
	presenter *presenter.Presenter,
) *Handler {
	return &Handler{
		config:    config,
		server:    server,
		sessions:  sessions,
		login:     login,
		register:  register,
		admin:     admin,
		cookies:   cookies,
		presenter: presenter,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.handleHealth)

	g := e.Group("", h.cookies.Load)
	g.GET("/welcome", h.handleWelcome)
	g.GET("/login", h.handleLogin)
	g.POST("/logout", h.handleLogout)
	g.GET("/register", h.handleRegister)
	g.POST("/register", h.handleRegisterSubmit)

	authed := g.Group("", h.cookies.RequireSession)
	authed.GET("/", h.handleHome)
	authed.GET("/admin/:kind", h.handleAdminList)
	authed.POST("/admin/:kind", h.handleAdminCreate)
	authed.POST("/admin/:kind/:id", h.handleAdminUpdate)
	authed.POST("/admin/:kind/:id/delete", h.handleAdminDelete)
}

// page assembles the common page data. The profile is best effort; pages
// render unbranded when the backend is unreachable.
func (h *Handler) page(c echo.Context, title string) presenter.Page {
	session := middleware.Session(c)
	profile, _ := h.server.Profile(c.Request().Context())
	return presenter.Page{
		Title:   title,
		Profile: profile,
		Session: session,
		IsAdmin: h.admin.Authorize(session) == nil,
	}
}

// signOut drops the stored session and moves the browser to a fresh id.
func (h *Handler) signOut(c echo.Context) {
	ctx := c.Request().Context()
	err := h.sessions.Clear(ctx, middleware.SessionID(c))
	if err != nil {
		slog.ErrorContext(
			ctx, "failed to clear session",
			slog.String("error", err.Error()),
			slog.String("module", "web"),
		)
	}
	err = h.cookies.Bind(c, middleware.NewSessionID())
	if err != nil {
		slog.ErrorContext(
			ctx, "failed to rotate session cookie",
			slog.String("error", err.Error()),
			slog.String("module", "web"),
		)
	}
	c.Set(domain.SessionCtxKey, domain.Session{})
}

// fail renders err. Rejected credentials end the session.
func (h *Handler) fail(c echo.Context, err error) error {
	ctx := c.Request().Context()

	switch {
	case errors.Is(err, client.ErrUnauthorized):
		slog.InfoContext(
			ctx, "backend rejected the session credential",
			slog.String("error", err.Error()),
			slog.String("module", "web"),
		)
		h.signOut(c)
		return c.Redirect(http.StatusSeeOther, "/welcome")
	case errors.Is(err, domain.ErrNoCredential):
		return c.Redirect(http.StatusSeeOther, middleware.WelcomeURL(c.Request().URL.RequestURI()))
	}

	status, message := describe(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(
			ctx, "request failed",
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
			slog.String("module", "web"),
		)
	}
	return h.presenter.Error(c, status, h.page(c, ""), message)
}

// describe maps err to a status and a message fit for the registrant.
func describe(err error) (int, string) {
	var statusErr *client.StatusError
	switch {
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "This account is not allowed to use the admin console."
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrNotRegistered):
		return http.StatusForbidden, "This account is not registered on this domain."
	case errors.Is(err, domain.ErrMalformedInput):
		return http.StatusBadRequest, "The input is invalid or incomplete."
	case errors.Is(err, domain.ErrRegistrationClosed):
		return http.StatusForbidden, "Registration is closed."
	case errors.Is(err, domain.ErrInviteCodeRequired):
		return http.StatusUnprocessableEntity, "An invite code is required."
	case errors.Is(err, domain.ErrCaptchaRequired):
		return http.StatusUnprocessableEntity, "Please complete the captcha."
	case errors.Is(err, domain.ErrInvalidForm):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, domain.ErrInvalidState):
		return http.StatusConflict, "The request does not fit the current state. Please start over."
	case errors.Is(err, client.ErrTimeout):
		return http.StatusGatewayTimeout, "The server did not answer in time."
	case errors.As(err, &statusErr):
		if statusErr.Message != "" {
			return http.StatusBadGateway, statusErr.Message
		}
		return http.StatusBadGateway, statusErr.Error()
	default:
		return http.StatusInternalServerError, "Something went wrong."
	}
}

func (h *Handler) handleHealth(c echo.Context) error {
	return presenter.OK(c, echo.Map{"status": "ok"})
}

func (h *Handler) handleWelcome(c echo.Context) error {
	page := h.page(c, "")
	if from := c.QueryParam("from"); from != "" && page.Session.HasCredential() {
		return c.Redirect(http.StatusSeeOther, middleware.LocalRedirect(from))
	}
	return h.presenter.Render(c, http.StatusOK, "welcome.html", page)
}

func (h *Handler) handleHome(c echo.Context) error {
	page := h.page(c, "Home")
	session := page.Session

	view := presenter.HomeView{}
	if session.Subject != nil {
		view.CCID = session.Subject.CCID()
		view.Tags = session.Subject.Tags()
		view.Domain = session.Subject.Domain
		view.Score = session.Subject.Score
		view.CDate = session.Subject.CDate
	}
	if page.IsAdmin {
		view.Tabs = tabs("")
	}
	page.Data = view

	return h.presenter.Render(c, http.StatusOK, "home.html", page)
}

// handleLogin takes over a token issued by a client. With claim=1 the
// token is exchanged for a server issued one first.
func (h *Handler) handleLogin(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "Web.Handler.Login")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	token := c.QueryParam("token")
	if token == "" {
		return h.presenter.Render(c, http.StatusOK, "login.html", h.page(c, "Sign in"))
	}

	previous := middleware.SessionID(c)
	sid := middleware.NewSessionID()

	var err error
	if c.QueryParam("claim") == "1" {
		_, err = h.login.Claim(ctx, sid, token)
	} else {
		_, err = h.login.Handoff(ctx, sid, token)
	}
	if err != nil {
		span.RecordError(err)
		status, message := describe(err)
		return h.presenter.Error(c, status, h.page(c, "Sign in failed"), message)
	}

	from := c.QueryParam("from")
	if from == "" {
		from = h.cookies.ReturnTo(c)
	}

	err = h.rotate(c, previous, sid)
	if err != nil {
		span.RecordError(err)
		return h.fail(c, err)
	}

	return c.Redirect(http.StatusSeeOther, middleware.LocalRedirect(from))
}

// rotate moves the browser from the previous session id to sid, which
// already holds the signed in session.
func (h *Handler) rotate(c echo.Context, previous, sid string) error {
	ctx := c.Request().Context()

	err := h.cookies.Bind(c, sid)
	if err != nil {
		return err
	}

	err = h.sessions.Clear(ctx, previous)
	if err != nil {
		slog.WarnContext(
			ctx, "failed to clear previous session",
			slog.String("error", err.Error()),
			slog.String("module", "web"),
		)
	}
	return nil
}

func (h *Handler) handleLogout(c echo.Context) error {
	h.signOut(c)
	return c.Redirect(http.StatusSeeOther, "/welcome")
}

func query(c echo.Context) usecase.RegistrationQuery {
	return usecase.RegistrationQuery{
		Token:        c.FormValue("token"),
		Registration: c.FormValue("registration"),
		Signature:    c.FormValue("signature"),
		Callback:     c.FormValue("callback"),
	}
}

// renderFlow renders the page for the state the flow stopped in.
func (h *Handler) renderFlow(c echo.Context, flow *usecase.RegistrationFlow, q usecase.RegistrationQuery, status int, submission *usecase.Submission) error {
	page := presenter.Page{
		Session: middleware.Session(c),
	}
	if flow.Context != nil {
		page.Profile = flow.Context.Profile
	}

	switch flow.State {
	case usecase.StateFailed:
		code, message := describe(flow.Err)
		return h.presenter.Error(c, code, h.page(c, "Registration"), message)

	case usecase.StateLoadingContext:
		page.Title = "Temporarily unavailable"
		page.Refresh = &presenter.Refresh{Seconds: 5}
		return h.presenter.Render(c, http.StatusServiceUnavailable, "loading.html", page)

	case usecase.StateClosed:
		page.Title = "Registration closed"
		return h.presenter.Render(c, http.StatusOK, "closed.html", page)

	case usecase.StateSucceeded:
		page.Title = "Registered"
		if flow.Session != nil {
			page.Session = *flow.Session
		}
		seconds := int(h.config.RedirectDelay / time.Second)
		if flow.Callback != "" {
			page.Refresh = &presenter.Refresh{Seconds: seconds, URL: flow.Callback}
		} else if flow.Session != nil {
			page.Refresh = &presenter.Refresh{Seconds: seconds, URL: "/"}
		}
		return h.presenter.Render(c, http.StatusOK, "registered.html", page)
	}

	view := presenter.RegisterView{
		Token:          q.Token,
		Registration:   q.Registration,
		Signature:      q.Signature,
		Callback:       flow.Callback,
		Subject:        flow.Credential.SubjectID(),
		Schema:         flow.Context.Schema,
		TermsOfService: flow.Context.TermsOfService,
		CodeOfConduct:  flow.Context.CodeOfConduct,
		InviteRequired: flow.RequiresInviteCode(),
		CaptchaSiteKey: flow.Context.Profile.CaptchaSiteKey,
	}
	if submission != nil {
		view.Schema = view.Schema.WithValues(submission.Values)
		view.InviteCode = submission.InviteCode
	}
	if flow.Err != nil {
		_, page.Error = describe(flow.Err)
	}

	page.Title = "Register"
	page.Data = view
	return h.presenter.Render(c, status, "register.html", page)
}

func (h *Handler) handleRegister(c echo.Context) error {
	q := query(c)
	flow := h.register.Start(c.Request().Context(), q)
	return h.renderFlow(c, flow, q, http.StatusOK, nil)
}

func (h *Handler) handleRegisterSubmit(c echo.Context) error {
	ctx := c.Request().Context()

	q := query(c)
	flow := h.register.Start(ctx, q)
	if flow.State != usecase.StateAwaitingSubmission {
		return h.renderFlow(c, flow, q, http.StatusOK, nil)
	}

	values, err := c.FormParams()
	if err != nil {
		return h.fail(c, errors.Join(domain.ErrMalformedInput, err))
	}
	submission := usecase.Submission{
		Values:       values,
		InviteCode:   c.FormValue("invitation"),
		CaptchaProof: c.FormValue("g-recaptcha-response"),
	}

	// a token registration signs in under a fresh id, like a login
	previous := middleware.SessionID(c)
	sid := middleware.NewSessionID()
	err = h.register.Submit(ctx, sid, flow, submission)
	if err != nil {
		status, _ := describe(err)
		return h.renderFlow(c, flow, q, status, &submission)
	}

	if flow.Session != nil {
		err = h.rotate(c, previous, sid)
		if err != nil {
			return h.fail(c, err)
		}
		c.Set(domain.SessionCtxKey, *flow.Session)
	}

	return h.renderFlow(c, flow, q, http.StatusOK, nil)
}

func tabs(active string) []presenter.Tab {
	return []presenter.Tab{
		{Kind: "entities", Title: "Entities", Active: active == "entities"},
		{Kind: "domains", Title: "Domains", Active: active == "domains"},
		{Kind: "hosts", Title: "Hosts", Active: active == "hosts"},
	}
}
