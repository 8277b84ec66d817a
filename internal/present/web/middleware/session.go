package middleware

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/totegamma/concrnt-console/internal/domain"
	"github.com/totegamma/concrnt-console/internal/usecase"
)

var tracer = otel.Tracer("web")

const (
	cookieName   = "concrnt-console"
	sessionIDKey = "sid"
	returnToKey  = "from"
)

// SessionMiddleware binds each browser to a session id carried in a signed
// cookie and loads the stored session for every request.
type SessionMiddleware struct {
	store   sessions.Store
	session *usecase.SessionUsecase
}

func NewSessionMiddleware(
	secret []byte,
	secure bool,
	ttl time.Duration,
	session *usecase.SessionUsecase,
) *SessionMiddleware {
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionMiddleware{
		store:   store,
		session: session,
	}
}

// NewSessionID returns a fresh opaque session id.
func NewSessionID() string {
	return uuid.NewString()
}

// Bind points the browser cookie at sid. A remembered return target is
// dropped; it belongs to the previous session.
func (m *SessionMiddleware) Bind(c echo.Context, sid string) error {
	cookie, _ := m.store.Get(c.Request(), cookieName)
	cookie.Values[sessionIDKey] = sid
	delete(cookie.Values, returnToKey)
	err := cookie.Save(c.Request(), c.Response())
	if err != nil {
		return err
	}
	c.Set(domain.SessionIDCtxKey, sid)
	return nil
}

func (m *SessionMiddleware) Load(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, span := tracer.Start(c.Request().Context(), "Web.Middleware.LoadSession")
		defer span.End()
		c.SetRequest(c.Request().WithContext(ctx))

		// a cookie signed with another secret decodes as a new session
		cookie, _ := m.store.Get(c.Request(), cookieName)
		sid, _ := cookie.Values[sessionIDKey].(string)
		if _, err := uuid.Parse(sid); err != nil {
			sid = NewSessionID()
			err = m.Bind(c, sid)
			if err != nil {
				span.RecordError(err)
				slog.ErrorContext(
					ctx, "failed to issue session cookie",
					slog.String("error", err.Error()),
					slog.String("module", "web"),
				)
			}
		}

		session, err := m.session.Current(ctx, sid)
		if err != nil {
			span.RecordError(err)
			slog.WarnContext(
				ctx, "failed to load session; continuing signed out",
				slog.String("error", err.Error()),
				slog.String("module", "web"),
			)
			session = domain.Session{ID: sid}
		}

		if session.HasCredential() {
			span.SetAttributes(attribute.String("Subject", session.SubjectID()))
		}

		c.Set(domain.SessionIDCtxKey, sid)
		c.Set(domain.SessionCtxKey, session)
		return next(c)
	}
}

// remember stores the local target the browser was heading to, so a later
// sign in without a from parameter can still send it back.
func (m *SessionMiddleware) remember(c echo.Context, target string) error {
	cookie, _ := m.store.Get(c.Request(), cookieName)
	cookie.Values[sessionIDKey] = SessionID(c)
	cookie.Values[returnToKey] = target
	return cookie.Save(c.Request(), c.Response())
}

// ReturnTo is the target remembered by RequireSession, if any.
func (m *SessionMiddleware) ReturnTo(c echo.Context) string {
	cookie, _ := m.store.Get(c.Request(), cookieName)
	target, _ := cookie.Values[returnToKey].(string)
	return target
}

// RequireSession redirects signed out browsers to the welcome page,
// remembering where they were heading.
func (m *SessionMiddleware) RequireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if Session(c).HasCredential() {
			return next(c)
		}

		target := c.Request().URL.RequestURI()
		if c.Request().Method == http.MethodGet {
			err := m.remember(c, LocalRedirect(target))
			if err != nil {
				slog.WarnContext(
					c.Request().Context(), "failed to remember return target",
					slog.String("error", err.Error()),
					slog.String("module", "web"),
				)
			}
		}
		return c.Redirect(http.StatusSeeOther, WelcomeURL(target))
	}
}

func Session(c echo.Context) domain.Session {
	session, _ := c.Get(domain.SessionCtxKey).(domain.Session)
	return session
}

func SessionID(c echo.Context) string {
	sid, _ := c.Get(domain.SessionIDCtxKey).(string)
	return sid
}

func WelcomeURL(from string) string {
	if from == "" || from == "/" {
		return "/welcome"
	}
	return "/welcome?from=" + url.QueryEscape(from)
}

// LocalRedirect returns target when it is a path on this site, "/" otherwise.
func LocalRedirect(target string) string {
	if target == "" || target[0] != '/' || len(target) > 1 && (target[1] == '/' || target[1] == '\\') {
		return "/"
	}
	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "/"
	}
	return u.RequestURI()
}
