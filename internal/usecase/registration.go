package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/totegamma/concrnt-console"
	"github.com/totegamma/concrnt-console/internal/domain"
	"github.com/totegamma/concrnt-console/internal/form"
	"github.com/totegamma/concrnt-console/internal/service"
)

type RegistrationState int

const (
	StateParsingInput RegistrationState = iota
	StateLoadingContext
	StateAwaitingSubmission
	StateSubmitting
	StateSucceeded
	StateFailed
	StateClosed
)

func (s RegistrationState) String() string {
	switch s {
	case StateParsingInput:
		return "ParsingInput"
	case StateLoadingContext:
		return "LoadingContext"
	case StateAwaitingSubmission:
		return "AwaitingSubmission"
	case StateSubmitting:
		return "Submitting"
	case StateSucceeded:
		return "Succeeded"
	case StateFailed:
		return "Failed"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// RegistrationQuery carries the parameters of a registration link.
type RegistrationQuery struct {
	Token        string
	Registration string
	Signature    string
	Callback     string
}

// RegistrationContext is everything the form page needs besides the input.
type RegistrationContext struct {
	Profile        concrnt.DomainProfile
	Schema         form.Schema
	TermsOfService string
	CodeOfConduct  string
}

type Submission struct {
	Values       url.Values
	InviteCode   string
	CaptchaProof string
}

type RegistrationFlow struct {
	State      RegistrationState
	Credential domain.Credential
	Context    *RegistrationContext
	Callback   string
	Err        error

	// Session is set when a token registration signed the browser in.
	Session *domain.Session
}

func (f *RegistrationFlow) RequiresInviteCode() bool {
	return f.Context != nil && f.Context.Profile.RegistrationMode() == concrnt.RegistrationInvite
}

func (f *RegistrationFlow) RequiresCaptcha() bool {
	return f.Context != nil && f.Context.Profile.CaptchaSiteKey != ""
}

type RegistrationUsecase struct {
	backend  BackendGateway
	auth     *service.AuthService
	sessions *SessionUsecase
	inputs   domain.RegistrationInputs
}

func NewRegistrationUsecase(
	backend BackendGateway,
	auth *service.AuthService,
	sessions *SessionUsecase,
	inputs domain.RegistrationInputs,
) *RegistrationUsecase {
	return &RegistrationUsecase{
		backend:  backend,
		auth:     auth,
		sessions: sessions,
		inputs:   inputs,
	}
}

// Parse picks the credential out of the query. A signed payload wins over a
// token when the deployment accepts both.
func (uc *RegistrationUsecase) Parse(ctx context.Context, query RegistrationQuery) (domain.Credential, error) {
	ctx, span := tracer.Start(ctx, "Registration.Usecase.Parse")
	defer span.End()

	if query.Registration != "" && uc.inputs.Accepts(domain.RegistrationInputSigned) {
		if query.Signature == "" {
			return nil, pkgerrors.Wrap(domain.ErrMalformedInput, "signature is missing")
		}
		document, err := uc.auth.Signer(ctx, query.Registration)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		return domain.SignedPayloadCredential{
			Payload:   query.Registration,
			Signature: query.Signature,
			Signer:    document.Signer,
		}, nil
	}

	if query.Token != "" && uc.inputs.Accepts(domain.RegistrationInputToken) {
		subject, err := uc.auth.Subject(ctx, query.Token)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		return domain.TokenCredential{
			Token:   query.Token,
			Claims:  subject.Claims,
			Subject: subject.CCID,
		}, nil
	}

	return nil, pkgerrors.Wrap(domain.ErrMalformedInput, "no registration input")
}

// LoadContext fetches profile, form schema and legal documents concurrently.
// A server without a template gets the built-in form; a missing legal
// document renders as empty.
func (uc *RegistrationUsecase) LoadContext(ctx context.Context) (*RegistrationContext, error) {
	ctx, span := tracer.Start(ctx, "Registration.Usecase.LoadContext")
	defer span.End()

	var result RegistrationContext
	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		profile, err := uc.backend.FetchDomainProfile(gctx)
		if err != nil {
			return pkgerrors.Wrap(err, "failed to fetch domain profile")
		}
		result.Profile = profile
		return nil
	})

	group.Go(func() error {
		raw, err := uc.backend.FetchRegisterTemplate(gctx)
		if errors.Is(err, domain.ErrNotFound) {
			result.Schema = form.Default()
			return nil
		}
		if err != nil {
			return pkgerrors.Wrap(err, "failed to fetch register template")
		}
		schema, err := form.Parse(raw)
		if err != nil {
			return err
		}
		result.Schema = schema
		return nil
	})

	group.Go(func() error {
		doc, err := uc.backend.FetchTermsOfService(gctx)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		if err != nil {
			return pkgerrors.Wrap(err, "failed to fetch terms of service")
		}
		result.TermsOfService = doc
		return nil
	})

	group.Go(func() error {
		doc, err := uc.backend.FetchCodeOfConduct(gctx)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		if err != nil {
			return pkgerrors.Wrap(err, "failed to fetch code of conduct")
		}
		result.CodeOfConduct = doc
		return nil
	})

	err := group.Wait()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return &result, nil
}

// Start runs the flow up to the point where it waits for the registrant.
func (uc *RegistrationUsecase) Start(ctx context.Context, query RegistrationQuery) *RegistrationFlow {
	ctx, span := tracer.Start(ctx, "Registration.Usecase.Start")
	defer span.End()

	flow := &RegistrationFlow{
		State:    StateParsingInput,
		Callback: sanitizeCallback(query.Callback),
	}

	credential, err := uc.Parse(ctx, query)
	if err != nil {
		flow.State = StateFailed
		flow.Err = err
		return flow
	}
	flow.Credential = credential

	flow.State = StateLoadingContext
	regctx, err := uc.LoadContext(ctx)
	if err != nil {
		slog.ErrorContext(
			ctx, "failed to load registration context",
			slog.String("error", err.Error()),
			slog.String("module", "register"),
		)
		flow.Err = err
		return flow
	}
	flow.Context = regctx

	if regctx.Profile.RegistrationMode() == concrnt.RegistrationClosed {
		flow.State = StateClosed
		return flow
	}

	flow.State = StateAwaitingSubmission
	return flow
}

// Submit sends the registration. Gating failures keep the flow waiting for
// corrected input; a closed domain never reaches the backend.
func (uc *RegistrationUsecase) Submit(ctx context.Context, sessionID string, flow *RegistrationFlow, submission Submission) error {
	ctx, span := tracer.Start(ctx, "Registration.Usecase.Submit")
	defer span.End()

	err := uc.submit(ctx, sessionID, flow, submission)
	registrationTotal.WithLabelValues(resultLabel(err)).Inc()
	if err != nil {
		span.RecordError(err)
	}
	flow.Err = err
	return err
}

func (uc *RegistrationUsecase) submit(ctx context.Context, sessionID string, flow *RegistrationFlow, submission Submission) error {
	switch flow.State {
	case StateClosed:
		return domain.ErrRegistrationClosed
	case StateAwaitingSubmission:
	default:
		return pkgerrors.Wrap(domain.ErrInvalidState, "cannot submit in state "+flow.State.String())
	}

	invitation := strings.TrimSpace(submission.InviteCode)
	if flow.RequiresInviteCode() && invitation == "" {
		return domain.ErrInviteCodeRequired
	}
	if !flow.RequiresInviteCode() {
		invitation = ""
	}

	captcha := submission.CaptchaProof
	if flow.RequiresCaptcha() && captcha == "" {
		return domain.ErrCaptchaRequired
	}

	meta := flow.Context.Schema.Decode(submission.Values)
	err := flow.Context.Schema.Validate(meta)
	if err != nil {
		return err
	}

	request := concrnt.RegistrationRequest{
		CCID:       flow.Credential.SubjectID(),
		Meta:       meta,
		Invitation: invitation,
		Captcha:    captcha,
	}

	bearer := ""
	switch credential := flow.Credential.(type) {
	case domain.TokenCredential:
		bearer = credential.Token
	case domain.SignedPayloadCredential:
		info, err := json.Marshal(meta)
		if err != nil {
			return pkgerrors.Wrap(err, "failed to encode registration info")
		}
		request.Info = string(info)
		request.Registration = credential.Payload
		request.Signature = credential.Signature
	}

	flow.State = StateSubmitting
	err = uc.backend.SubmitRegistration(ctx, bearer, request)
	if err != nil {
		flow.State = StateAwaitingSubmission
		return pkgerrors.Wrap(err, "registration rejected")
	}
	flow.State = StateSucceeded

	slog.InfoContext(
		ctx, "registration succeeded",
		slog.String("ccid", request.CCID),
		slog.String("module", "register"),
	)

	if bearer != "" {
		uc.signIn(ctx, sessionID, flow, bearer)
	}

	return nil
}

// signIn stores the registration token so the registrant lands signed in.
// Failures only cost the automatic sign in. A session is never stored
// without the registrant's entity.
func (uc *RegistrationUsecase) signIn(ctx context.Context, sessionID string, flow *RegistrationFlow, token string) {
	entity, err := uc.backend.ResolveEntity(ctx, flow.Credential.SubjectID())
	if err == nil && entity == nil {
		err = domain.NotFoundError{Resource: "entity"}
	}
	if err != nil {
		slog.WarnContext(
			ctx, "failed to resolve registered entity",
			slog.String("error", err.Error()),
			slog.String("module", "register"),
		)
		return
	}

	session, err := uc.sessions.Replace(ctx, sessionID, token, entity)
	if err != nil {
		slog.WarnContext(
			ctx, "failed to store session after registration",
			slog.String("error", err.Error()),
			slog.String("module", "register"),
		)
		return
	}
	flow.Session = &session
}

func sanitizeCallback(callback string) string {
	if callback == "" {
		return ""
	}
	u, err := url.Parse(callback)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}
	return u.String()
}
