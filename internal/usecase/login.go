package usecase

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/totegamma/concrnt-console/internal/domain"
	"github.com/totegamma/concrnt-console/internal/service"
)

type LoginUsecase struct {
	backend  BackendGateway
	auth     *service.AuthService
	sessions *SessionUsecase
}

func NewLoginUsecase(backend BackendGateway, auth *service.AuthService, sessions *SessionUsecase) *LoginUsecase {
	return &LoginUsecase{
		backend:  backend,
		auth:     auth,
		sessions: sessions,
	}
}

// Handoff signs the browser in with an externally issued token.
// The session is left untouched unless the subject is registered here.
func (uc *LoginUsecase) Handoff(ctx context.Context, sessionID, token string) (domain.Session, error) {
	ctx, span := tracer.Start(ctx, "Login.Usecase.Handoff")
	defer span.End()

	session, err := uc.login(ctx, sessionID, token, token)
	if err != nil {
		span.RecordError(err)
		loginTotal.WithLabelValues(resultLabel(err)).Inc()
		return domain.Session{}, err
	}

	loginTotal.WithLabelValues("ok").Inc()
	return session, nil
}

// Claim exchanges a client signed token for a backend issued credential
// before signing in.
func (uc *LoginUsecase) Claim(ctx context.Context, sessionID, clientSignedToken string) (domain.Session, error) {
	ctx, span := tracer.Start(ctx, "Login.Usecase.Claim")
	defer span.End()

	credential, err := uc.backend.ClaimSession(ctx, clientSignedToken)
	if err != nil {
		span.RecordError(err)
		loginTotal.WithLabelValues(resultLabel(err)).Inc()
		return domain.Session{}, errors.Wrap(err, "failed to claim session")
	}

	session, err := uc.login(ctx, sessionID, clientSignedToken, credential)
	if err != nil {
		span.RecordError(err)
		loginTotal.WithLabelValues(resultLabel(err)).Inc()
		return domain.Session{}, err
	}

	loginTotal.WithLabelValues("ok").Inc()
	return session, nil
}

// login resolves the subject of token and stores credential for it.
func (uc *LoginUsecase) login(ctx context.Context, sessionID, token, credential string) (domain.Session, error) {
	subject, err := uc.auth.Subject(ctx, token)
	if err != nil {
		return domain.Session{}, err
	}

	entity, err := uc.backend.ResolveEntity(ctx, subject.CCID)
	if err != nil {
		return domain.Session{}, errors.Wrap(err, "failed to resolve entity")
	}
	if entity == nil {
		slog.InfoContext(
			ctx, "login rejected: entity not registered",
			slog.String("ccid", subject.CCID),
			slog.String("module", "login"),
		)
		return domain.Session{}, domain.ErrNotRegistered
	}

	session, err := uc.sessions.Replace(ctx, sessionID, credential, entity)
	if err != nil {
		return domain.Session{}, err
	}

	slog.InfoContext(
		ctx, "login succeeded",
		slog.String("ccid", subject.CCID),
		slog.String("module", "login"),
	)

	return session, nil
}
