package usecase

import (
	"context"
	"errors"
	"log/slog"

	pkgerrors "github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/totegamma/concrnt-console"
	"github.com/totegamma/concrnt-console/internal/domain"
)

var tracer = otel.Tracer("usecase")

type SessionUsecase struct {
	repo SessionRepository
}

func NewSessionUsecase(repo SessionRepository) *SessionUsecase {
	return &SessionUsecase{repo: repo}
}

// Current returns the stored session, or an empty one for unknown ids.
func (uc *SessionUsecase) Current(ctx context.Context, id string) (domain.Session, error) {
	ctx, span := tracer.Start(ctx, "Session.Usecase.Current")
	defer span.End()

	if id == "" {
		return domain.Session{}, nil
	}

	session, err := uc.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Session{ID: id}, nil
		}
		span.RecordError(err)
		return domain.Session{ID: id}, pkgerrors.Wrap(err, "failed to load session")
	}
	session.ID = id

	return session, nil
}

// Replace stores credential and subject together.
func (uc *SessionUsecase) Replace(ctx context.Context, id string, credential string, subject *concrnt.Entity) (domain.Session, error) {
	ctx, span := tracer.Start(ctx, "Session.Usecase.Replace")
	defer span.End()

	if id == "" {
		return domain.Session{}, pkgerrors.Wrap(domain.ErrInvalidState, "session id is empty")
	}
	if credential == "" {
		return domain.Session{}, domain.ErrNoCredential
	}

	session := domain.Session{
		ID:         id,
		Credential: credential,
		Subject:    subject,
	}

	err := uc.repo.Put(ctx, session)
	if err != nil {
		span.RecordError(err)
		return domain.Session{}, pkgerrors.Wrap(err, "failed to store session")
	}

	slog.InfoContext(
		ctx, "session replaced",
		slog.String("subject", session.SubjectID()),
		slog.String("module", "session"),
	)

	return session, nil
}

func (uc *SessionUsecase) Clear(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Session.Usecase.Clear")
	defer span.End()

	if id == "" {
		return nil
	}

	err := uc.repo.Delete(ctx, id)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		span.RecordError(err)
		return pkgerrors.Wrap(err, "failed to clear session")
	}

	slog.InfoContext(ctx, "session cleared", slog.String("module", "session"))

	return nil
}
