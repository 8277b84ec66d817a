package usecase

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/totegamma/concrnt-console"
)

// ServerUsecase serves the profile of the domain this portal fronts.
type ServerUsecase struct {
	backend BackendGateway
}

func NewServerUsecase(backend BackendGateway) *ServerUsecase {
	return &ServerUsecase{backend: backend}
}

func (uc *ServerUsecase) Profile(ctx context.Context) (concrnt.DomainProfile, error) {
	ctx, span := tracer.Start(ctx, "Server.Usecase.Profile")
	defer span.End()

	profile, err := uc.backend.FetchDomainProfile(ctx)
	if err != nil {
		span.RecordError(err)
		slog.WarnContext(
			ctx, "failed to fetch domain profile",
			slog.String("error", err.Error()),
			slog.String("module", "server"),
		)
		return concrnt.DomainProfile{}, errors.Wrap(err, "failed to fetch domain profile")
	}

	return profile, nil
}
