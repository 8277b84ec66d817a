package usecase

import (
	"context"
	"encoding/json"

	"github.com/totegamma/concrnt-console"
	"github.com/totegamma/concrnt-console/internal/domain"
)

// SessionRepository persists sessions. Get returns domain.ErrNotFound for
// unknown ids; Put writes credential and subject in one operation.
type SessionRepository interface {
	Get(ctx context.Context, id string) (domain.Session, error)
	Put(ctx context.Context, session domain.Session) error
	Delete(ctx context.Context, id string) error
}

// BackendGateway is the part of the remote service used by the public flows.
type BackendGateway interface {
	FetchDomainProfile(ctx context.Context) (concrnt.DomainProfile, error)
	FetchTermsOfService(ctx context.Context) (string, error)
	FetchCodeOfConduct(ctx context.Context) (string, error)
	FetchRegisterTemplate(ctx context.Context) (json.RawMessage, error)
	ClaimSession(ctx context.Context, clientSignedToken string) (string, error)
	ResolveEntity(ctx context.Context, id string) (*concrnt.Entity, error)
	SubmitRegistration(ctx context.Context, credential string, request concrnt.RegistrationRequest) error
}

// ResourceGateway is one admin managed collection on the remote service.
type ResourceGateway[T any] interface {
	List(ctx context.Context, credential string) ([]T, error)
	Create(ctx context.Context, credential string, id string) error
	Update(ctx context.Context, credential string, item T) error
	Delete(ctx context.Context, credential string, id string) error
}
