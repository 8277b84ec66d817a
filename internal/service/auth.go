package service

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/totegamma/concrnt-console"
	"github.com/totegamma/concrnt-console/internal/domain"
	"github.com/totegamma/concrnt-console/jwt"
)

var tracer = otel.Tracer("auth")

// AuthService reads the subject out of externally issued tokens.
// It never verifies signatures; the backend does when the token is
// presented as a bearer credential.
type AuthService struct {
	subjectClaim string
}

func NewAuthService(subjectClaim string) *AuthService {
	if subjectClaim == "" {
		subjectClaim = domain.DefaultSubjectClaim
	}
	return &AuthService{
		subjectClaim: subjectClaim,
	}
}

type AuthResult struct {
	CCID   string
	Claims jwt.Claims
}

func (s *AuthService) Subject(ctx context.Context, token string) (*AuthResult, error) {
	ctx, span := tracer.Start(ctx, "Auth.Service.Subject")
	defer span.End()

	header, claims, err := jwt.Decode(token)
	if err != nil {
		span.RecordError(errors.Wrap(err, "jwt decode failed"))
		return nil, errors.Wrap(domain.ErrMalformedInput, err.Error())
	}

	keyID := claims.Identity(s.subjectClaim)
	if keyID == "" && s.subjectClaim == "iss" {
		keyID = header.KeyID
	}

	if concrnt.IsCCID(keyID) {
		return &AuthResult{CCID: keyID, Claims: claims}, nil
	} else if concrnt.IsCKID(keyID) {
		err := fmt.Errorf("ckid subjects are not supported: %w", domain.ErrMalformedInput)
		span.RecordError(err)
		return nil, err
	} else {
		err := fmt.Errorf("invalid %s claim %q: %w", s.subjectClaim, keyID, domain.ErrMalformedInput)
		span.RecordError(err)
		return nil, err
	}
}

// Signer validates the subject of a signed registration payload.
func (s *AuthService) Signer(ctx context.Context, payload string) (concrnt.AffiliationPayload, error) {
	_, span := tracer.Start(ctx, "Auth.Service.Signer")
	defer span.End()

	document, _, err := jwt.DecodeSignedPayload(payload)
	if err != nil {
		span.RecordError(err)
		return concrnt.AffiliationPayload{}, errors.Wrap(domain.ErrMalformedInput, err.Error())
	}

	if err := concrnt.ValidateCCID(document.Signer); err != nil {
		span.RecordError(err)
		return concrnt.AffiliationPayload{}, errors.Wrap(domain.ErrMalformedInput, "invalid signer: "+err.Error())
	}

	return document, nil
}
