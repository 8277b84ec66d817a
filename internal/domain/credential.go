package domain

import (
	"github.com/totegamma/concrnt-console/jwt"
)

// Credential is the registration input after parsing: either a bearer
// token or a signed payload with its detached signature.
type Credential interface {
	SubjectID() string
	isCredential()
}

type TokenCredential struct {
	Token   string
	Claims  jwt.Claims
	Subject string
}

func (c TokenCredential) SubjectID() string { return c.Subject }
func (TokenCredential) isCredential()       {}

type SignedPayloadCredential struct {
	Payload   string
	Signature string
	Signer    string
}

func (c SignedPayloadCredential) SubjectID() string { return c.Signer }
func (SignedPayloadCredential) isCredential()       {}
