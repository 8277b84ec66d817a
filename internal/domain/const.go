package domain

import "slices"

// Keys of the persisted session record.
const (
	SessionCredentialKey = "JWT"
	SessionEntityKey     = "ENTITY"
)

const (
	SessionCtxKey   = "cc-session"
	SessionIDCtxKey = "cc-sessionId"
)

const (
	DefaultAdminTag     = "_admin"
	DefaultSubjectClaim = "iss"
)

// RegistrationInput names an accepted shape of registration query input.
type RegistrationInput string

const (
	RegistrationInputToken  RegistrationInput = "token"
	RegistrationInputSigned RegistrationInput = "signed"
)

// RegistrationInputs is the set of input shapes a deployment enables.
type RegistrationInputs []RegistrationInput

func (r RegistrationInputs) Accepts(input RegistrationInput) bool {
	return slices.Contains(r, input)
}
