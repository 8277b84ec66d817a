package domain

import (
	"github.com/totegamma/concrnt-console"
)

// Session is the persisted state of one browser.
type Session struct {
	ID         string          `json:"-"`
	Credential string          `json:"JWT,omitempty"`
	Subject    *concrnt.Entity `json:"ENTITY,omitempty"`
}

func (s Session) HasCredential() bool {
	return s.Credential != ""
}

func (s Session) SubjectID() string {
	if s.Subject == nil {
		return ""
	}
	return s.Subject.CCID()
}

// IsAdmin reports whether the signed-in subject carries the admin tag.
func (s Session) IsAdmin(adminTag string) bool {
	if !s.HasCredential() || s.Subject == nil {
		return false
	}
	return concrnt.HasTag(s.Subject.Tags(), adminTag)
}
