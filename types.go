package concrnt

import (
	"strings"
	"time"
)

const (
	RegistrationOpen   string = "open"
	RegistrationInvite string = "invite"
	RegistrationClosed string = "closed"
)

// DomainProfile is the branding and policy document served by a domain.
type DomainProfile struct {
	Nickname        string `json:"nickname"`
	Description     string `json:"description"`
	Logo            string `json:"logo"`
	WordMark        string `json:"wordmark"`
	ThemeColor      string `json:"themeColor"`
	Rules           string `json:"rules"`
	TosURL          string `json:"tosURL,omitempty"`
	MaintainerName  string `json:"maintainerName"`
	MaintainerURL   string `json:"maintainerURL,omitempty"`
	MaintainerEmail string `json:"maintainerEmail,omitempty"`
	Registration    string `json:"registration"`
	Version         string `json:"version"`
	Hash            string `json:"hash"`
	CaptchaSiteKey  string `json:"captchaSiteKey,omitempty"`
}

// RegistrationMode normalizes the registration field.
// Older servers send "close"; an empty value behaves as open.
func (p DomainProfile) RegistrationMode() string {
	switch strings.ToLower(strings.TrimSpace(p.Registration)) {
	case "close", "closed":
		return RegistrationClosed
	case "invite":
		return RegistrationInvite
	default:
		return RegistrationOpen
	}
}

// Entity is an identity registered on a domain.
type Entity struct {
	ID           string    `json:"ccid"`
	Address      string    `json:"ccaddr,omitempty"` // older servers
	Tag          string    `json:"tag"`
	Role         string    `json:"role,omitempty"` // older servers
	Domain       string    `json:"domain,omitempty"`
	Host         string    `json:"host,omitempty"`
	Score        int       `json:"score"`
	IsScoreFixed bool      `json:"isScoreFixed"`
	CDate        time.Time `json:"cdate"`
}

// CCID returns the entity address regardless of the server revision.
func (e Entity) CCID() string {
	if e.ID != "" {
		return e.ID
	}
	return e.Address
}

// Tags returns the union of the tag and role fields.
func (e Entity) Tags() []string {
	return ParseTags(e.Tag + "," + e.Role)
}

// Domain is a federated peer server.
type Domain struct {
	ID           string    `json:"fqdn"`
	CCID         string    `json:"ccid"`
	Tag          string    `json:"tag"`
	Score        int       `json:"score"`
	IsScoreFixed bool      `json:"isScoreFixed"`
	Pubkey       string    `json:"pubkey"`
	CDate        time.Time `json:"cdate"`
	MDate        time.Time `json:"mdate"`
	LastScraped  time.Time `json:"lastScraped"`
}

// Host is the older name of Domain.
type Host struct {
	ID     string    `json:"fqdn"`
	CCAddr string    `json:"ccaddr"`
	Role   string    `json:"role"`
	Score  int       `json:"score"`
	Pubkey string    `json:"pubkey"`
	CDate  time.Time `json:"cdate"`
}

// AffiliationPayload is the externally signed registration document.
type AffiliationPayload struct {
	Signer   string `json:"signer"`
	Type     string `json:"type,omitempty"`
	Domain   string `json:"domain,omitempty"`
	SignedAt string `json:"signedAt,omitempty"`
}

// RegistrationRequest is the superset body accepted by POST /api/v1/entity.
// Fields irrelevant to the active registration mode stay empty.
type RegistrationRequest struct {
	CCID         string `json:"ccid,omitempty"`
	Meta         any    `json:"meta,omitempty"`
	Info         string `json:"info,omitempty"`
	Registration string `json:"registration,omitempty"`
	Signature    string `json:"signature,omitempty"`
	Invitation   string `json:"invitation,omitempty"`
	Captcha      string `json:"captcha,omitempty"`
}

// ClaimResponse is returned by /api/v1/auth/claim.
type ClaimResponse struct {
	JWT string `json:"jwt"`
}
