package presenter

import (
	"time"

	"github.com/totegamma/concrnt-console/internal/form"
)

// Tab is one admin panel link.
type Tab struct {
	Kind   string
	Title  string
	Active bool
}

type Row struct {
	ID    string
	Cells []string
}

// EditField is one input of the detail editor. Checkbox fields use Checked.
type EditField struct {
	Name    string
	Label   string
	Type    string // text, number, checkbox
	Value   string
	Checked bool
}

type Property struct {
	Label string
	Value string
}

type Detail struct {
	ID       string
	ReadOnly []Property
	Fields   []EditField
}

type PanelView struct {
	Kind        string
	Title       string
	CreateLabel string
	Tabs        []Tab
	Columns     []string
	Rows        []Row
	Selected    *Detail
}

// RegisterView is the registration form with the parameters of the link
// carried as hidden fields.
type RegisterView struct {
	Token        string
	Registration string
	Signature    string
	Callback     string

	Subject        string
	Schema         form.Schema
	TermsOfService string
	CodeOfConduct  string
	InviteRequired bool
	InviteCode     string
	CaptchaSiteKey string
}

type HomeView struct {
	CCID   string
	Tags   []string
	Domain string
	Score  int
	CDate  time.Time
	Tabs   []Tab
}
