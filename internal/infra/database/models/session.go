package models

import (
	"time"
)

// Session is one browser session. Credential and subject live in the same
// row so a sign in is a single upsert.
type Session struct {
	Key        string    `json:"key" gorm:"primaryKey;type:text"`
	Credential string    `json:"credential" gorm:"type:text;not null"`
	Subject    string    `json:"subject" gorm:"type:jsonb"`
	ExpiresAt  time.Time `json:"expiresAt" gorm:"type:timestamp with time zone;not null;index"`
	CDate      time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
	MDate      time.Time `json:"mdate" gorm:"autoUpdateTime"`
}
