package model

import "time"

// Exchange is one completed (query, answer) pair, persisted asynchronously as
// an audit log. The live conversation window is kept by the session store.
type Exchange struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID string    `gorm:"size:64;not null;index" json:"session_id"`
	Query     string    `gorm:"type:text;not null" json:"query"`
	Answer    string    `gorm:"type:text;not null" json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}
