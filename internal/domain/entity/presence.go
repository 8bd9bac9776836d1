package entity

import "time"

type PresenceRecord struct {
	UID         string    `json:"uid"`
	IsOnline    bool      `json:"is_online"`
	LastChanged time.Time `json:"last_changed"`
}

// GlobalSettings mirrors the settings/global document.
type GlobalSettings struct {
	PresenceEnabled bool `json:"presence_enabled" firestore:"presenceEnabled"`
}
