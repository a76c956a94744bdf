package model

import "time"

// Session is an authenticated login, identified by an opaque token
type Session struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	Admin     bool      `json:"admin"` // captured from the account at login time
	CreatedAt time.Time `json:"created_at"`
}

// Viewer returns the viewer context for the session
func (s *Session) Viewer() Viewer {
	return Viewer{Username: s.Username, Admin: s.Admin}
}

// Viewer identifies who a request or real-time connection is acting for.
// It is derived per request and per connection, never shared process-wide.
type Viewer struct {
	Username string `json:"username"`
	Admin    bool   `json:"admin"`
}

// Anonymous reports whether the viewer has no identity
func (v Viewer) Anonymous() bool {
	return v.Username == ""
}

// CanSubmitAs reports whether the viewer may submit under username
func (v Viewer) CanSubmitAs(username string) bool {
	return v.Admin || (!v.Anonymous() && v.Username == username)
}
