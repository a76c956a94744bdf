package response

import (
	"github.com/mcoot/judgeportal/internal/model"
)

// Viewer represents the authenticated user
type Viewer struct {
	Username string `json:"username"`
	Admin    bool   `json:"admin"`
}

// ViewerFromModel converts a model.Viewer
func ViewerFromModel(v model.Viewer) Viewer {
	return Viewer{Username: v.Username, Admin: v.Admin}
}

// Session is the response for a successful login
type Session struct {
	SessionToken string `json:"session_token"`
	Viewer       Viewer `json:"viewer"`
}

// SessionFromModel converts a model.Session
func SessionFromModel(s *model.Session) Session {
	return Session{
		SessionToken: s.Token,
		Viewer:       ViewerFromModel(s.Viewer()),
	}
}

// Snapshot is the latest broadcast state as the viewer may see it
type Snapshot struct {
	Seq     uint64           `json:"seq"`
	Results model.Results    `json:"results"`
	Tests   []string         `json:"tests"`
	Users   []string         `json:"users"`
	Configs []model.TestInfo `json:"configs"`
}

// SnapshotFromModel redacts and converts a model.Snapshot for viewer
func SnapshotFromModel(s *model.Snapshot, viewer model.Viewer) Snapshot {
	return Snapshot{
		Seq:     s.Seq,
		Results: s.Results.RedactFor(viewer),
		Tests:   orEmpty(s.Tests),
		Users:   orEmpty(s.Users),
		Configs: s.Configs,
	}
}

// Health is the response of the health check
type Health struct {
	Status   string `json:"status"`
	Sessions *int   `json:"sessions,omitempty"`
	Clients  *int   `json:"clients,omitempty"`
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
