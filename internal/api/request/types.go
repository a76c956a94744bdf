package request

import "errors"

// LoginRequest is the request body for creating a session
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate reports a missing username. An empty password is left to the
// credential check.
func (r LoginRequest) Validate() error {
	if r.Username == "" {
		return errors.New("username is required")
	}
	return nil
}
