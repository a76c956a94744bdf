package model

// Account is a single entry of the account store, keyed by username
type Account struct {
	// Password is the plaintext password, or its hash when PasswordHashed is set
	Password string `json:"pw"`
	// PasswordHashed marks Password as a hash (set once the user changed their password)
	PasswordHashed bool `json:"changed_pw"`
	Admin          bool `json:"admin"`
}

// Accounts maps username to account
type Accounts map[string]Account
