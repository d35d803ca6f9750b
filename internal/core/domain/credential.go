package domain

// Credential is the authentication policy attached to a tunnel.
// It is a closed set: only KeyAuth and PasswordAuth implement it.
type Credential interface {
	// Kind returns a short label for display and logging ("key" or "password").
	Kind() string

	clone() Credential
	isCredential()
}

// KeyAuth authenticates with a private key file.
//
// An empty KeyPath is accepted when the tunnel is stored; the attempt fails
// with ErrMissingKeyPath when it reaches authentication.
type KeyAuth struct {
	KeyPath string
}

// Kind implements Credential.
func (KeyAuth) Kind() string { return "key" }

// HasKeyPath reports whether a key file has been configured.
func (k KeyAuth) HasKeyPath() bool { return k.KeyPath != "" }

func (k KeyAuth) clone() Credential { return k }
func (KeyAuth) isCredential()       {}

// PasswordAuth authenticates with a password.
//
// When SavedPassword is nil the password is requested from the operator at
// connect time. The saved value is persisted in clear text.
type PasswordAuth struct {
	SavedPassword *string
}

// Kind implements Credential.
func (PasswordAuth) Kind() string { return "password" }

// Saved returns the saved password and whether one is present.
func (p PasswordAuth) Saved() (string, bool) {
	if p.SavedPassword == nil {
		return "", false
	}
	return *p.SavedPassword, true
}

func (p PasswordAuth) clone() Credential {
	if p.SavedPassword == nil {
		return PasswordAuth{}
	}
	v := *p.SavedPassword
	return PasswordAuth{SavedPassword: &v}
}

func (PasswordAuth) isCredential() {}

// NewSavedPassword returns a PasswordAuth that never prompts.
func NewSavedPassword(password string) PasswordAuth {
	return PasswordAuth{SavedPassword: &password}
}
