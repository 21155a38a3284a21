package credentials

import "fmt"

// Credentials is a snapshot of the server credentials held in a secret store.
// UserID and SessionID are session-scoped and never persisted.
type Credentials struct {
	ServerURL string `json:"server_url" yaml:"server_url"`
	User      string `json:"user" yaml:"user"`
	Password  string `json:"password,omitempty" yaml:"password,omitempty"`
	UserID    string `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	SessionID string `json:"session_id,omitempty" yaml:"session_id,omitempty"`
}

// New creates credentials for the given server, user and password
func New(serverURL, user, password string) Credentials {
	return Credentials{
		ServerURL: serverURL,
		User:      user,
		Password:  password,
	}
}

// Equal compares server URL, user and password. Session fields are ignored.
func (c Credentials) Equal(other Credentials) bool {
	return c.ServerURL == other.ServerURL &&
		c.User == other.User &&
		c.Password == other.Password
}

// WithSession returns a copy carrying the given session identifiers
func (c Credentials) WithSession(userID, sessionID string) Credentials {
	c.UserID = userID
	c.SessionID = sessionID
	return c
}

// TargetName returns the encoded storage key for these credentials
func (c Credentials) TargetName() string {
	return EncodeTarget(c.ServerURL, c.User)
}

// String implements fmt.Stringer without exposing the password
func (c Credentials) String() string {
	return fmt.Sprintf("%s@%s", c.User, c.ServerURL)
}

// MaskedPassword returns a masked version of the password for display
func (c Credentials) MaskedPassword() string {
	if c.Password == "" {
		return ""
	}
	return "***"
}
