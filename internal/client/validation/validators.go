package validation

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateServerURL validates that the server URL is an absolute http(s) URL
func ValidateServerURL(serverURL string) error {
	u, err := url.Parse(serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL '%s': %v", serverURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid server URL. Expected 'http://' or 'https://' scheme, got: '%s'", serverURL)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid server URL. Host cannot be empty in '%s'", serverURL)
	}
	return nil
}

// ValidateUser validates the user name
func ValidateUser(user string) error {
	if strings.TrimSpace(user) == "" {
		return fmt.Errorf("user cannot be empty")
	}
	if strings.ContainsAny(user, "\r\n\x00") {
		return fmt.Errorf("user cannot contain line breaks or NUL characters")
	}
	return nil
}

// ValidatePassword validates the password
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}
	if strings.ContainsRune(password, '\x00') {
		return fmt.Errorf("password cannot contain NUL characters")
	}
	return nil
}
