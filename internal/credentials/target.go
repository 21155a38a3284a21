package credentials

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// TargetSeparator splits the hex-encoded URL from the hex-encoded user.
// It can never appear in a hex digit.
const TargetSeparator = "|"

// ErrMalformedTarget is returned when a stored target name cannot be decoded
var ErrMalformedTarget = errors.New("malformed target name")

// EncodeTarget multiplexes a server URL and a user name into one storage key
func EncodeTarget(serverURL, user string) string {
	return hex.EncodeToString([]byte(serverURL)) + TargetSeparator + hex.EncodeToString([]byte(user))
}

// DecodeTarget reverses EncodeTarget
func DecodeTarget(target string) (serverURL, user string, err error) {
	encodedURL, encodedUser, found := strings.Cut(target, TargetSeparator)
	if !found {
		return "", "", fmt.Errorf("%w: missing separator in %q", ErrMalformedTarget, target)
	}

	rawURL, err := hex.DecodeString(encodedURL)
	if err != nil {
		return "", "", fmt.Errorf("%w: server URL: %v", ErrMalformedTarget, err)
	}

	rawUser, err := hex.DecodeString(encodedUser)
	if err != nil {
		return "", "", fmt.Errorf("%w: user: %v", ErrMalformedTarget, err)
	}

	return string(rawURL), string(rawUser), nil
}

// FromTarget builds credentials from an encoded target name and a password
func FromTarget(target, password string) (*Credentials, error) {
	serverURL, user, err := DecodeTarget(target)
	if err != nil {
		return nil, err
	}
	creds := New(serverURL, user, password)
	return &creds, nil
}
