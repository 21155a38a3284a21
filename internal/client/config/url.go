package config

import (
	"fmt"
	"os"
	"strings"
)

const (
	// URLEnvVar is the environment variable for server URL
	URLEnvVar = "TC_CREDENTIALS_URL"

	// UserEnvVar is the environment variable for the user name
	UserEnvVar = "TC_CREDENTIALS_USER"
)

// ResolveURL resolves the server URL using precedence:
// 1. argURL (positional argument)
// 2. Environment variable (TC_CREDENTIALS_URL)
// Returns error if no URL found
func ResolveURL(argURL string) (string, error) {
	// Priority 1: CLI argument
	if argURL != "" {
		return NormalizeURL(argURL), nil
	}

	// Priority 2: Environment variable
	if envURL := os.Getenv(URLEnvVar); envURL != "" {
		return NormalizeURL(envURL), nil
	}

	return "", fmt.Errorf("no server URL specified. Provide it as an argument or set %s", URLEnvVar)
}

// ResolveUser returns the --user flag, falling back to TC_CREDENTIALS_USER.
// An empty result means the user must be prompted for.
func ResolveUser(flagUser string) string {
	if flagUser != "" {
		return flagUser
	}
	return os.Getenv(UserEnvVar)
}

// NormalizeURL removes trailing slashes from URLs
func NormalizeURL(url string) string {
	return strings.TrimRight(strings.TrimSpace(url), "/")
}
