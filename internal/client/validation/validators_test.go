package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateServerURL(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		wantError bool
	}{
		{name: "http", url: "http://teamcity.local"},
		{name: "https with port and path", url: "https://ci.example.com:8111/tc"},
		{name: "no scheme", url: "teamcity.local", wantError: true},
		{name: "ftp", url: "ftp://h", wantError: true},
		{name: "no host", url: "http://", wantError: true},
		{name: "unparsable", url: "http://[::1", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateServerURL(tt.url)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateUser(t *testing.T) {
	assert.NoError(t, ValidateUser("jane"))
	assert.NoError(t, ValidateUser("DOMAIN\\jane"))
	assert.Error(t, ValidateUser(""))
	assert.Error(t, ValidateUser("   "))
	assert.Error(t, ValidateUser("a\nb"))
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("p"))
	assert.Error(t, ValidatePassword(""))
	assert.Error(t, ValidatePassword("a\x00b"))
}
