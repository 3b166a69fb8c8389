package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePassword(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"Valid", "hunter22", false},
		{"Exactly Min Length", "abcdef", false},
		{"Too Short", "abcde", true},
		{"Empty", "", true},
		{"Bcrypt Limit", strings.Repeat("a", 72), false},
		{"Over Bcrypt Limit", strings.Repeat("a", 73), true},
		{"Unicode Counts Runes", "ÅÅÅÅÅÅ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateUsername(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{"Valid", "test_user123", false},
		{"Dots", "jane.doe", false},
		{"Too Short", "tu", true},
		{"Too Long", strings.Repeat("a", 65), true},
		{"Illegal Chars", "user@123", true},
		{"Starts Dash", "-user", true},
		{"Ends Underscore", "user_", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()
	emailAt254 := strings.Repeat("a", 64) + "@" + strings.Repeat("b", 185) + ".com"
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"Valid", "test@example.com", false},
		{"Exactly 254 Characters", emailAt254, false},
		{"Too Long", "x" + emailAt254, true},
		{"Invalid Format", "not-an-email", true},
		{"Missing Domain", "user@", true},
		{"No TLD", "user@localhost", true},
		{"Display Name", "Bob <bob@example.com>", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateMessageText(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateMessageText("hello"))
	assert.NoError(t, ValidateMessageText(strings.Repeat("é", 140)))
	assert.Error(t, ValidateMessageText(strings.Repeat("x", 141)))
	assert.Error(t, ValidateMessageText("   "))
}

func TestValidateDMText(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateDMText("hi"))
	assert.Error(t, ValidateDMText(""))
	assert.Error(t, ValidateDMText(strings.Repeat("x", MaxDMLength+1)))
}

func TestValidateImageURL(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateImageURL(""))
	assert.NoError(t, ValidateImageURL("/static/images/default-pic.png"))
	assert.NoError(t, ValidateImageURL("https://example.com/a.png"))
	assert.Error(t, ValidateImageURL("//evil.example.com/a.png"))
	assert.Error(t, ValidateImageURL("javascript:alert(1)"))
	assert.Error(t, ValidateImageURL("ftp://example.com/a.png"))
}

func TestValidateProfileText(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateBio("short"))
	assert.Error(t, ValidateBio(strings.Repeat("b", MaxBioLength+1)))
	assert.NoError(t, ValidateLocation("Lisbon"))
	assert.Error(t, ValidateLocation(strings.Repeat("l", MaxLocationLength+1)))
}
