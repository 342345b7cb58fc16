package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccountFields(t *testing.T) {
	t.Parallel()
	tests := []struct {
		field string
		check func(string) error
		valid []string
		bad   []string
	}{
		{
			field: "password",
			check: ValidatePassword,
			valid: []string{"campfire42", "abcdefg1", strings.Repeat("b", 127) + "1", "Ångström2024"},
			bad:   []string{"abc12", strings.Repeat("b", 128) + "1", "campfireonly", "1234567890"},
		},
		{
			field: "username",
			check: ValidateUsername,
			valid: []string{"trail_runner42", "_camper", strings.Repeat("a", 30)},
			bad:   []string{"tu", strings.Repeat("a", 31), "trail-runner", "user@123", "two words"},
		},
		{
			field: "email",
			check: ValidateEmail,
			valid: []string{"test@example.com", "guest+resort@example.co.uk"},
			bad: []string{
				"not-an-email", "user@", "user@@example.com", "Guest <guest@example.com>", "user@localhost",
				strings.Repeat("a", 64) + "@" + strings.Repeat("b", 190) + ".com",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			for _, v := range tt.valid {
				assert.NoError(t, tt.check(v), "%q should be accepted", v)
			}
			for _, v := range tt.bad {
				assert.Error(t, tt.check(v), "%q should be rejected", v)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "guest@example.com", NormalizeEmail("  Guest@Example.COM "))
}
