package distlimit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateKey(t *testing.T) {
	testCases := []struct {
		name        string
		key         string
		keyType     string
		expectError bool
		errorMsg    string
	}{
		{name: "alphanumeric", key: "user123", keyType: "bucket key"},
		{name: "with underscore", key: "user_123", keyType: "bucket key"},
		{name: "with hyphen", key: "user-123", keyType: "bucket key"},
		{name: "with colon", key: "user:123", keyType: "bucket key"},
		{name: "with period and at", key: "user.name@domain:123", keyType: "bucket key"},
		{name: "exactly 64 bytes", key: strings.Repeat("a", 64), keyType: "bucket key"},
		{
			name: "empty", key: "", keyType: "bucket key",
			expectError: true, errorMsg: "bucket key cannot be empty",
		},
		{
			name: "too long", key: strings.Repeat("a", 65), keyType: "bucket key",
			expectError: true, errorMsg: "cannot exceed 64 bytes",
		},
		{
			name: "contains space", key: "user 123", keyType: "bucket key",
			expectError: true, errorMsg: "contains invalid character ' '",
		},
		{
			name: "contains slash", key: "user/123", keyType: "bucket key",
			expectError: true, errorMsg: "contains invalid character '/'",
		},
		{
			name: "non-ASCII", key: "üser123", keyType: "bucket key",
			expectError: true, errorMsg: "contains invalid character 'ü'",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateKey(tc.key, tc.keyType)
			if tc.expectError {
				assert.Error(t, err)
				if tc.errorMsg != "" {
					assert.Contains(t, err.Error(), tc.errorMsg)
				}
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateBucketKey(t *testing.T) {
	assert.NoError(t, ValidateBucketKey("user:alice"))
	assert.Error(t, ValidateBucketKey(""))
	assert.Error(t, ValidateBucketKey("has a space"))
}

func TestValidateKeyPattern(t *testing.T) {
	assert.NoError(t, ValidateKeyPattern("user:*"))
	assert.NoError(t, ValidateKeyPattern("user:premium:*"))
	assert.NoError(t, ValidateKeyPattern("exact:no:wildcard"))
	assert.Error(t, ValidateKeyPattern(""))
	assert.Error(t, ValidateKeyPattern("user *"))
}
