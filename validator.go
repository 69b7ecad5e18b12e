package distlimit

import "fmt"

// allowedCharsArray is a precomputed boolean array for O(1) character validation.
var allowedCharsArray [128]bool

func init() {
	for i := range 128 {
		allowedCharsArray[i] = false
	}
	for _, c := range "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_-:.@" {
		allowedCharsArray[c] = true
	}
}

const maxKeyBytes = 64

// validateKey checks that key is non-empty, at most 64 bytes, and contains
// only alphanumeric ASCII plus the separators used in bucket keys and
// patterns: underscore, hyphen, colon, period, and at-sign.
func validateKey(key string, keyType string) error {
	if len(key) == 0 {
		return fmt.Errorf("%s cannot be empty", keyType)
	}
	if len(key) > maxKeyBytes {
		return fmt.Errorf("%s cannot exceed %d bytes, got %d bytes", keyType, maxKeyBytes, len(key))
	}

	const hint = "Only alphanumeric ASCII, underscore (_), hyphen (-), colon (:), period (.), and at (@) are allowed"
	for i, r := range key {
		if r >= 128 || !allowedCharsArray[r] {
			return fmt.Errorf("%s contains invalid character '%c' at position %d. %s", keyType, r, i, hint)
		}
	}
	return nil
}

// ValidateBucketKey validates a rate-limit bucket key, as supplied by a
// client to the check endpoint.
func ValidateBucketKey(key string) error {
	return validateKey(key, "bucket key")
}

// ValidateKeyPattern validates a wildcard key pattern, as supplied to the
// pattern-config endpoints. Wildcards ('*') are allowed in addition to the
// bucket key character set.
func ValidateKeyPattern(pattern string) error {
	if len(pattern) == 0 {
		return fmt.Errorf("key pattern cannot be empty")
	}
	if len(pattern) > maxKeyBytes {
		return fmt.Errorf("key pattern cannot exceed %d bytes, got %d bytes", maxKeyBytes, len(pattern))
	}

	const hint = "Only alphanumeric ASCII, underscore (_), hyphen (-), colon (:), period (.), at (@), and wildcard (*) are allowed"
	for i, r := range pattern {
		if r == '*' {
			continue
		}
		if r >= 128 || !allowedCharsArray[r] {
			return fmt.Errorf("key pattern contains invalid character '%c' at position %d. %s", r, i, hint)
		}
	}
	return nil
}
