package recorder

import (
	"crypto/sha256"
	"encoding/hex"
)

// RedactIdentifier redacts a patient identifier by hashing it with
// SHA-256. Records for the same patient stay correlatable without the
// identifier ever being stored in plaintext.
//
// The hash cannot be reversed, so the original identifier cannot be
// recovered from the audit record.
//
// Returns an empty string if the identifier is empty.
func RedactIdentifier(ref string) string {
	if ref == "" {
		return ""
	}

	hash := sha256.Sum256([]byte(ref))

	return "sha256:" + hex.EncodeToString(hash[:])
}

// RedactIdentifierTruncated redacts an identifier by showing only the
// first and last 4 characters, with the middle replaced by asterisks.
//
// This allows visual identification while preventing full exposure.
// For identifiers shorter than 12 characters, returns all asterisks.
//
// Example: "MRN-00482917" -> "MRN-***2917"
//
// Returns an empty string if the identifier is empty.
func RedactIdentifierTruncated(ref string) string {
	if ref == "" {
		return ""
	}

	// For short identifiers, just redact everything
	if len(ref) < 12 {
		return "****"
	}

	return ref[:4] + "***" + ref[len(ref)-4:]
}

// TruncateString truncates a string to the specified maximum length.
// If the string is longer than maxLen, it is truncated and "..." is
// appended.
//
// Returns the original string if it's shorter than maxLen.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}

	if maxLen <= 3 {
		return s[:maxLen]
	}

	return s[:maxLen-3] + "..."
}
