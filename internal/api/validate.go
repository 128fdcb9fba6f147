package api

import "regexp"

// maxEmailLen is the maximum length for email addresses (RFC 5321).
const maxEmailLen = 254

// maxPasswordLen guards against absurd argon2 inputs.
const maxPasswordLen = 256

// minPasswordLen is the minimum accepted password length.
const minPasswordLen = 8

// emailRe is a basic email format regex. Not exhaustive; validates structure only.
var emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// phoneRe validates E.164-style phone numbers: leading +, 7-15 digits.
var phoneRe = regexp.MustCompile(`^\+[1-9]\d{6,14}$`)

// validateEmail checks that a string is a valid-looking email address.
// Returns an error message if invalid, empty string if OK.
func validateEmail(field, value string) string {
	if value == "" {
		return field + " is required"
	}
	if len(value) > maxEmailLen {
		return field + " exceeds maximum length"
	}
	if !emailRe.MatchString(value) {
		return field + " is not a valid email address"
	}
	return ""
}

// validatePassword checks password length bounds.
func validatePassword(field, value string) string {
	if value == "" {
		return field + " is required"
	}
	if len(value) < minPasswordLen {
		return field + " must be at least 8 characters"
	}
	if len(value) > maxPasswordLen {
		return field + " exceeds maximum length"
	}
	return ""
}

// validatePhone checks that a string is an E.164-style phone number.
func validatePhone(field, value string) string {
	if value == "" {
		return field + " is required"
	}
	if !phoneRe.MatchString(value) {
		return field + " must be an E.164 phone number (e.g. +15551234567)"
	}
	return ""
}
