package db

import "strings"

// IsUniqueViolation reports whether err looks like a Postgres unique
// violation. Pass a constraint name to match one specific index.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, "duplicate key value")
}
