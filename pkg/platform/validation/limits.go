package validation

import (
	"fmt"

	dErrors "credledger/pkg/domain-errors"
)

// Identifier and free-text limits for credential requests.
const (
	// MaxIDLength bounds certificate, skill and student IDs and file hashes.
	MaxIDLength = 256

	// MaxTextLength bounds names, courses, institutions, grades and categories.
	MaxTextLength = 512

	// MaxReasonLength bounds revocation reasons and endorsement notes.
	MaxReasonLength = 2048
)

// MaxBatchVerify is the largest number of IDs one batch verification accepts.
const MaxBatchVerify = 1000

// Field pairs a request field name with its value for length checks.
type Field struct {
	Name  string
	Value string
}

// CheckSliceCount validates that a slice does not exceed the maximum count.
func CheckSliceCount(fieldName string, count, max int) error {
	if count > max {
		return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("too many %s: max %d allowed", fieldName, max))
	}
	return nil
}

// CheckStringLength validates that a string does not exceed the maximum length.
func CheckStringLength(fieldName, value string, max int) error {
	if len(value) > max {
		return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("%s exceeds max length of %d", fieldName, max))
	}
	return nil
}

// CheckEachStringLength validates that each string in a slice does not exceed the maximum length.
func CheckEachStringLength(fieldName string, values []string, max int) error {
	for _, v := range values {
		if len(v) > max {
			return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("%s exceeds max length of %d", fieldName, max))
		}
	}
	return nil
}

// CheckLengths applies CheckStringLength with the same max to every field and
// returns the first violation.
func CheckLengths(max int, fields ...Field) error {
	for _, f := range fields {
		if err := CheckStringLength(f.Name, f.Value, max); err != nil {
			return err
		}
	}
	return nil
}
