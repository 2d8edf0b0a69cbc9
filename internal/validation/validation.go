// Package validation holds the file checks shared by the upload client and
// the server. All checks are pure and run before any network activity.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MaxFileSize is the largest accepted upload, 50 MiB.
	MaxFileSize int64 = 50 * 1024 * 1024
	// MaxFilenameLength counts characters, not bytes.
	MaxFilenameLength = 255
)

// Kind classifies a validation failure.
type Kind string

const (
	KindEmptyFile         Kind = "EmptyFile"
	KindTooLarge          Kind = "TooLarge"
	KindEmptyName         Kind = "EmptyName"
	KindNameTooLong       Kind = "NameTooLong"
	KindPathTraversal     Kind = "PathTraversal"
	KindInvalidCharacters Kind = "InvalidCharacters"
	KindDisallowedPattern Kind = "DisallowedPattern"
)

// ValidationError is returned for the first failed check.
type ValidationError struct {
	Kind    Kind
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is lets errors.Is match on Kind alone, e.g.
// errors.Is(err, &ValidationError{Kind: KindTooLarge}).
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

const invalidChars = "<>\"'`/\\\n\r\t\x00"

var allowedName = regexp.MustCompile(`^[a-zA-Z0-9._\-\s()]+$`)

// ValidateFile checks size first, then name. A negative size is treated
// as empty.
func ValidateFile(name string, size int64) error {
	if err := ValidateSize(size); err != nil {
		return err
	}
	return ValidateName(name)
}

func ValidateSize(size int64) error {
	if size <= 0 {
		return &ValidationError{Kind: KindEmptyFile, Message: "File is empty"}
	}
	if size > MaxFileSize {
		return &ValidationError{
			Kind:    KindTooLarge,
			Message: fmt.Sprintf("File size exceeds maximum allowed size of %d MB", MaxFileSize/(1024*1024)),
		}
	}
	return nil
}

func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Kind: KindEmptyName, Message: "Filename cannot be empty"}
	}
	if utf8.RuneCountInString(name) > MaxFilenameLength {
		return &ValidationError{
			Kind:    KindNameTooLong,
			Message: fmt.Sprintf("Filename exceeds maximum length of %d characters", MaxFilenameLength),
		}
	}
	if strings.Contains(name, "..") {
		return &ValidationError{Kind: KindPathTraversal, Message: "Filename contains invalid path traversal sequence"}
	}
	if strings.ContainsAny(name, invalidChars) {
		return &ValidationError{Kind: KindInvalidCharacters, Message: "Filename contains invalid characters"}
	}
	if !allowedName.MatchString(name) {
		return &ValidationError{
			Kind:    KindDisallowedPattern,
			Message: "Filename contains invalid characters. Only letters, numbers, dots, hyphens, underscores, spaces, and parentheses are allowed",
		}
	}
	return nil
}
