package validation

import (
	"errors"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const maxEntryNameLength = 255

var (
	ErrNameRequired = errors.New("name is required")
	ErrNameTooLong  = errors.New("name is too long (max 255 characters)")
	ErrNameInvalid  = errors.New("name must not contain '/'")
)

// NormalizeEntryName trims and NFC-normalizes a file or folder name, then
// validates it. Duplicate names are allowed; uniqueness is not checked here.
func NormalizeEntryName(name string) (string, error) {
	normalized := norm.NFC.String(strings.TrimSpace(name))

	if normalized == "" {
		return "", ErrNameRequired
	}

	if utf8.RuneCountInString(normalized) > maxEntryNameLength {
		return "", ErrNameTooLong
	}

	if strings.Contains(normalized, "/") {
		return "", ErrNameInvalid
	}

	return normalized, nil
}
