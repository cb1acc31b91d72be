package validation

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnsupportedType   = errors.New("only images and pdf are supported")
	ErrMissingExtension  = errors.New("file has no extension")
	ErrBlockedExtension  = errors.New("file type not allowed")
	ErrUploadTooLarge    = errors.New("file too large")
	ErrEmptyUpload       = errors.New("no file provided")
	ErrMissingUploadName = errors.New("file name is required")
)

// UploadConstraints defines which uploads are accepted.
type UploadConstraints struct {
	AllowedMimePrefixes []string
	AllowedMimeTypes    map[string]bool
	BlockedExtensions   map[string]bool // Lowercase, without the dot
	MaxSize             int64
}

// DefaultUploadConstraints accepts any image/* and PDFs, refusing executable
// and script extensions even when the declared content type looks harmless.
var DefaultUploadConstraints = UploadConstraints{
	AllowedMimePrefixes: []string{"image/"},
	AllowedMimeTypes: map[string]bool{
		"application/pdf": true,
	},
	BlockedExtensions: map[string]bool{
		"exe": true, "php": true, "phtml": true, "bat": true, "cmd": true,
		"com": true, "msi": true, "scr": true, "dll": true, "sh": true,
		"ps1": true, "vbs": true, "js": true, "jar": true,
	},
	MaxSize: 25 << 20, // 25MB
}

// Extension returns the substring after the last dot, or "" when the name
// has no dot or ends with one.
func Extension(filename string) string {
	i := strings.LastIndex(filename, ".")
	if i < 0 {
		return ""
	}
	return filename[i+1:]
}

// ValidateUpload classifies an upload by name, declared content type and
// reported size. It returns the file extension as written in the name.
func ValidateUpload(filename, contentType string, size int64, constraints UploadConstraints) (string, error) {
	if strings.TrimSpace(filename) == "" {
		return "", ErrMissingUploadName
	}

	if size <= 0 {
		return "", ErrEmptyUpload
	}

	if constraints.MaxSize > 0 && size > constraints.MaxSize {
		maxMB := constraints.MaxSize / (1 << 20)
		return "", fmt.Errorf("%w: maximum size is %d MB", ErrUploadTooLarge, maxMB)
	}

	return ValidateUploadType(filename, contentType, constraints)
}

// ValidateUploadType runs the name and type checks of ValidateUpload for
// uploads whose size is not known yet.
func ValidateUploadType(filename, contentType string, constraints UploadConstraints) (string, error) {
	if strings.TrimSpace(filename) == "" {
		return "", ErrMissingUploadName
	}

	if !constraints.allowsType(contentType) {
		return "", fmt.Errorf("%w (declared: %q)", ErrUnsupportedType, contentType)
	}

	ext := Extension(filename)
	if ext == "" {
		return "", ErrMissingExtension
	}

	if constraints.BlockedExtensions[strings.ToLower(ext)] {
		return "", fmt.Errorf("%w: .%s", ErrBlockedExtension, ext)
	}

	return ext, nil
}

func (c UploadConstraints) allowsType(contentType string) bool {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if contentType == "" {
		return false
	}
	if c.AllowedMimeTypes[contentType] {
		return true
	}
	for _, prefix := range c.AllowedMimePrefixes {
		if strings.HasPrefix(contentType, prefix) {
			return true
		}
	}
	return false
}
