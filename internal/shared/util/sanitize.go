package util

import (
	"errors"
	"path/filepath"
	"strings"
	"unicode"
)

// ErrInvalidUploadName is returned for upload names that cannot be stored.
var ErrInvalidUploadName = errors.New("invalid upload file name")

// SanitizeUploadName turns a client-supplied file name into a flat name safe
// to echo back and store. Path separators become underscores, control
// characters are dropped and a ".pdf" extension is lower-cased.
func SanitizeUploadName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", ErrInvalidUploadName
	}
	s := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, strings.TrimSpace(name))

	if ext := filepath.Ext(s); strings.EqualFold(ext, ".pdf") {
		s = strings.TrimSuffix(s, ext) + ".pdf"
	}
	if s == "" || s == ".pdf" {
		return "", ErrInvalidUploadName
	}
	return s, nil
}
