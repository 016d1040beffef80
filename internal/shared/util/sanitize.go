package util

import (
	"errors"
	"path/filepath"
	"strings"
	"unicode"
)

// ErrInvalidFileName is returned for names that are empty or try to climb directories.
var ErrInvalidFileName = errors.New("invalid file name")

const maxFileNameLen = 200

// SanitizeFileName makes a client or server supplied name safe to use as a
// single path element: separators become "_", control characters are
// dropped and long names are shortened with the extension kept.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", ErrInvalidFileName
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
	if s == "" {
		return "", ErrInvalidFileName
	}
	if len(s) > maxFileNameLen {
		ext := filepath.Ext(s)
		if len(ext) > 16 {
			ext = ""
		}
		s = strings.ToValidUTF8(s[:maxFileNameLen-len(ext)], "") + ext
	}
	return s, nil
}

// FileExt returns the lower-cased extension of name, including the dot.
func FileExt(name string) string {
	return strings.ToLower(filepath.Ext(strings.TrimSpace(name)))
}
