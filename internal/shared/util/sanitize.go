package util

import (
	"errors"
	"path"
	"strings"
	"unicode"
	"unicode/utf8"
)

var ErrInvalidFileName = errors.New("invalid file name")

const maxFileNameBytes = 200

// SanitizeFileName turns an uploaded name into a single safe key segment.
// Separators and whitespace become underscores, control characters are
// dropped, and long names are cut while keeping the extension.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", ErrInvalidFileName
	}
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r == '/' || r == '\\' || unicode.IsSpace(r):
			b.WriteByte('_')
		case unicode.IsControl(r) || r == utf8.RuneError:
		default:
			b.WriteRune(r)
		}
	}
	s := b.String()
	if s == "" {
		return "", ErrInvalidFileName
	}
	if len(s) > maxFileNameBytes {
		ext := path.Ext(s)
		if len(ext) > 16 {
			ext = ""
		}
		s = truncateUTF8(s[:len(s)-len(ext)], maxFileNameBytes-len(ext)) + ext
	}
	return s, nil
}

func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// AttachmentName strips characters that would break a Content-Disposition header.
func AttachmentName(name string) string {
	clean := strings.Map(func(r rune) rune {
		if r == '"' || r == '\\' || unicode.IsControl(r) {
			return -1
		}
		return r
	}, strings.TrimSpace(name))
	if clean == "" {
		return "download"
	}
	return clean
}
