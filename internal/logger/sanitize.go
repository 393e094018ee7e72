package logger

import (
	"strings"
	"unicode"
)

// Length limits for user-controlled values written to logs
const (
	MaxPathLength          = 500
	MaxErrorMessageLength  = 1000
	MaxGeneralStringLength = 2000
	MaxTitleLength         = 200
)

// SanitizeString makes s safe to log: invalid UTF-8 and control characters
// other than tab, CR and LF are dropped and the result is cut to maxLength
// bytes (on a rune boundary) with "..." appended. A non-positive maxLength
// means MaxGeneralStringLength.
func SanitizeString(s string, maxLength int) string {
	if s == "" {
		return ""
	}
	if maxLength <= 0 {
		maxLength = MaxGeneralStringLength
	}

	var b strings.Builder
	b.Grow(min(len(s), maxLength))
	truncated := false
	for _, r := range strings.ToValidUTF8(s, "") {
		if !unicode.IsPrint(r) && r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			continue
		}
		if b.Len()+len(string(r)) > maxLength {
			truncated = true
			break
		}
		b.WriteRune(r)
	}
	if truncated {
		b.WriteString("...")
	}
	return b.String()
}

// SanitizePath sanitizes a request path
func SanitizePath(path string) string {
	return SanitizeString(path, MaxPathLength)
}

// SanitizeError sanitizes an error message, returning "" for nil
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeString(err.Error(), MaxErrorMessageLength)
}

// SanitizeTitle sanitizes a task title
func SanitizeTitle(title string) string {
	return SanitizeString(title, MaxTitleLength)
}
