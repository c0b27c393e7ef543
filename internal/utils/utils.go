// Package utils holds payload rendering helpers for the echo responder's logs.
package utils

import "encoding/hex"

// IsProbablyText reports whether b is printable enough to log as a string.
func IsProbablyText(b []byte) bool {
	for _, c := range b {
		if c == 0 || c > 127 {
			return false
		}
	}
	return true
}

// FormatPayload renders a payload for logs: text as is, anything else as hex.
func FormatPayload(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	if IsProbablyText(b) {
		return string(b)
	}
	return "0x" + hex.EncodeToString(b)
}
