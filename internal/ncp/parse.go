// Package ncp queries the network co-processor status tool and parses its counters.
package ncp

import (
	"strings"
	"unicode"

	"github.com/and161185/ncp-diag/model"
)

// Marker is the property name that opens the MAC counter block.
const Marker = "NCP:Counter:AllMac"

// bodyOffset skips the opening bracket plus the newline and tab that follow it.
const bodyOffset = 3

// ParseCounters extracts the MAC counter block from a status dump.
//
// The expected shape is:
//
//	NCP:Counter:AllMac = [
//		"TxTotal              = 1126"
//		"TxUnicast            = 289"
//	]
//
// A missing marker or bracket yields an empty record. Entries without '='
// and entries with an empty name are skipped.
func ParseCounters(text string) model.CounterRecord {
	res := model.CounterRecord{}

	start := strings.Index(text, Marker)
	if start < 0 {
		return res
	}
	tail := text[start:]

	open := strings.IndexByte(tail, '[')
	if open < 0 {
		return res
	}
	end := strings.IndexByte(tail, ']')
	if end < 0 {
		return res
	}
	if open+bodyOffset > end {
		return res
	}

	body := strings.ReplaceAll(tail[open+bodyOffset:end], `"`, "")

	for _, entry := range strings.Split(body, "\t") {
		key, value, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		key = stripSpaces(key)
		if key == "" {
			continue
		}
		res[key] = stripSpaces(value)
	}

	return res
}

func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
