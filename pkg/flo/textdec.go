package flo

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// recoverText converts raw decrypted bytes to text using a bounded fallback
// chain: UTF-8, then Latin-1, then a raw byte-to-rune mapping. Candidates
// are scored by their fraction of printable characters and the best one
// wins. When the bytes were not valid UTF-8, a final percent-decoding pass
// recovers payloads that historical writers escaped before encryption.
//
// This is a compatibility shim for historically corrupted payloads, not a
// long-term contract. Returns an empty string when nothing is recoverable.
func recoverText(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}

	var candidates []string

	valid := utf8.Valid(raw)
	if valid {
		candidates = append(candidates, string(raw))
	}

	if latin, err := charmap.ISO8859_1.NewDecoder().Bytes(raw); err == nil {
		candidates = append(candidates, string(latin))
	}

	runes := make([]rune, len(raw))
	for i, b := range raw {
		runes[i] = rune(b)
	}
	candidates = append(candidates, string(runes))

	var best string
	var bestScore float64
	for _, candidate := range candidates {
		if score := printableRatio(candidate); score > bestScore {
			best = candidate
			bestScore = score
		}
	}

	if !valid && strings.Contains(best, "%") {
		if unescaped, err := url.QueryUnescape(best); err == nil && unescaped != best {
			best = unescaped
		}
	}

	return best
}

// printableRatio returns the fraction of printable ASCII and common control
// characters in s.
func printableRatio(s string) float64 {
	if s == "" {
		return 0
	}

	var printable, total int
	for _, r := range s {
		total++
		if (r >= 0x20 && r <= 0x7E) || r == '\n' || r == '\r' || r == '\t' {
			printable++
		}
	}

	return float64(printable) / float64(total)
}
